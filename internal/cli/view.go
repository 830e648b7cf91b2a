package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/postcache/internal/store"
)

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the stored posts without using the network",
		Long: `Print every post in the local store, one line per post. An empty store
prints a placeholder message.

Example:
  postcache view
  postcache view --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(opts, cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runView(opts *SessionOptions, cmd *cobra.Command) error {
	orch, err := opts.newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := orch.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	if err := orch.ViewStored(commandContext(cmd)); err != nil {
		var openErr *store.StoreOpenError
		if errors.As(err, &openErr) {
			return WrapExitError(ExitCommandError, "cannot open store", err)
		}
		return WrapExitError(ExitFailure, "cannot read store", err)
	}
	return nil
}
