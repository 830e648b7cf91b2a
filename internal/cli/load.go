package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch posts, print them and store them",
		Long: `Fetch the post list from the configured endpoint, print one line per
post and save the posts in the local store for offline viewing.

A failed fetch leaves the store untouched. A failed save is logged but the
printed list stands.

Example:
  postcache load
  postcache load --endpoint http://localhost:8080/posts --db-dir ./data`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runLoad(opts *SessionOptions, cmd *cobra.Command) error {
	orch, err := opts.newSession(cmd)
	if err != nil {
		return err
	}

	loadErr := orch.Load(commandContext(cmd))

	// Close waits for the background write before the process exits.
	if err := orch.Close(); err != nil {
		slog.Warn("posts were not saved for offline viewing", "error", err)
	}

	if loadErr != nil {
		return WrapExitError(ExitFailure, "load failed", loadErr)
	}
	return nil
}
