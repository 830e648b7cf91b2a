package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/postcache/internal/store"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	DBDir string
}

// SchemaInfo describes the local store.
type SchemaInfo struct {
	Path          string `json:"path"`
	Name          string `json:"name"`
	Version       int    `json:"version"`
	Collection    string `json:"collection"`
	HasCollection bool   `json:"has_collection"`
	Count         int    `json:"count"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the local store's schema version and record count",
		Long: `Open the local store at the configured version (creating or upgrading it
if needed) and report its path, version, collection and record count.

Example:
  postcache schema --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBDir, "db-dir", "", "directory holding the store (overrides config)")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	cfg := opts.Config
	if opts.DBDir != "" {
		cfg.Store.Dir = opts.DBDir
	}
	if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "cannot create store directory", err)
	}

	ctx := commandContext(cmd)
	h, err := store.Open(ctx, cfg.StoreOptions(slog.Default()))
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open store", err)
	}
	defer func() {
		if closeErr := h.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	info := SchemaInfo{
		Path:       h.Path(),
		Name:       h.Name(),
		Collection: store.Collection,
	}
	if info.Version, err = h.SchemaVersion(ctx); err != nil {
		return WrapExitError(ExitFailure, "cannot read schema version", err)
	}
	if info.HasCollection, err = h.HasCollection(ctx); err != nil {
		return WrapExitError(ExitFailure, "cannot inspect store", err)
	}
	if info.HasCollection {
		if info.Count, err = h.Count(ctx); err != nil {
			return WrapExitError(ExitFailure, "cannot count records", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(info)
	}
	return formatter.Success(fmt.Sprintf("path: %s\nname: %s\nversion: %d\ncollection: %s (present: %t)\nrecords: %d",
		info.Path, info.Name, info.Version, info.Collection, info.HasCollection, info.Count))
}
