package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/postcache/internal/app"
	"github.com/roach88/postcache/internal/config"
	"github.com/roach88/postcache/internal/remote"
)

// SessionOptions holds the per-command overrides shared by load and view.
type SessionOptions struct {
	*RootOptions
	DBDir    string
	Endpoint string

	// Flows allows overriding the flow token generator (for testing).
	// If nil, defaults to app.UUIDv7Generator.
	Flows app.FlowTokenGenerator
}

func (o *SessionOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.DBDir, "db-dir", "", "directory holding the store (overrides config)")
	cmd.Flags().StringVar(&o.Endpoint, "endpoint", "", "URL returning the post list (overrides config)")
}

// resolve applies the flag overrides to the loaded configuration.
func (o *SessionOptions) resolve() (config.Config, error) {
	cfg := o.Config
	if o.DBDir != "" {
		cfg.Store.Dir = o.DBDir
	}
	if o.Endpoint != "" {
		cfg.Remote.Endpoint = o.Endpoint
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// newSession wires an orchestrator that draws on the command's formatter.
func (o *SessionOptions) newSession(cmd *cobra.Command) (*app.Orchestrator, error) {
	cfg, err := o.resolve()
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	// The default store dir lives under the user cache dir and may not
	// exist yet. A failure here surfaces later as a store open error.
	if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
		logger.Warn("cannot create store directory", "dir", cfg.Store.Dir, "error", err)
	}

	provider, err := remote.NewHTTPProvider(cfg.RemoteOptions(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid endpoint", err)
	}

	formatter := o.newFormatter(cmd)
	formatter.VerboseLog("store: %s", cfg.StoreOptions(nil).Path())

	orch, err := app.New(app.Config{
		Provider: provider,
		Store:    cfg.StoreOptions(logger),
		Display:  formatter,
		Logger:   logger,
		Flows:    o.Flows,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start", err)
	}
	return orch, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
