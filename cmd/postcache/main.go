// Command postcache fetches posts from a JSON endpoint and keeps them in a
// local store for offline viewing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/postcache/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "postcache: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
