package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pseudomuto/changekeeper/pkg/cmd"
	"github.com/pseudomuto/changekeeper/pkg/config"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	app := fx.New(
		fx.Supply(
			&cmd.Version{
				Version:   version,
				Commit:    commit,
				Timestamp: date,
			},
			os.Args,
		),
		fx.Provide(newContext),
		// The CLI runs inside the start hook, so the start timeout bounds the
		// longest deployment.
		fx.StartTimeout(24*time.Hour),
		config.Module,
		cmd.Module,
		fx.NopLogger,
	)

	// Config file problems are reported by the CLI itself; anything left here
	// is a wiring error that the no-op logger would otherwise swallow.
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app.Run()
}

// newContext is cancelled on SIGINT or SIGTERM, which rolls back a deployment
// that is still in progress.
func newContext(lc fx.Lifecycle) context.Context {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	lc.Append(fx.StopHook(cancel))
	return ctx
}
