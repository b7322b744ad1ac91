package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/config"
	"github.com/pseudomuto/changekeeper/pkg/consts"
	"github.com/pseudomuto/changekeeper/pkg/database"
	"github.com/pseudomuto/changekeeper/pkg/executor"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

// EnvDebug enables debug logging when set to true.
const EnvDebug = "CHANGEKEEPER_DEBUG"

// logLevel is shared by the installed handler so a config file with debug: true
// can raise the level after the flags have been parsed.
var logLevel = new(slog.LevelVar)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Startup    config.Startup `optional:"true"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run registers the changekeeper CLI application with the fx lifecycle. The
// application runs once fx starts, and the process exit code is set through
// the Shutdowner: 0 on success, 1 on any error.
//
// Global Flags:
//   - --config, -c: Path to changekeeper.yaml (env CHANGEKEEPER_CONFIG)
//   - --debug: Enable debug logging (env CHANGEKEEPER_DEBUG)
//
// Errors are printed to stderr as a single "Error: <message>" line. Failed
// changesets and procedures are preceded by a CAUSED BY section holding the
// database diagnostics and the SQL that was executed.
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := newApp(p.Version, p.Commands, p.Startup.Err)

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			printError(os.Stderr, err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

// newApp builds the root command. A non-nil configErr is the failure to load
// the config file found at startup; it fails every command unless --config
// names a file explicitly.
func newApp(version *Version, commands []*cli.Command, configErr error) *cli.Command {
	return &cli.Command{
		Name:  "changekeeper",
		Usage: "Deploy PostgreSQL changesets exactly once",
		Description: `changekeeper deploys SQL changesets to PostgreSQL and records each one in
a history table so that it is never deployed twice.

Table create statements live one per file, incremental changes are grouped
into files of --changeset blocks, and procedures are re-executed on every run.
A changeset that was edited after it was deployed stops the run before
anything is executed.`,
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the configuration file",
				Value:   consts.DefaultConfigFile,
				Sources: cli.EnvVars(config.EnvConfigFile),
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars(EnvDebug),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logLevel.Set(slog.LevelInfo)
			if cmd.Bool("debug") {
				logLevel.Set(slog.LevelDebug)
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

			if configErr != nil && !cmd.IsSet("config") {
				return ctx, configErr
			}

			return ctx, nil
		},
		Commands: commands,
	}
}

// printError reports a fatal error. Only the last line is guaranteed to be
// the "Error:" line, which makes it easy to pick out of CI logs.
func printError(w io.Writer, err error) {
	var execErr *executor.ExecutionError
	if errors.As(err, &execErr) {
		fmt.Fprintln(w, "CAUSED BY:")
		fmt.Fprintf(w, "  %s\n", database.Describe(execErr.Err, execErr.SQL))
		fmt.Fprintln(w, "SQL:")
		fmt.Fprintln(w, execErr.SQL)
	}

	fmt.Fprintf(w, "Error: %v\n", err)
}
