package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/config"
	"github.com/pseudomuto/changekeeper/pkg/database"
	"github.com/urfave/cli/v3"
)

// EnvDatabaseURL provides the connection string when --url is not given.
const EnvDatabaseURL = "CHANGEKEEPER_DATABASE_URL"

// sourceFlags override the source folders of the config file.
// Flags carry parse state, so every command gets its own instances.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "tables",
			Usage: "Folder with one table create statement per file",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "changesets",
			Usage: "Folder with files of --changeset blocks",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "procedures",
			Usage: "Folder with procedure and function definitions",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	}
}

// connectionFlags override the connection settings of the config file.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Usage:   "PostgreSQL connection string (e.g., postgres://user@localhost:5432/app)",
			Sources: cli.EnvVars(EnvDatabaseURL),
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "cafile",
			Usage: "Certificate authority pem",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "certfile",
			Usage: "Certificate public key file",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "keyfile",
			Usage: "Certificate private key file",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	}
}

// resolveConfig returns the configuration for a command run. An explicit
// --config is loaded from disk, otherwise the file loaded at startup is used,
// and without one the defaults apply. Flags set on cmd override the result.
func resolveConfig(cmd *cli.Command, loaded *config.Config) (*config.Config, error) {
	cfg := config.Defaults()

	switch {
	case cmd.IsSet("config"):
		fromFile, err := config.LoadConfigFile(cmd.String("config"))
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	case loaded != nil:
		copied := *loaded
		cfg = &copied
	default:
		slog.Debug("No config file found, using defaults")
	}

	if cfg.Debug {
		logLevel.Set(slog.LevelDebug)
	}

	overrides := map[string]*string{
		"url":        &cfg.ConnectionString,
		"target":     &cfg.TargetFolder,
		"tables":     &cfg.Sources.Tables,
		"changesets": &cfg.Sources.Changesets,
		"procedures": &cfg.Sources.Procedures,
		"cafile":     &cfg.TLS.CAFile,
		"certfile":   &cfg.TLS.CertFile,
		"keyfile":    &cfg.TLS.KeyFile,
	}

	for name, field := range overrides {
		if cmd.IsSet(name) {
			*field = cmd.String(name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// connect opens the configured database.
func connect(ctx context.Context, cfg *config.Config) (*database.Client, error) {
	if cfg.ConnectionString == "" {
		return nil, errors.Errorf("no connection string, set connection_string in the config file, pass --url or set %s", EnvDatabaseURL)
	}

	client, err := database.Open(ctx, cfg.ConnectionString, cfg.ClientOptions())
	if err != nil {
		return nil, err
	}

	version, err := client.ServerVersion(ctx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	if !version.SupportsBootstrap() {
		_ = client.Close()
		return nil, errors.Errorf("PostgreSQL %s is not supported, 9.6 or later is required", version)
	}

	slog.Debug("Connected to PostgreSQL", "version", version.String())
	return client, nil
}

// output returns the writer for user-facing reports.
func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}
