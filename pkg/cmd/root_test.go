package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/pseudomuto/changekeeper/pkg/config"
	"github.com/pseudomuto/changekeeper/pkg/executor"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestPrintError(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		printError(&buf, errors.New("failed to load tables: boom"))
		require.Equal(t, "Error: failed to load tables: boom\n", buf.String())
	})

	t.Run("execution error", func(t *testing.T) {
		sql := "ALTER TABLE users\n  ADD COLUM email text;"
		err := &executor.ExecutionError{
			Type: changeset.Incremental,
			Name: "add-email",
			SQL:  sql,
			Err: &pgconn.PgError{
				Severity: "ERROR",
				Code:     "42601",
				Message:  `syntax error at or near "COLUM"`,
				Position: 25,
			},
		}

		var buf bytes.Buffer
		printError(&buf, errors.Wrap(err, "deployment failed"))

		expected := "CAUSED BY:\n" +
			"  syntax error at or near \"COLUM\" (SQLSTATE 42601) on line 2, column 7\n" +
			"SQL:\n" +
			"ALTER TABLE users\n  ADD COLUM email text;\n" +
			"Error: deployment failed: changeset 'add-email' failed: ERROR: syntax error at or near \"COLUM\" (SQLSTATE 42601)\n"
		require.Equal(t, expected, buf.String())
	})
}

func TestNewApp(t *testing.T) {
	app := newApp(&Version{Version: "1.2.3"}, nil, nil)

	require.Equal(t, "changekeeper", app.Name)
	require.Equal(t, "1.2.3", app.Version)

	names := make([]string, 0, len(app.Flags))
	for _, fl := range app.Flags {
		names = append(names, fl.Names()[0])
	}
	require.Equal(t, []string{"config", "debug"}, names)
}

func TestNewApp_ConfigError(t *testing.T) {
	loadErr := &config.LoadError{Path: "changekeeper.yaml", Err: errors.New("invalid encodings: unknown encoding: klingon")}

	run := func(t *testing.T, args ...string) (bool, error) {
		t.Helper()

		ran := false
		noop := &cli.Command{
			Name: "noop",
			Action: func(context.Context, *cli.Command) error {
				ran = true
				return nil
			},
		}

		app := newApp(&Version{}, []*cli.Command{noop}, loadErr)
		app.Writer = new(bytes.Buffer)

		err := app.Run(context.Background(), append([]string{"changekeeper"}, args...))
		return ran, err
	}

	t.Run("fails every command", func(t *testing.T) {
		ran, err := run(t, "noop")
		require.False(t, ran)
		require.ErrorIs(t, err, loadErr)

		var buf bytes.Buffer
		printError(&buf, err)
		require.Equal(t, "Error: invalid config file changekeeper.yaml: invalid encodings: unknown encoding: klingon\n", buf.String())
	})

	t.Run("explicit config file", func(t *testing.T) {
		ran, err := run(t, "--config", filepath.Join(t.TempDir(), "other.yaml"), "noop")
		require.NoError(t, err)
		require.True(t, ran)
	})
}
