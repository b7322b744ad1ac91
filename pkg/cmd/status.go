package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/pseudomuto/changekeeper/pkg/config"
	"github.com/pseudomuto/changekeeper/pkg/history"
	"github.com/pseudomuto/changekeeper/pkg/migrator"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type statusParams struct {
	fx.In

	Config *config.Config
}

// status creates the status command for showing which changesets are pending.
//
// Unlike migrate, status never creates the history table and does not stop at
// the first tampered changeset: every changeset is listed with its status.
// The command fails if any deployed changeset has been changed, which makes it
// usable as a CI check.
//
// Command flags:
//   - --url, -u: PostgreSQL connection string (env CHANGEKEEPER_DATABASE_URL)
//   - --tables, --changesets: Source folders
//   - --verbose: Also list changesets that are already deployed
//
// Example usage:
//
//	# Show pending and tampered changesets
//	changekeeper status --url postgres://app@localhost:5432/app
//
//	# Show every changeset
//	changekeeper status --verbose
func status(p statusParams) *cli.Command {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Also list deployed changesets",
			Value: false,
		},
	}
	flags = append(flags, connectionFlags()...)
	flags = append(flags, sourceFlags()...)

	return &cli.Command{
		Name:  "status",
		Usage: "Show changeset status",
		Description: `Display the deployment status of every table and changeset.

The status command shows:
- Changesets that are pending deployment
- Deployed changesets whose file has been edited since (tampered)
- Deployed changesets (when --verbose is used)

The migration history table is read but never created.`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStatus(ctx, cmd, p)
		},
	}
}

func runStatus(ctx context.Context, cmd *cli.Command, p statusParams) error {
	cfg, err := resolveConfig(cmd, p.Config)
	if err != nil {
		return err
	}

	reader, err := cfg.Reader()
	if err != nil {
		return err
	}

	src := cfg.SourceFS()
	tables, err := changeset.LoadTables(src.Tables, reader)
	if err != nil {
		return errors.Wrap(err, "failed to load tables")
	}

	changesets, err := changeset.LoadChangesets(src.Changesets, reader)
	if err != nil {
		return errors.Wrap(err, "failed to load changesets")
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	store := history.NewStore(client.DB(), cfg.HistoryTable())
	if err := loadHistory(ctx, store); err != nil {
		return err
	}

	entries := append(migrator.Inspect(tables, store), migrator.Inspect(changesets, store)...)
	tampered := writeStatus(output(cmd), store, entries, cmd.Bool("verbose"))
	if tampered > 0 {
		return errors.Errorf("%d deployed changeset(s) have been changed", tampered)
	}

	return nil
}

// writeStatus prints a status report and returns the number of tampered
// changesets.
func writeStatus(w io.Writer, store *history.Store, entries []migrator.Entry, verbose bool) int {
	fmt.Fprintf(w, "Migration history: %s (%d records)\n", store.Table(), store.Count())

	counts := make(map[migrator.Status]int)
	var current changeset.Type

	for _, entry := range entries {
		counts[entry.Status]++
		if entry.Status == migrator.StatusDeployed && !verbose {
			continue
		}

		if entry.Changeset.Type != current {
			current = entry.Changeset.Type
			fmt.Fprintln(w)
			fmt.Fprintf(w, "%s:\n", sectionTitle(current))
		}

		fmt.Fprintf(w, "  %s %-9s %s\n", statusMarker(entry.Status), entry.Status, entry.Changeset.Name)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d pending, %d deployed, %d tampered\n",
		counts[migrator.StatusPending],
		counts[migrator.StatusDeployed],
		counts[migrator.StatusTampered],
	)

	return counts[migrator.StatusTampered]
}

func sectionTitle(typ changeset.Type) string {
	if typ == changeset.Table {
		return "Tables"
	}

	return "Changesets"
}

func statusMarker(s migrator.Status) string {
	switch s {
	case migrator.StatusDeployed:
		return "✅"
	case migrator.StatusTampered:
		return "❌"
	default:
		return "⏳"
	}
}
