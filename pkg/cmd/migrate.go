package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/pseudomuto/changekeeper/pkg/config"
	"github.com/pseudomuto/changekeeper/pkg/database"
	"github.com/pseudomuto/changekeeper/pkg/executor"
	"github.com/pseudomuto/changekeeper/pkg/history"
	"github.com/pseudomuto/changekeeper/pkg/migrator"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type migrateParams struct {
	fx.In

	Config *config.Config
}

// migrate creates the migrate command for deploying pending changesets.
//
// The migrate command bootstraps the history table, loads and validates the
// source folders, and deploys every pending table and changeset followed by
// all procedures in a single transaction.
//
// Command flags:
//   - --url, -u: PostgreSQL connection string (env CHANGEKEEPER_DATABASE_URL)
//   - --target: Folder for audit copies of deployed changesets
//   - --tables, --changesets, --procedures: Source folders
//   - --dry-run: Show what would be deployed without applying changes
//   - --cafile, --certfile, --keyfile: Mutual TLS settings
//
// Example usage:
//
//	# Deploy everything pending
//	changekeeper migrate --url postgres://app@localhost:5432/app
//
//	# Show what would be deployed
//	changekeeper migrate --dry-run
//
//	# Deploy by connecting via mtls
//	changekeeper migrate --url postgres://app@db:5432/app --certfile /cert/tls.crt --cafile /cert/ca.crt --keyfile /cert/tls.key
func migrate(p migrateParams) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "target",
			Usage: "Folder for audit copies of deployed changesets",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Show what would be deployed without applying changes",
			Value: false,
		},
	}
	flags = append(flags, connectionFlags()...)
	flags = append(flags, sourceFlags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"apply"},
		Usage:   "Deploy pending changesets to PostgreSQL",
		Description: `Deploy all pending changesets to the configured PostgreSQL database.

Table create statements are deployed first, then changesets in file order,
then every procedure and function. Everything runs in one transaction: if any
statement fails nothing is deployed and nothing is recorded.

The command automatically handles:
- Creation of the migration history table on first run
- Skipping changesets that were deployed before
- Refusing to run when a deployed changeset was edited afterwards
- Writing an audit copy of every deployed changeset to the target folder`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runMigrate(ctx, cmd, p)
		},
	}
}

func runMigrate(ctx context.Context, cmd *cli.Command, p migrateParams) error {
	cfg, err := resolveConfig(cmd, p.Config)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	slog.Info("Starting deployment",
		"tables", cfg.Sources.Tables,
		"changesets", cfg.Sources.Changesets,
		"procedures", cfg.Sources.Procedures,
		"target", cfg.TargetFolder,
		"dry_run", dryRun,
	)

	reader, err := cfg.Reader()
	if err != nil {
		return err
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	table := cfg.HistoryTable()
	store := history.NewStore(client.DB(), table)

	var loader migrator.HistoryLoader = store
	if dryRun {
		loader = firstRunTolerant{store}
	} else if err := history.Bootstrap(ctx, client.DB(), table); err != nil {
		return err
	}

	plan, err := migrator.NewPlan(ctx, cfg.SourceFS(), reader, loader)
	if err != nil {
		return err
	}

	exec := executor.New(executor.Config{
		DB:           client.DB(),
		History:      store,
		TargetFolder: cfg.TargetFolder,
		DryRun:       dryRun,
	})

	result, err := exec.Execute(ctx, plan)
	if result != nil {
		writeReport(output(cmd), plan, result)
	}

	return err
}

// firstRunTolerant lets a dry run plan against a database that has not been
// bootstrapped yet. A missing history table means everything is pending; any
// other failure is returned.
type firstRunTolerant struct {
	*history.Store
}

func (h firstRunTolerant) Load(ctx context.Context) error {
	return loadHistory(ctx, h.Store)
}

// loadHistory loads store, treating a missing history table as an empty
// history.
func loadHistory(ctx context.Context, store *history.Store) error {
	err := store.Load(ctx)
	if err != nil && database.IsMissingTableError(err) {
		slog.Warn("Migration history table does not exist yet, treating every changeset as pending", "table", store.Table().String())
		return nil
	}

	return err
}

// writeReport prints the outcome of a deployment.
func writeReport(w io.Writer, plan *migrator.Plan, result *executor.Result) {
	marker, verb := "✅", "deployed"
	if result.DryRun {
		marker, verb = "▶ ", "would be deployed"
	}

	fmt.Fprintf(w, "Run %s\n", result.RunID)
	if result.DryRun {
		fmt.Fprintln(w, "Dry run: nothing was executed")
	}

	writeSection(w, "Tables", marker, changesetNames(result.Tables))
	writeSection(w, "Changesets", marker, changesetNames(result.Changesets))

	procedures := make([]string, len(result.Procedures))
	for i, proc := range result.Procedures {
		procedures[i] = proc.Name
	}
	writeSection(w, "Procedures", marker, procedures)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d table(s), %d changeset(s) and %d procedure(s) %s, %d already deployed\n",
		len(result.Tables),
		len(result.Changesets),
		len(result.Procedures),
		verb,
		plan.DeployedTables+plan.DeployedChangesets,
	)

	if result.DryRun {
		return
	}

	fmt.Fprintf(w, "Audit copies written: %d\n", len(result.AuditCopies))
	fmt.Fprintf(w, "Completed in %v\n", result.ExecutionTime.Round(time.Millisecond))

	if result.Deployed() == 0 {
		fmt.Fprintln(w, "All changesets are up to date.")
	}
}

func writeSection(w io.Writer, title, marker string, names []string) {
	if len(names) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", title)
	for _, name := range names {
		fmt.Fprintf(w, "  %s %s\n", marker, name)
	}
}

func changesetNames(changesets []*changeset.Changeset) []string {
	names := make([]string, len(changesets))
	for i, c := range changesets {
		names[i] = c.Name
	}

	return names
}
