package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/pseudomuto/changekeeper/pkg/config"
	"github.com/pseudomuto/changekeeper/pkg/migrator"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type validateParams struct {
	fx.In

	Config *config.Config
}

// validate creates the validate command, which checks the source folders
// without connecting to a database. Every file is decoded and parsed, and
// changeset names are checked for duplicates.
//
// Example usage:
//
//	changekeeper validate
//	changekeeper validate --changesets db/changesets
func validate(p validateParams) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the source folders without deploying",
		Flags: sourceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
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

			procedures, err := migrator.LoadProcedures(src.Procedures, reader)
			if err != nil {
				return errors.Wrap(err, "failed to load procedures")
			}

			fmt.Fprintf(output(cmd), "✅ %d table(s), %d changeset(s) and %d procedure(s) are valid\n",
				tables.Len(),
				changesets.Len(),
				len(procedures),
			)
			return nil
		},
	}
}
