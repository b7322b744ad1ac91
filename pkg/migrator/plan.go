package migrator

import (
	"context"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/pseudomuto/changekeeper/pkg/consts"
	"github.com/pseudomuto/changekeeper/pkg/textfile"
)

type (
	// HistoryLoader is a History that must be loaded before it is queried.
	HistoryLoader interface {
		History
		Load(ctx context.Context) error
	}

	// Sources are the roots of the three source trees.
	Sources struct {
		Tables     fs.FS
		Changesets fs.FS
		Procedures fs.FS
	}

	// Procedure is a stored procedure or function definition. Procedures are
	// executed on every run and are not tracked in the migration history.
	Procedure struct {
		// Name is the file name without its extension.
		Name string

		// Path is the file's path relative to the procedures root.
		Path string

		// Contents is the trimmed file contents.
		Contents string
	}

	// Plan is everything a run will deploy, in deployment order.
	Plan struct {
		// Tables are the pending table changesets.
		Tables *changeset.Set

		// Changesets are the pending incremental changesets.
		Changesets *changeset.Set

		// Procedures are executed after all changesets.
		Procedures []*Procedure

		// DeployedTables counts table changesets skipped as already deployed.
		DeployedTables int

		// DeployedChangesets counts incremental changesets skipped as already
		// deployed.
		DeployedChangesets int
	}
)

// NewPlan loads the source trees and history and validates them. Tables are
// loaded and validated before changesets, so a tampered table is reported even
// when the changeset tree cannot be parsed.
func NewPlan(ctx context.Context, src Sources, reader *textfile.Reader, history HistoryLoader) (*Plan, error) {
	if err := history.Load(ctx); err != nil {
		return nil, err
	}

	tables, err := changeset.LoadTables(src.Tables, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tables")
	}

	pendingTables, err := Validate(tables, history)
	if err != nil {
		return nil, err
	}

	changesets, err := changeset.LoadChangesets(src.Changesets, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load changesets")
	}

	pendingChangesets, err := Validate(changesets, history)
	if err != nil {
		return nil, err
	}

	procedures, err := LoadProcedures(src.Procedures, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load procedures")
	}

	plan := &Plan{
		Tables:             pendingTables,
		Changesets:         pendingChangesets,
		Procedures:         procedures,
		DeployedTables:     tables.Len() - pendingTables.Len(),
		DeployedChangesets: changesets.Len() - pendingChangesets.Len(),
	}

	slog.Debug("Planned run",
		"tables", plan.Tables.Len(),
		"changesets", plan.Changesets.Len(),
		"procedures", len(plan.Procedures),
		"skipped", plan.DeployedTables+plan.DeployedChangesets,
	)

	return plan, nil
}

// Empty returns true if the plan deploys nothing at all.
func (p *Plan) Empty() bool {
	return p.Tables.Len() == 0 && p.Changesets.Len() == 0 && len(p.Procedures) == 0
}

// LoadProcedures reads every .sql file below the root of fsys in lexical order.
// A missing root yields no procedures.
func LoadProcedures(fsys fs.FS, reader *textfile.Reader) ([]*Procedure, error) {
	var procedures []*Procedure

	err := changeset.WalkSQL(fsys, func(path string) error {
		text, err := reader.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		name := path[strings.LastIndex(path, "/")+1:]
		procedures = append(procedures, &Procedure{
			Name:     strings.TrimSuffix(name, consts.Extension),
			Path:     path,
			Contents: strings.TrimSpace(text),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return procedures, nil
}
