package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/pseudomuto/changekeeper/pkg/consts"
	"github.com/pseudomuto/changekeeper/pkg/history"
	"github.com/pseudomuto/changekeeper/pkg/migrator"
)

// Procedure is the type reported by ExecutionError for procedure files.
const Procedure changeset.Type = "procedures"

type (
	// DB opens deployment transactions. *sql.DB satisfies it.
	DB interface {
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	// Recorder writes history records and tracks the committed ones.
	// *history.Store satisfies it.
	Recorder interface {
		Insert(context.Context, history.Execer, *history.Record) error
		Remember(...*history.Record)
	}

	// Executor applies deployment plans.
	//
	// Example usage:
	//
	//	exec := executor.New(executor.Config{
	//		DB:           db,
	//		History:      store,
	//		TargetFolder: "deployed",
	//	})
	//
	//	result, err := exec.Execute(ctx, plan)
	Executor struct {
		db           DB
		history      Recorder
		targetFolder string
		dryRun       bool
		runID        uuid.UUID
	}

	// Config contains configuration options for creating a new Executor.
	Config struct {
		// DB opens the deployment transaction.
		DB DB

		// History records deployed changesets.
		History Recorder

		// TargetFolder is the root of the audit copies.
		TargetFolder string

		// DryRun reports the plan without touching the database or the
		// target folder.
		DryRun bool

		// RunID identifies the run in the history table. A random UUID is used
		// when it is not set.
		RunID uuid.UUID
	}

	// Result describes a completed deployment.
	Result struct {
		// RunID identifies the run in the history table.
		RunID uuid.UUID

		// Tables are the table changesets that were deployed.
		Tables []*changeset.Changeset

		// Changesets are the incremental changesets that were deployed.
		Changesets []*changeset.Changeset

		// Procedures are the procedure files that were executed.
		Procedures []*migrator.Procedure

		// AuditCopies are the audit files written by this run.
		AuditCopies []string

		// DryRun is true if nothing was executed.
		DryRun bool

		// ExecutionTime is the wall time of the deployment.
		ExecutionTime time.Duration
	}

	// ExecutionError is returned when a changeset or procedure fails to
	// execute. The deployment transaction has been rolled back.
	ExecutionError struct {
		Type changeset.Type
		Name string
		SQL  string
		Err  error
	}
)

func (e *ExecutionError) Error() string {
	switch e.Type {
	case changeset.Table:
		return fmt.Sprintf("table create statement '%s' failed: %v", e.Name, e.Err)
	case Procedure:
		return fmt.Sprintf("procedure or function '%s' failed: %v", e.Name, e.Err)
	default:
		return fmt.Sprintf("changeset '%s' failed: %v", e.Name, e.Err)
	}
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Deployed returns the number of changesets deployed, excluding procedures.
func (r *Result) Deployed() int {
	return len(r.Tables) + len(r.Changesets)
}

func (r *Result) changesets() []*changeset.Changeset {
	all := make([]*changeset.Changeset, 0, r.Deployed())
	all = append(all, r.Tables...)
	return append(all, r.Changesets...)
}

// New creates a new Executor with the provided configuration.
func New(config Config) *Executor {
	runID := config.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}

	return &Executor{
		db:           config.DB,
		history:      config.History,
		targetFolder: config.TargetFolder,
		dryRun:       config.DryRun,
		runID:        runID,
	}
}

// RunID returns the identifier recorded with every history record of the run.
func (e *Executor) RunID() uuid.UUID {
	return e.runID
}

// Execute deploys plan in a single transaction.
//
// Tables deploy before changesets and changesets before procedures. Any failure
// rolls back everything this call executed and is returned as an
// *ExecutionError, possibly combined with a rollback error. Audit copies are
// written only after the transaction commits. Changeset names are plain file
// names (see changeset.ValidateName), so a write can only fail on the file
// system itself; such failures are collected and returned together with the
// Result, since the database changes are already permanent at that point.
func (e *Executor) Execute(ctx context.Context, plan *migrator.Plan) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:      e.runID,
		Tables:     plan.Tables.All(),
		Changesets: plan.Changesets.All(),
		Procedures: plan.Procedures,
		DryRun:     e.dryRun,
	}

	if e.dryRun {
		slog.Info("Dry run, nothing will be deployed", "run_id", e.runID)
		result.ExecutionTime = time.Since(start)
		return result, nil
	}

	if err := e.prepareTarget(); err != nil {
		return nil, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin deployment transaction")
	}

	var records []*history.Record
	for _, c := range result.changesets() {
		rec, err := e.deployChangeset(ctx, tx, c)
		if err != nil {
			return nil, rollback(tx, err)
		}

		records = append(records, rec)
	}

	for _, proc := range result.Procedures {
		if err := e.deployProcedure(ctx, tx, proc); err != nil {
			return nil, rollback(tx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit deployment transaction")
	}

	e.history.Remember(records...)
	slog.Info("Deployment committed", "run_id", e.runID, "changesets", len(records), "procedures", len(result.Procedures))

	// Every copy is attempted even when one fails, since deployed changesets
	// are never revisited by a later run.
	var merr *multierror.Error
	for _, c := range result.changesets() {
		path := c.AuditPath(e.targetFolder)
		written, err := writeAuditCopy(path, c.Contents)
		if err != nil {
			slog.Error("Failed to write audit copy", "type", c.Type, "name", c.Name, "path", path, "err", err)
			merr = multierror.Append(merr, errors.Wrapf(err, "deployment committed but the audit copy of %s could not be written", c.Name))
			continue
		}

		if written {
			result.AuditCopies = append(result.AuditCopies, path)
		}
	}

	result.ExecutionTime = time.Since(start)
	if merr != nil {
		merr.ErrorFormat = singleLine
		return result, merr
	}

	return result, nil
}

// prepareTarget creates the audit folders before anything is deployed, so an
// unwritable target fails the run while nothing has been executed.
func (e *Executor) prepareTarget() error {
	for _, typ := range []changeset.Type{changeset.Table, changeset.Incremental} {
		dir := filepath.Join(e.targetFolder, string(typ))
		if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
			return errors.Wrapf(err, "failed to create target folder %s", dir)
		}
	}

	return nil
}

func (e *Executor) deployChangeset(ctx context.Context, tx *sql.Tx, c *changeset.Changeset) (*history.Record, error) {
	slog.Info("Deploying changeset", "type", c.Type, "name", c.Name)

	if c.Contents == "" {
		slog.Debug("Changeset is empty, recording without executing", "type", c.Type, "name", c.Name)
	} else if _, err := tx.ExecContext(ctx, c.Contents); err != nil {
		return nil, &ExecutionError{Type: c.Type, Name: c.Name, SQL: c.Contents, Err: err}
	}

	rec := &history.Record{
		Name:  c.Name,
		Type:  c.Type,
		Hash:  c.Hash,
		RunID: e.runID,
	}

	// Not an ExecutionError: the changeset itself ran fine.
	if err := e.history.Insert(ctx, tx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// deployProcedure executes a procedure file verbatim. Procedures are expected
// to use CREATE OR REPLACE so that re-running them is harmless.
func (e *Executor) deployProcedure(ctx context.Context, tx *sql.Tx, proc *migrator.Procedure) error {
	slog.Info("Deploying procedure or function", "name", proc.Name, "path", proc.Path)

	if proc.Contents == "" {
		return nil
	}

	if _, err := tx.ExecContext(ctx, proc.Contents); err != nil {
		return &ExecutionError{Type: Procedure, Name: proc.Name, SQL: proc.Contents, Err: err}
	}

	return nil
}

func rollback(tx *sql.Tx, cause error) error {
	slog.Debug("Rolling back deployment transaction", "err", cause)

	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		merr := multierror.Append(cause, errors.Wrap(err, "failed to roll back deployment transaction"))
		merr.ErrorFormat = singleLine
		return merr
	}

	return cause
}

// singleLine keeps combined errors on one line for the CLI error output.
func singleLine(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return strings.Join(msgs, "; ")
}

// writeAuditCopy writes contents to path unless the file already exists. It
// returns true if the file was created.
func writeAuditCopy(path, contents string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, consts.ModeFile)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			slog.Debug("Audit copy already exists", "path", path)
			return false, nil
		}
		return false, err
	}

	if _, err := f.WriteString(contents); err != nil {
		_ = f.Close()
		return false, err
	}

	return true, f.Close()
}
