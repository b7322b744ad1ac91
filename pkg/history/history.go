package history

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/pseudomuto/changekeeper/pkg/consts"
)

var (
	//go:embed bootstrap.sql
	bootstrapSQL string

	bootstrapTemplate = template.Must(template.New("bootstrap").Parse(bootstrapSQL))
)

type (
	// Querier reads from the database. Both *sql.DB and *sql.Tx satisfy it.
	Querier interface {
		QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	}

	// Execer writes to the database. Both *sql.DB and *sql.Tx satisfy it.
	Execer interface {
		ExecContext(context.Context, string, ...any) (sql.Result, error)
	}

	// Table locates the migration history table.
	Table struct {
		Schema string
		Name   string
	}

	// Record is one deployed changeset.
	Record struct {
		// Name of the changeset.
		Name string

		// Type of the changeset. Names are unique per type.
		Type changeset.Type

		// Hash of the changeset contents when it was deployed.
		Hash string

		// DeployedAt is set by the database when the record is inserted.
		DeployedAt time.Time

		// RunID identifies the run that deployed the changeset. It is the zero
		// UUID for records written by tools that did not track runs.
		RunID uuid.UUID
	}

	// Store is a load-once snapshot of the migration history.
	Store struct {
		db      Querier
		table   Table
		loaded  bool
		records []*Record
		index   map[key]*Record
	}

	key struct {
		typ  changeset.Type
		name string
	}
)

// DefaultTable returns changeset_migrate.migration_history.
func DefaultTable() Table {
	return Table{Schema: consts.DefaultHistorySchema, Name: consts.DefaultHistoryTable}
}

// String returns the quoted, schema qualified table name.
//
// Example:
//
//	history.Table{Schema: "ops", Name: "History"}.String() // "ops"."History"
func (t Table) String() string {
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

// Bootstrap creates the history schema and table if they are missing. It is
// safe to run on every invocation.
func Bootstrap(ctx context.Context, db Execer, table Table) error {
	var buf bytes.Buffer
	err := bootstrapTemplate.Execute(&buf, map[string]string{
		"Schema": pgx.Identifier{table.Schema}.Sanitize(),
		"Table":  table.String(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to render bootstrap SQL")
	}

	slog.Debug("Bootstrapping migration history", "table", table.String())
	if _, err := db.ExecContext(ctx, buf.String()); err != nil {
		return errors.Wrapf(err, "failed to bootstrap migration history table %s", table)
	}

	return nil
}

// NewStore creates an empty, unloaded Store reading from table.
func NewStore(db Querier, table Table) *Store {
	return &Store{
		db:    db,
		table: table,
		index: make(map[key]*Record),
	}
}

// Table returns the table the store reads from.
func (s *Store) Table() Table {
	return s.table
}

// Load fetches every history record. Only the first call queries the database;
// later calls keep the existing snapshot.
func (s *Store) Load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	query := fmt.Sprintf(
		"SELECT name, type, hash, deployed_at, run_id FROM %s ORDER BY deployed_at, type, name",
		s.table,
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, "failed to load migration history")
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		var (
			rec   Record
			typ   string
			runID uuid.NullUUID
		)

		if err := rows.Scan(&rec.Name, &typ, &rec.Hash, &rec.DeployedAt, &runID); err != nil {
			return errors.Wrap(err, "failed to scan migration history row")
		}

		rec.Type = changeset.Type(typ)
		if runID.Valid {
			rec.RunID = runID.UUID
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "failed to iterate migration history rows")
	}

	s.loaded = true
	s.Remember(records...)

	slog.Debug("Loaded migration history", "table", s.table.String(), "records", len(records))
	return nil
}

// Loaded reports whether Load has completed successfully.
func (s *Store) Loaded() bool {
	return s.loaded
}

// Contains returns true if a record exists for the changeset.
func (s *Store) Contains(typ changeset.Type, name string) bool {
	_, ok := s.index[key{typ: typ, name: name}]
	return ok
}

// HashOf returns the recorded hash for the changeset.
func (s *Store) HashOf(typ changeset.Type, name string) (string, bool) {
	rec, ok := s.index[key{typ: typ, name: name}]
	if !ok {
		return "", false
	}
	return rec.Hash, true
}

// Records returns the snapshot in load order followed by remembered records.
func (s *Store) Records() []*Record {
	records := make([]*Record, len(s.records))
	copy(records, s.records)
	return records
}

// Count returns the number of records in the snapshot.
func (s *Store) Count() int {
	return len(s.records)
}

// Insert writes rec using db, which is normally the deployment transaction. The
// snapshot is not modified; see Remember.
func (s *Store) Insert(ctx context.Context, db Execer, rec *Record) error {
	query := fmt.Sprintf("INSERT INTO %s (name, type, hash, run_id) VALUES ($1, $2, $3, $4)", s.table)

	runID := uuid.NullUUID{UUID: rec.RunID, Valid: rec.RunID != uuid.Nil}
	if _, err := db.ExecContext(ctx, query, rec.Name, string(rec.Type), rec.Hash, runID); err != nil {
		return errors.Wrapf(err, "failed to record %s %s in migration history", rec.Type, rec.Name)
	}

	return nil
}

// Remember adds committed records to the snapshot. Records already present for
// the same (type, name) are ignored.
func (s *Store) Remember(records ...*Record) {
	for _, rec := range records {
		k := key{typ: rec.Type, name: rec.Name}
		if _, exists := s.index[k]; exists {
			continue
		}

		s.index[k] = rec
		s.records = append(s.records, rec)
	}
}
