// Package history persists and queries the migration history table.
//
// Every deployed changeset is recorded as one row keyed by (type, name) along
// with the hash of its contents at deployment time. The table lives in
// changeset_migrate.migration_history unless configured otherwise, and is
// created on demand by Bootstrap:
//
//	if err := history.Bootstrap(ctx, db, history.DefaultTable()); err != nil {
//		return err
//	}
//
// A Store holds an in-memory snapshot of the table. The snapshot is loaded once
// per run; records inserted during a run are written through the caller's
// transaction with Insert and only become part of the snapshot when the caller
// passes them to Remember after committing:
//
//	store := history.NewStore(db, history.DefaultTable())
//	if err := store.Load(ctx); err != nil {
//		return err
//	}
//
//	tx, _ := db.BeginTx(ctx, nil)
//	rec := &history.Record{Name: "users", Type: changeset.Table, Hash: hash, RunID: runID}
//	if err := store.Insert(ctx, tx, rec); err != nil {
//		return err
//	}
//
//	if err := tx.Commit(); err != nil {
//		return err
//	}
//
//	store.Remember(rec)
package history
