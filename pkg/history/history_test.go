package history_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/pseudomuto/changekeeper/pkg/history"
	"github.com/stretchr/testify/require"
)

const selectHistory = `SELECT name, type, hash, deployed_at, run_id FROM "changeset_migrate"."migration_history" ORDER BY deployed_at, type, name`

var historyColumns = []string{"name", "type", "hash", "deployed_at", "run_id"}

func TestTable(t *testing.T) {
	require.Equal(t, `"changeset_migrate"."migration_history"`, history.DefaultTable().String())
	require.Equal(t, `"ops"."My ""History"""`, history.Table{Schema: "ops", Name: `My "History"`}.String())
}

func TestBootstrap(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	table := history.Table{Schema: "audit", Name: "changes"}

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "audit";`) +
		`(?s).*` + regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "audit"."changes" (`) +
		`.*` + regexp.QuoteMeta(`PRIMARY KEY (type, name)`) +
		`.*` + regexp.QuoteMeta(`ALTER TABLE "audit"."changes" ADD COLUMN IF NOT EXISTS run_id uuid;`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, history.Bootstrap(context.Background(), db, table))
	require.NoError(t, mock.ExpectationsWereMet())

	t.Run("failure", func(t *testing.T) {
		mock.ExpectExec("CREATE SCHEMA").WillReturnError(errors.New("permission denied"))

		err := history.Bootstrap(context.Background(), db, table)
		require.Error(t, err)
		require.Contains(t, err.Error(), `failed to bootstrap migration history table "audit"."changes"`)
		require.Contains(t, err.Error(), "permission denied")
	})
}

func TestStore_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	runID := uuid.New()
	deployedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectHistory)).WillReturnRows(
		sqlmock.NewRows(historyColumns).
			AddRow("users", "tables", "902e76f5e88c446209fe21a40627c2d8", deployedAt, runID.String()).
			AddRow("users", "changesets", "71568061b2970a4b7c5160fe75356e10", deployedAt, nil),
	)

	store := history.NewStore(db, history.DefaultTable())
	require.False(t, store.Loaded())
	require.NoError(t, store.Load(context.Background()))
	require.True(t, store.Loaded())

	// a second load must not query again
	require.NoError(t, store.Load(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, 2, store.Count())
	require.True(t, store.Contains(changeset.Table, "users"))
	require.True(t, store.Contains(changeset.Incremental, "users"))
	require.False(t, store.Contains(changeset.Table, "orders"))

	hash, ok := store.HashOf(changeset.Table, "users")
	require.True(t, ok)
	require.Equal(t, "902e76f5e88c446209fe21a40627c2d8", hash)

	_, ok = store.HashOf(changeset.Incremental, "orders")
	require.False(t, ok)

	records := store.Records()
	require.Len(t, records, 2)
	require.Equal(t, runID, records[0].RunID)
	require.Equal(t, deployedAt, records[0].DeployedAt)
	require.Equal(t, uuid.Nil, records[1].RunID)
}

func TestStore_LoadErrors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

		store := history.NewStore(db, history.DefaultTable())
		err = store.Load(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to load migration history")
		require.False(t, store.Loaded())
	})

	t.Run("scan", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows(historyColumns).AddRow("users", "tables", "abc", "not a time", nil),
		)

		err = history.NewStore(db, history.DefaultTable()).Load(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to scan migration history row")
	})
}

func TestStore_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(historyColumns))

	store := history.NewStore(db, history.DefaultTable())
	require.NoError(t, store.Load(context.Background()))

	runID := uuid.New()
	rec := &history.Record{
		Name:  "users",
		Type:  changeset.Table,
		Hash:  "902e76f5e88c446209fe21a40627c2d8",
		RunID: runID,
	}

	insert := regexp.QuoteMeta(`INSERT INTO "changeset_migrate"."migration_history" (name, type, hash, run_id) VALUES ($1, $2, $3, $4)`)

	mock.ExpectBegin()
	mock.ExpectExec(insert).
		WithArgs("users", "tables", "902e76f5e88c446209fe21a40627c2d8", runID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), tx, rec))

	// inserted rows are invisible until remembered
	require.False(t, store.Contains(changeset.Table, "users"))
	require.NoError(t, tx.Commit())

	store.Remember(rec)
	require.True(t, store.Contains(changeset.Table, "users"))
	require.Equal(t, 1, store.Count())

	// remembering the same changeset twice keeps a single record
	store.Remember(rec)
	require.Equal(t, 1, store.Count())

	t.Run("without run id", func(t *testing.T) {
		mock.ExpectExec(insert).
			WithArgs("orders", "tables", "abc", nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec := &history.Record{Name: "orders", Type: changeset.Table, Hash: "abc"}
		require.NoError(t, store.Insert(context.Background(), db, rec))
	})

	t.Run("failure", func(t *testing.T) {
		mock.ExpectExec(insert).WillReturnError(errors.New("duplicate key value"))

		rec := &history.Record{Name: "orders", Type: changeset.Table, Hash: "abc"}
		err := store.Insert(context.Background(), db, rec)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to record tables orders in migration history")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
