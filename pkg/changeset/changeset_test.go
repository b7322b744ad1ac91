package changeset_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := changeset.New("users", changeset.Table, "\n\n  CREATE TABLE users (id INT);\n\t\n")

	require.Equal(t, "users", c.Name)
	require.Equal(t, changeset.Table, c.Type)
	require.Equal(t, "CREATE TABLE users (id INT);", c.Contents)
	require.Equal(t, "902e76f5e88c446209fe21a40627c2d8", c.Hash)
}

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		expected string
	}{
		{name: "empty", contents: "", expected: "d41d8cd98f00b204e9800998ecf8427e"},
		{name: "select", contents: "SELECT 1;", expected: "71568061b2970a4b7c5160fe75356e10"},
		{name: "table", contents: "CREATE TABLE users (id INT);", expected: "902e76f5e88c446209fe21a40627c2d8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, changeset.Hash(tt.contents))
		})
	}
}

func TestChangeset_AuditPath(t *testing.T) {
	table := changeset.New("users", changeset.Table, "SELECT 1;")
	require.Equal(t, filepath.Join("deployed", "tables", "users.sql"), table.AuditPath("deployed"))

	inc := changeset.New("add_email", changeset.Incremental, "SELECT 1;")
	require.Equal(t, filepath.Join("out", "changesets", "add_email.sql"), inc.AuditPath("out"))
}

func TestSet(t *testing.T) {
	set := changeset.NewSet(changeset.Incremental)
	require.Equal(t, changeset.Incremental, set.Type())
	require.Zero(t, set.Len())

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, set.Add(changeset.New(name, changeset.Incremental, "SELECT 1;")))
	}

	require.Equal(t, 3, set.Len())
	require.Equal(t, []string{"b", "a", "c"}, set.Names())
	require.True(t, set.Contains("a"))
	require.False(t, set.Contains("d"))

	c, ok := set.Get("c")
	require.True(t, ok)
	require.Equal(t, "c", c.Name)

	_, ok = set.Get("missing")
	require.False(t, ok)

	t.Run("all returns a copy", func(t *testing.T) {
		all := set.All()
		all[0] = nil
		require.NotNil(t, set.All()[0])
	})

	t.Run("duplicate name", func(t *testing.T) {
		dup := changeset.New("a", changeset.Incremental, "SELECT 2;")
		dup.Source = "002.sql"
		dup.Line = 4

		err := set.Add(dup)
		require.Error(t, err)

		var dupErr *changeset.DuplicateNameError
		require.True(t, errors.As(err, &dupErr))
		require.Equal(t, "a", dupErr.Name)
		require.Equal(t, "002.sql:4", dupErr.Location)
		require.Equal(t, 3, set.Len())
	})

	t.Run("type mismatch", func(t *testing.T) {
		err := set.Add(changeset.New("users", changeset.Table, "SELECT 1;"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "cannot add tables changeset users")
	})
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name   string
		reason string
	}{
		{name: "add-email"},
		{name: "v1.2..3"},
		{name: "ünïcode"},
		{name: strings.Repeat("a", changeset.MaxNameLength)},
		{name: ".", reason: "not a file name"},
		{name: "..", reason: "not a file name"},
		{name: "feature/add-email", reason: `must not contain "/", "\" or NUL`},
		{name: "../../escaped", reason: `must not contain "/", "\" or NUL`},
		{name: `feature\add-email`, reason: `must not contain "/", "\" or NUL`},
		{name: "nul\x00byte", reason: `must not contain "/", "\" or NUL`},
		{name: strings.Repeat("a", changeset.MaxNameLength+1), reason: "longer than 251 bytes"},
		{name: strings.Repeat("é", 126), reason: "longer than 251 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := changeset.ValidateName(tt.name)
			if tt.reason == "" {
				require.NoError(t, err)
				return
			}

			var invalid *changeset.InvalidNameError
			require.True(t, errors.As(err, &invalid))
			require.Equal(t, tt.reason, invalid.Reason)
		})
	}
}

func TestSet_Add_InvalidName(t *testing.T) {
	set := changeset.NewSet(changeset.Incremental)

	c := changeset.New("feature/add-email", changeset.Incremental, "SELECT 1;")
	c.Source, c.Line = "001.sql", 7

	err := set.Add(c)
	require.EqualError(t, err, `invalid changeset name 'feature/add-email' in 001.sql:7: must not contain "/", "\" or NUL`)
	require.Zero(t, set.Len())
}
