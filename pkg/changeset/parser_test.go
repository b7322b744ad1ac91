package changeset_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/changeset"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestParseFile_GoldenFiles(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("testdata", "*.in.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "No *.in.sql files found in testdata directory")

	for _, inputFile := range matches {
		// "basic.in.sql" -> "basic.golden"
		basename := filepath.Base(inputFile)
		outputName := strings.TrimSuffix(basename, ".in.sql") + ".golden"

		t.Run(outputName, func(t *testing.T) {
			text, err := os.ReadFile(inputFile)
			require.NoError(t, err)

			set := changeset.NewSet(changeset.Incremental)
			require.NoError(t, changeset.ParseFile(basename, string(text), set))

			var buf bytes.Buffer
			for _, c := range set.All() {
				fmt.Fprintf(&buf, "-- %s %s %s:%d\n%s\n\n", c.Name, c.Hash, c.Source, c.Line, c.Contents)
			}

			golden.Assert(t, buf.String(), outputName)
		})
	}
}

func TestParseFile(t *testing.T) {
	t.Run("blank file", func(t *testing.T) {
		for _, text := range []string{"", "\n", "  \n\t\n", "\r\n\r\n  "} {
			set := changeset.NewSet(changeset.Incremental)
			require.NoError(t, changeset.ParseFile("blank.sql", text, set))
			require.Zero(t, set.Len())
		}
	})

	t.Run("marker at end of file", func(t *testing.T) {
		set := changeset.NewSet(changeset.Incremental)
		require.NoError(t, changeset.ParseFile("eof.sql", "--changeset last", set))

		c, ok := set.Get("last")
		require.True(t, ok)
		require.Empty(t, c.Contents)
	})

	t.Run("windows line endings", func(t *testing.T) {
		set := changeset.NewSet(changeset.Incremental)
		text := "--changeset one\r\nSELECT 1;\r\n\r\n--changeset two\r\nSELECT 2;\r\n"
		require.NoError(t, changeset.ParseFile("crlf.sql", text, set))
		require.Equal(t, []string{"one", "two"}, set.Names())

		c, _ := set.Get("two")
		require.Equal(t, "SELECT 2;", c.Contents)
		require.Equal(t, 4, c.Line)
	})

	t.Run("content before first marker", func(t *testing.T) {
		set := changeset.NewSet(changeset.Incremental)
		err := changeset.ParseFile("bad.sql", "\n\nSELECT 1;\n--changeset one\nSELECT 2;\n", set)
		require.Error(t, err)

		var malformed *changeset.MalformedFileError
		require.True(t, errors.As(err, &malformed))
		require.Equal(t, "bad.sql", malformed.Path)
		require.Equal(t, 3, malformed.Line)
		require.Contains(t, err.Error(), "file 'bad.sql' does not start with a changeset")
	})

	t.Run("missing name", func(t *testing.T) {
		set := changeset.NewSet(changeset.Incremental)
		err := changeset.ParseFile("noname.sql", "--changeset one\nSELECT 1;\n--changeset   \nSELECT 2;\n", set)
		require.Error(t, err)

		var missing *changeset.MissingNameError
		require.True(t, errors.As(err, &missing))
		require.Equal(t, 3, missing.Line)
		require.EqualError(t, err, "changeset name missing in noname.sql:3")
	})

	t.Run("name that is not a file name", func(t *testing.T) {
		for _, name := range []string{"../../escaped", "feature/add-email", `feature\add-email`} {
			set := changeset.NewSet(changeset.Incremental)
			err := changeset.ParseFile("unsafe.sql", "--changeset seed\nSELECT 1;\n--changeset "+name+"\nSELECT 2;\n", set)

			var invalid *changeset.InvalidNameError
			require.True(t, errors.As(err, &invalid), name)
			require.Equal(t, name, invalid.Name)
			require.Equal(t, "unsafe.sql", invalid.Path)
			require.Equal(t, 3, invalid.Line)
		}
	})

	t.Run("name too long for the history", func(t *testing.T) {
		set := changeset.NewSet(changeset.Incremental)
		err := changeset.ParseFile("long.sql", "--changeset "+strings.Repeat("x", 300)+"\nSELECT 1;\n", set)

		var invalid *changeset.InvalidNameError
		require.True(t, errors.As(err, &invalid))
		require.Equal(t, "longer than 251 bytes", invalid.Reason)
	})

	t.Run("duplicate name in one file", func(t *testing.T) {
		set := changeset.NewSet(changeset.Incremental)
		err := changeset.ParseFile("dup.sql", "--changeset one\nSELECT 1;\n--changeset one\nSELECT 2;\n", set)
		require.Error(t, err)

		var dup *changeset.DuplicateNameError
		require.True(t, errors.As(err, &dup))
		require.EqualError(t, err, "changeset name 'one' occurs more than once (dup.sql:3, previously dup.sql:1)")
	})

	t.Run("duplicate name across files", func(t *testing.T) {
		set := changeset.NewSet(changeset.Incremental)
		require.NoError(t, changeset.ParseFile("001.sql", "--changeset one\nSELECT 1;\n", set))

		err := changeset.ParseFile("002.sql", "--changeset two\nSELECT 2;\n--changeset one\nSELECT 3;\n", set)
		require.Error(t, err)

		var dup *changeset.DuplicateNameError
		require.True(t, errors.As(err, &dup))
		require.Equal(t, "002.sql:3", dup.Location)
		require.Equal(t, "001.sql:1", dup.Previous)
	})

	t.Run("table set", func(t *testing.T) {
		err := changeset.ParseFile("001.sql", "--changeset one\n", changeset.NewSet(changeset.Table))
		require.Error(t, err)
	})
}
