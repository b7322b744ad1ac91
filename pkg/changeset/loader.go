package changeset

import (
	"io/fs"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/consts"
	"github.com/pseudomuto/changekeeper/pkg/textfile"
)

// LoadTables reads every .sql file below the root of fsys as a single table
// changeset. Files are visited in lexical order, which is also the order of the
// returned set. A missing root yields an empty set.
//
// Example:
//
//	reader, _ := textfile.New()
//	tables, err := changeset.LoadTables(os.DirFS("db/tables"), reader)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	c, _ := tables.Get("sales_orders") // from db/tables/sales/orders.sql
func LoadTables(fsys fs.FS, reader *textfile.Reader) (*Set, error) {
	set := NewSet(Table)

	err := WalkSQL(fsys, func(path string) error {
		text, err := reader.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		c := New(TableName(path), Table, text)
		c.Source = path
		c.Line = 1

		return set.Add(c)
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded table changesets", "count", set.Len())
	return set, nil
}

// LoadChangesets parses every .sql file below the root of fsys as a
// multi-changeset file. Files are visited in lexical order and changesets keep
// the order they are declared in. A missing root yields an empty set.
func LoadChangesets(fsys fs.FS, reader *textfile.Reader) (*Set, error) {
	set := NewSet(Incremental)

	err := WalkSQL(fsys, func(path string) error {
		text, err := reader.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		return ParseFile(path, text, set)
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded incremental changesets", "count", set.Len())
	return set, nil
}

// TableName derives a table changeset name from a slash separated path relative
// to the tables root.
//
// Examples:
//
//	changeset.TableName("users.sql")        // users
//	changeset.TableName("sales/orders.sql") // sales_orders
func TableName(path string) string {
	if i := strings.LastIndex(path, "."); i > 0 {
		path = path[:i]
	}

	return strings.ReplaceAll(path, "/", "_")
}

// WalkSQL calls fn with the path of every .sql file below the root of fsys, in
// lexical order. A missing root is not an error.
func WalkSQL(fsys fs.FS, fn func(path string) error) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == "." && errors.Is(err, fs.ErrNotExist) {
				slog.Debug("Source folder does not exist, skipping")
				return nil
			}

			return errors.Wrapf(err, "failed to walk %s", path)
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), consts.Extension) {
			return nil
		}

		return fn(path)
	})
}
