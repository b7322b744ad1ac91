// Package changeset turns SQL source trees into named, content-hashed changesets.
//
// Two kinds of source trees are understood:
//
//   - Table trees, where every .sql file is a single changeset. The name is the
//     file's path relative to the tree root, with the extension removed and path
//     separators replaced by underscores (sales/orders.sql becomes sales_orders).
//   - Changeset trees, where every .sql file holds one or more changesets, each
//     introduced by a marker line of the form "--changeset <name>".
//
// A multi-changeset file looks like this:
//
//	--changeset add_users_email
//	ALTER TABLE users ADD COLUMN email text;
//
//	--changeset backfill_users_email
//	UPDATE users SET email = name || '@example.com' WHERE email IS NULL;
//
// Blank lines before the first marker are ignored. Any other content before the
// first marker is rejected with a MalformedFileError, an empty marker name with
// a MissingNameError, and a name that was already seen in the same run (in the
// same file or another one) with a DuplicateNameError.
//
// Contents are trimmed and hashed with MD5 when a changeset is created. The hash
// is used for change detection against the migration history; it is not a
// security boundary.
//
// Basic usage:
//
//	reader, _ := textfile.New()
//
//	tables, err := changeset.LoadTables(os.DirFS("db/tables"), reader)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	changesets, err := changeset.LoadChangesets(os.DirFS("db/changesets"), reader)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, c := range changesets.All() {
//		fmt.Printf("%s %s (%s:%d)\n", c.Name, c.Hash, c.Source, c.Line)
//	}
package changeset
