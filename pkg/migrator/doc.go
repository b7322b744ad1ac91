// Package migrator decides what a run has to deploy.
//
// Changesets parsed from the source trees are compared against the migration
// history. For every changeset:
//
//   - If history has no record for its (type, name) it is pending and will be
//     deployed.
//   - If history has a record with the same hash it was already deployed and is
//     skipped.
//   - If history has a record with a different hash the changeset was edited
//     after deployment. Validation fails with a TamperedError and nothing is
//     deployed.
//
// Pending changesets keep the discovery order of their set.
//
// NewPlan runs the complete pre-deployment phase for a run: it loads the table
// tree and validates it, then loads the changeset tree and validates it, and
// finally reads the procedure files. Every parse or validation failure happens
// here, before the database is modified.
//
// Example usage:
//
//	reader, _ := textfile.New()
//	store := history.NewStore(db, history.DefaultTable())
//
//	plan, err := migrator.NewPlan(ctx, migrator.Sources{
//		Tables:     os.DirFS("db/tables"),
//		Changesets: os.DirFS("db/changesets"),
//		Procedures: os.DirFS("db/procedures"),
//	}, reader, store)
//	if err != nil {
//		var tampered *migrator.TamperedError
//		if errors.As(err, &tampered) {
//			log.Fatalf("%s was edited after deployment", tampered.Name)
//		}
//		log.Fatal(err)
//	}
//
//	fmt.Printf("%d tables and %d changesets to deploy\n", plan.Tables.Len(), plan.Changesets.Len())
package migrator
