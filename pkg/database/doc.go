// Package database connects changekeeper to PostgreSQL.
//
// Connections use the pgx driver through database/sql, so the rest of the
// module only deals with *sql.DB and *sql.Tx. Statements without arguments are
// sent over the simple query protocol, which allows a changeset or procedure to
// contain several statements and leaves characters such as ':' and '?'
// untouched.
//
// Example usage:
//
//	client, err := database.Open(ctx, "postgres://app@localhost:5432/app", database.ClientOptions{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	version, err := client.ServerVersion(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Connected to PostgreSQL %s\n", version)
//
// Describe turns driver errors into messages that point at the failing line of
// the statement that was sent:
//
//	if _, err := tx.ExecContext(ctx, sql); err != nil {
//		fmt.Println(database.Describe(err, sql))
//		// syntax error at or near "TABL" (SQLSTATE 42601) on line 3, column 8
//	}
package database
