// Package executor deploys a migrator.Plan to PostgreSQL.
//
// The whole plan runs in one transaction, in a fixed order:
//
//  1. Pending table changesets, in discovery order.
//  2. Pending incremental changesets, in discovery order.
//  3. Every procedure file, unconditionally.
//
// After each changeset executes successfully its history record is inserted in
// the same transaction. The first failure rolls the transaction back and
// Execute returns an ExecutionError naming the failing changeset or procedure
// and the SQL it sent, so a run either deploys everything or nothing.
//
// Once the transaction commits the records are added to the history snapshot
// and an audit copy of each deployed changeset is written to
// <target>/tables/<name>.sql or <target>/changesets/<name>.sql. Existing audit
// copies are never overwritten.
//
// Example usage:
//
//	exec := executor.New(executor.Config{
//		DB:           client.DB(),
//		History:      store,
//		TargetFolder: "deployed",
//	})
//
//	result, err := exec.Execute(ctx, plan)
//	if err != nil {
//		var execErr *executor.ExecutionError
//		if errors.As(err, &execErr) {
//			fmt.Println("failed SQL:", execErr.SQL)
//		}
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Deployed %d changesets in %v\n", result.Deployed(), result.ExecutionTime)
package executor
