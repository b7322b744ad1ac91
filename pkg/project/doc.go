// Package project scaffolds a changekeeper project.
//
// Initialize is idempotent. It only creates what is missing and leaves existing
// files alone, so it can be run against a directory that already holds some of
// the layout:
//
//	project-root/
//	├── changekeeper.yaml   # Configuration
//	├── tables/             # One table create statement per file
//	├── changesets/         # Files with --changeset blocks
//	├── procedures/         # Procedures and functions, run every time
//	└── deployed/           # Audit copies written by migrate
//
// Example:
//
//	proj := project.New("/path/to/project")
//	if err := proj.Initialize(project.InitOptions{}); err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(proj.Config().Sources.Tables)
package project
