// Package cmd provides CLI commands for the changekeeper tool.
//
// Commands are built with urfave/cli/v3 and provided to the application
// through the fx group "commands". Run assembles them into the root command
// and executes it from an fx start hook.
//
// # Available Commands
//
//   - init: Create changekeeper.yaml and the source folders
//   - migrate: Deploy pending tables, changesets and procedures
//   - status: List pending, deployed and tampered changesets
//   - validate: Parse the source folders without a database
//
// # Global Options
//
//   - --config, -c: Configuration file (defaults to changekeeper.yaml)
//   - --debug: Enable debug logging
//   - --help, -h: Display command help
//   - --version: Display version information
//
// # Example Usage
//
//	changekeeper init --url postgres://app@localhost:5432/app
//	changekeeper validate
//	changekeeper migrate --dry-run
//	changekeeper migrate --url postgres://app@db:5432/app
//	changekeeper status --verbose
package cmd
