package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/project"
	"github.com/urfave/cli/v3"
)

// initCmd creates the init command, which scaffolds a project in the current
// directory. Existing files and folders are left untouched.
//
// Example usage:
//
//	changekeeper init
//	changekeeper init --url postgres://app@localhost:5432/app
func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new changekeeper project",
		Description: `Create changekeeper.yaml and the tables, changesets, procedures and
deployed folders in the current directory.

Running init in an existing project only adds what is missing.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "Connection string written to a new changekeeper.yaml",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return errors.Wrap(err, "failed to get current working directory")
			}

			return runInit(cmd, dir)
		},
	}
}

func runInit(cmd *cli.Command, dir string) error {
	proj := project.New(dir)
	if err := proj.Initialize(project.InitOptions{ConnectionString: cmd.String("url")}); err != nil {
		return err
	}

	cfg := proj.Config()
	fmt.Fprintf(output(cmd), "Initialized changekeeper project in %s\n", proj.Root())
	fmt.Fprintf(output(cmd), "  tables:     %s\n", cfg.Sources.Tables)
	fmt.Fprintf(output(cmd), "  changesets: %s\n", cfg.Sources.Changesets)
	fmt.Fprintf(output(cmd), "  procedures: %s\n", cfg.Sources.Procedures)
	fmt.Fprintf(output(cmd), "  deployed:   %s\n", cfg.TargetFolder)
	return nil
}
