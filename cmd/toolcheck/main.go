package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "toolcheck",
		Usage: "inspect the compilers and interpreters the execution service depends on",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "languages",
				Usage:   "TOML file overriding the built-in language table",
				Sources: cli.EnvVars("LANGUAGES_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "print supported languages, aliases and commands",
				Action: listAction,
			},
			{
				Name:   "check",
				Usage:  "verify every required tool is on PATH",
				Action: checkAction,
			},
			{
				Name:  "smoke",
				Usage: "run a tiny echo program per language through the execution pipeline",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "work-dir",
						Usage: "directory for transient job files",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "per-phase execution timeout",
						Value: defaultSmokeTimeout,
					},
				},
				Action: smokeAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
