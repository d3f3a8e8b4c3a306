package main

import (
	"fmt"
	"os"

	"github.com/dtnitsch/leakdiff/internal/collect"
	"github.com/dtnitsch/leakdiff/internal/db"
	"github.com/dtnitsch/leakdiff/internal/diff"
	"github.com/dtnitsch/leakdiff/internal/probe"
	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/help"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "leakdiff",
		Usage:   "Collect and compare what diagnostics sites see through a regular and an anonymizing browser",
		Version: models.ScriptVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file (default: " + models.DefaultConfigFile + " when present)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Root directory for snapshots, manifests and the run ledger",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "json",
				Usage: "Log format on stderr (json or text)",
			},
		},
		Action: collect.CollectAction,
		Commands: []*cli.Command{
			{
				Name:   "collect",
				Usage:  "Fetch every category through every source and write snapshots",
				Action: collect.CollectAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "category",
						Value: "all",
						Usage: "Category to collect (ip, javascript, ipinfo or all)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Print the run summary as json or yaml",
					},
				},
			},
			{
				Name:   "probe",
				Usage:  "Print the direct and anonymized IP address and region",
				Action: probe.ProbeAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "browser",
						Usage: "Use the configured browsers instead of plain HTTP",
					},
				},
			},
			{
				Name:   "smoke",
				Usage:  "Open a page in every configured browser and print its title",
				Action: probe.SmokeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Value: probe.SmokeURL,
						Usage: "Page to open",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Only test the named source",
					},
				},
			},
			{
				Name:      "diff",
				Usage:     "Compare the latest snapshots of two sources field by field",
				ArgsUsage: "[sourceA sourceB]",
				Action:    diff.DiffAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "category",
						Value: "ip",
						Usage: "Category to compare",
					},
					&cli.BoolFlag{
						Name:  "only-diff",
						Usage: "Hide fields whose values are equal",
					},
				},
			},
			{
				Name:   "runs",
				Usage:  "List recent collect runs",
				Action: db.RunsAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Maximum number of runs to show (0 for all)",
					},
				},
			},
			{
				Name:      "run",
				Usage:     "Show one run (default: latest)",
				ArgsUsage: "[run-id]",
				Action:    db.RunAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print a YAML quick reference",
				Action: func(c *cli.Context) error {
					fmt.Print(help.QuickstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
