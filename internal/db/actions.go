package db

import (
	"fmt"
	"strings"

	dbpkg "github.com/dtnitsch/leakdiff/pkg/db"
	"github.com/urfave/cli/v2"
)

// RunsAction lists the most recent collect runs.
func RunsAction(c *cli.Context) error {
	database, err := openLedger(c)
	if err != nil {
		return err
	}
	defer database.Close()

	limit := c.Int("limit")
	runs, err := database.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-6s %-26s %-8s %-8s %-8s %-24s %-24s\n",
		"ID", "Started", "Success", "Failed", "Skipped", "Categories", "Sources")
	fmt.Println(strings.Repeat("-", 110))

	for _, r := range runs {
		fmt.Printf("%-6d %-26s %-8d %-8d %-8d %-24s %-24s\n",
			r.RunID,
			r.StartedAt,
			r.SuccessCount,
			r.FailedCount,
			r.SkippedCount,
			strings.Join(r.Categories, ","),
			strings.Join(r.Sources, ","),
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'leakdiff run <id>' to see details\n")

	return nil
}

// RunAction shows one run and the outcome of every source in it.
func RunAction(c *cli.Context) error {
	database, err := openLedger(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}

	run, err := database.GetRunByID(runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	results, err := database.GetRunResults(runID)
	if err != nil {
		return fmt.Errorf("failed to get run results: %w", err)
	}

	fmt.Printf("Run %d\n", run.RunID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Started:     %s\n", run.StartedAt)
	fmt.Printf("Categories:  %s\n", strings.Join(run.Categories, ", "))
	fmt.Printf("Sources:     %s\n", strings.Join(run.Sources, ", "))
	fmt.Printf("Snapshots:   %d success, %d failed, %d skipped\n",
		run.SuccessCount, run.FailedCount, run.SkippedCount)
	if run.ManifestPath != "" {
		fmt.Printf("Manifest:    %s\n", run.ManifestPath)
	}

	if len(results) > 0 {
		fmt.Printf("\nResults (%d):\n", len(results))
		fmt.Println(strings.Repeat("-", 60))
		for i, r := range results {
			fmt.Printf("%2d. [%s] %s / %s\n", i+1, r.Status, r.Category, r.Source)
			switch r.Status {
			case dbpkg.StatusSuccess:
				fmt.Printf("    Fields: %d | File: %s\n", r.FieldCount, r.FilePath)
			case dbpkg.StatusSkipped:
				fmt.Printf("    Reason: %s\n", r.ErrorMessage)
			default:
				fmt.Printf("    Error: %s\n", r.ErrorMessage)
				if r.FilePath != "" {
					fmt.Printf("    File: %s\n", r.FilePath)
				}
			}
		}
	}

	fmt.Printf("\nTip: Use 'leakdiff diff --category <name>' to compare the latest snapshots\n")

	return nil
}
