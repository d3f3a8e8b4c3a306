package db

import (
	"fmt"

	"github.com/dtnitsch/leakdiff/internal/common"
	dbpkg "github.com/dtnitsch/leakdiff/pkg/db"
	"github.com/urfave/cli/v2"
)

func openLedger(c *cli.Context) (*dbpkg.DB, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, err
	}
	database, err := dbpkg.Open(cfg.ResolvedDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// GetRunIDOrLatest returns the run ID from args, or the latest run if not provided
func GetRunIDOrLatest(c *cli.Context, database *dbpkg.DB) (int64, error) {
	if c.NArg() == 0 {
		runID, err := database.GetLatestRunID()
		if err != nil {
			return 0, fmt.Errorf("%w. Run 'leakdiff collect' first", err)
		}
		return runID, nil
	}

	var runID int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &runID); err != nil {
		return 0, fmt.Errorf("invalid run ID: %s", c.Args().First())
	}
	return runID, nil
}
