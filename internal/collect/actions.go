package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/dtnitsch/leakdiff/internal/common"
	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/artifact_manager"
	"github.com/dtnitsch/leakdiff/pkg/db"
	"github.com/dtnitsch/leakdiff/pkg/manifest"
	"github.com/dtnitsch/leakdiff/pkg/pipeline"
	"github.com/dtnitsch/leakdiff/pkg/sink"
	"github.com/dtnitsch/leakdiff/pkg/storage"
	"github.com/urfave/cli/v2"
)

// CollectAction runs every selected category through every source. Per-source
// failures end up in the snapshots and do not change the exit code.
func CollectAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	startTime := time.Now()

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	targets, err := SelectTargets(cfg, c.String("category"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}
	format := c.String("format")
	if format != "" {
		if err := ValidateFormat(format); err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "dir", cfg.DataDir, "error", err)
		return cli.Exit(fmt.Sprintf("Error: cannot create data directory %s: %v", cfg.DataDir, err), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	sources, err := common.BuildSources(cfg, logger)
	if err != nil {
		logger.Error("failed to set up sources", "error", err)
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	startedAt := models.Timestamp(startTime)
	ledger, runID := openLedger(cfg, startedAt, targets, sources, logger)
	if ledger != nil {
		defer ledger.Close()
	}

	mirror := openSink(ctx, cfg, logger)
	if mirror != nil {
		defer mirror.Close(context.Background())
	}

	progress := os.Stdout
	if format != "" {
		// Keep stdout clean for the structured output.
		progress = os.Stderr
	}

	p := pipeline.New(pipeline.Options{
		Manager:  artifact_manager.NewManager(cfg.DataDir),
		Ledger:   ledger,
		RunID:    runID,
		Sink:     mirror,
		Logger:   logger,
		Progress: progress,
	})

	fmt.Fprintln(progress, "[RUN] Running tests")
	var all []*pipeline.Result
	var runErr error
	for _, target := range targets {
		results, err := p.RunAll(ctx, sources, target)
		all = append(all, results...)
		if err != nil {
			runErr = err
			break
		}
	}

	manifestPath := finishRun(cfg, ledger, runID, startedAt, all, logger)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintln(os.Stderr, "[ERROR] interrupted")
			return cli.Exit("", 130)
		}
		logger.Error("collect failed", "error", runErr)
		return cli.Exit(fmt.Sprintf("Error: %v", runErr), 2)
	}

	out := BuildOutput(all, time.Since(startTime))
	out.RunID = runID
	out.Manifest = manifestPath

	if format != "" {
		data, err := Render(out, format)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("\nRun %d: %d/%d snapshots collected (%d failed, %d skipped)\n",
		runID, out.Stats.Successful, out.Stats.Total, out.Stats.Failed, out.Stats.Skipped)
	if manifestPath != "" {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}
	fmt.Printf("\nCommands:\n")
	fmt.Printf("  leakdiff diff --category ip   # Compare latest snapshots\n")
	fmt.Printf("  leakdiff run %d               # Run details\n", runID)
	return nil
}

// SelectTargets returns the configured targets for category ("" or "all"
// selects every target).
func SelectTargets(cfg *models.Config, category string) ([]models.TargetConfig, error) {
	if category == "" || category == "all" {
		if len(cfg.Targets) == 0 {
			return nil, fmt.Errorf("no targets configured")
		}
		return cfg.Targets, nil
	}
	t, ok := cfg.Target(category)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	return []models.TargetConfig{t}, nil
}

func openLedger(cfg *models.Config, startedAt string, targets []models.TargetConfig, sources []pipeline.Source, logger *slog.Logger) (*db.DB, int64) {
	ledger, err := db.Open(cfg.ResolvedDBPath())
	if err != nil {
		logger.Warn("run ledger unavailable", "path", cfg.ResolvedDBPath(), "error", err)
		return nil, 0
	}

	var categories, names []string
	for _, t := range targets {
		categories = append(categories, t.Category)
	}
	for _, s := range sources {
		names = append(names, s.Name)
	}
	runID, err := ledger.CreateRun(startedAt, categories, names)
	if err != nil {
		logger.Warn("failed to create run", "error", err)
		ledger.Close()
		return nil, 0
	}
	logger.Info("run started", "run_id", runID, "categories", categories)
	return ledger, runID
}

func openSink(ctx context.Context, cfg *models.Config, logger *slog.Logger) sink.Sink {
	if cfg.MongoURI == "" {
		return nil
	}
	s, err := sink.NewMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		logger.Warn("snapshot mirror unavailable", "error", err)
		return nil
	}
	return s
}

// finishRun writes the manifest and closes out the ledger entry. Failures
// here are logged; the snapshots are already on disk.
func finishRun(cfg *models.Config, ledger *db.DB, runID int64, startedAt string, results []*pipeline.Result, logger *slog.Logger) string {
	manifestPath, err := manifest.GenerateSummary(cfg.DataDir, runID, startedAt, ToManifestResults(results), &storage.Storage{})
	if err != nil {
		logger.Warn("failed to write run manifest", "error", err)
		manifestPath = ""
	}

	if ledger == nil {
		return manifestPath
	}
	if err := ledger.UpdateRunStats(runID); err != nil {
		logger.Warn("failed to update run stats", "error", err)
	}
	if manifestPath != "" {
		if err := ledger.SetRunManifest(runID, manifestPath); err != nil {
			logger.Warn("failed to record manifest path", "error", err)
		}
	}
	return manifestPath
}
