package manifest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/artifact_manager"
	"github.com/dtnitsch/leakdiff/pkg/storage"
)

// SnapshotResult is one pipeline outcome as handed over by the collect command.
// It is declared here so the manifest does not depend on the pipeline.
type SnapshotResult struct {
	Category   string
	Source     string
	Status     string
	FilePath   string
	FieldCount int
	UserAgent  string
	Error      error
}

// GenerateSummary writes the run manifest under <baseDir>/runs/ and returns its path.
func GenerateSummary(baseDir string, runID int64, startedAt string, results []SnapshotResult, s *storage.Storage) (string, error) {
	manifest := Build(runID, startedAt, results, s)
	manifest.GeneratedAt = models.Timestamp(time.Now())

	manifestPath := artifact_manager.GetRunManifestPath(baseDir, startedAt)
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshalling manifest: %w", err)
	}

	if err := s.SaveFile(manifestPath, manifestData); err != nil {
		return "", fmt.Errorf("error saving manifest: %w", err)
	}

	return manifestPath, nil
}

// Build aggregates results into a manifest. File sizes are read from disk.
func Build(runID int64, startedAt string, results []SnapshotResult, s *storage.Storage) RunManifest {
	manifest := RunManifest{
		RunID:         runID,
		StartedAt:     startedAt,
		ScriptVersion: models.ScriptVersion,
		Total:         len(results),
		Results:       []SnapshotSummary{},
	}

	for _, result := range results {
		summary := SnapshotSummary{
			Category:   result.Category,
			Source:     result.Source,
			Status:     result.Status,
			FilePath:   result.FilePath,
			FieldCount: result.FieldCount,
			UserAgent:  result.UserAgent,
		}
		if result.Error != nil {
			summary.ErrorMessage = result.Error.Error()
		}

		switch result.Status {
		case "success":
			manifest.Successful++
		case "skipped":
			manifest.Skipped++
		default:
			manifest.Failed++
		}

		if result.FilePath != "" {
			if stats, err := s.GetFileStats(result.FilePath); err == nil {
				summary.SizeBytes = stats.SizeBytes
			}
		}

		manifest.Results = append(manifest.Results, summary)
	}

	return manifest
}
