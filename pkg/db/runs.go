package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Run represents one collect invocation
type Run struct {
	RunID        int64
	StartedAt    string
	CreatedAt    time.Time
	Categories   []string
	Sources      []string
	SuccessCount int
	FailedCount  int
	SkippedCount int
	ManifestPath string
}

// RunResult is the outcome of one source for one category
type RunResult struct {
	ResultID     int64
	RunID        int64
	Category     string
	Source       string
	Status       string
	Timestamp    string
	FilePath     string
	UserAgent    string
	ErrorMessage string
	FieldCount   int
}

// CreateRun inserts a run and returns its ID
func (db *DB) CreateRun(startedAt string, categories, sources []string) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (started_at, categories, sources)
		VALUES (?, ?, ?)
	`, startedAt, strings.Join(categories, ","), strings.Join(sources, ","))
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// InsertRunResult records one outcome of a run
func (db *DB) InsertRunResult(r RunResult) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO run_results (run_id, category, source, status, timestamp, file_path, user_agent, error_message, field_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Category, r.Source, r.Status, r.Timestamp, r.FilePath, r.UserAgent, r.ErrorMessage, r.FieldCount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run result: %w", err)
	}
	return result.LastInsertId()
}

// UpdateRunStats recomputes the per-status counters of a run from its results
func (db *DB) UpdateRunStats(runID int64) error {
	_, err := db.Exec(`
		UPDATE runs SET
			success_count = (SELECT COUNT(*) FROM run_results WHERE run_id = ? AND status = 'success'),
			failed_count  = (SELECT COUNT(*) FROM run_results WHERE run_id = ? AND status = 'failed'),
			skipped_count = (SELECT COUNT(*) FROM run_results WHERE run_id = ? AND status = 'skipped')
		WHERE run_id = ?
	`, runID, runID, runID, runID)
	if err != nil {
		return fmt.Errorf("failed to update run stats: %w", err)
	}
	return nil
}

// SetRunManifest stores where the run manifest was written
func (db *DB) SetRunManifest(runID int64, path string) error {
	_, err := db.Exec("UPDATE runs SET manifest_path = ? WHERE run_id = ?", path, runID)
	if err != nil {
		return fmt.Errorf("failed to set manifest path: %w", err)
	}
	return nil
}

const runColumns = `run_id, started_at, created_at, categories, sources,
	success_count, failed_count, skipped_count, COALESCE(manifest_path, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var categories, sources string
	if err := row.Scan(&r.RunID, &r.StartedAt, &r.CreatedAt, &categories, &sources,
		&r.SuccessCount, &r.FailedCount, &r.SkippedCount, &r.ManifestPath); err != nil {
		return nil, err
	}
	r.Categories = splitList(categories)
	r.Sources = splitList(sources)
	return &r, nil
}

// GetRunByID retrieves a run by its ID
func (db *DB) GetRunByID(runID int64) (*Run, error) {
	run, err := scanRun(db.QueryRow("SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetLatestRunID returns the most recent run
func (db *DB) GetLatestRunID() (int64, error) {
	var runID int64
	err := db.QueryRow("SELECT run_id FROM runs ORDER BY run_id DESC LIMIT 1").Scan(&runID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("no runs found")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	return runID, nil
}

// ListRuns retrieves runs ordered by most recent first
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY run_id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunResults retrieves the results of a run in insertion order
func (db *DB) GetRunResults(runID int64) ([]RunResult, error) {
	rows, err := db.Query(`
		SELECT result_id, run_id, category, source, status,
		       COALESCE(timestamp, ''), COALESCE(file_path, ''), COALESCE(user_agent, ''),
		       COALESCE(error_message, ''), field_count
		FROM run_results
		WHERE run_id = ?
		ORDER BY result_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run results: %w", err)
	}
	defer rows.Close()

	var results []RunResult
	for rows.Next() {
		var r RunResult
		if err := rows.Scan(&r.ResultID, &r.RunID, &r.Category, &r.Source, &r.Status,
			&r.Timestamp, &r.FilePath, &r.UserAgent, &r.ErrorMessage, &r.FieldCount); err != nil {
			return nil, fmt.Errorf("failed to scan run result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
