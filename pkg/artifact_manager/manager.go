package artifact_manager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/storage"
)

const (
	DefaultBaseDir = "data"
	RunsDir        = "runs"
	SnapshotExt    = ".json"
)

// GetSourceDir returns the directory holding one source's snapshots of a category.
// Example: data/ip/torbrowser/
func GetSourceDir(baseDir, category, source string) string {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return filepath.Join(baseDir, category, strings.ToLower(source))
}

// GetSnapshotPath returns the file a snapshot taken at timestamp is written to.
// Example: data/ip/torbrowser/2024-05-17T09-03-07+02-00.json
func GetSnapshotPath(baseDir, category, source, timestamp string) string {
	return filepath.Join(GetSourceDir(baseDir, category, source), models.FileTimestamp(timestamp)+SnapshotExt)
}

// GetRunManifestPath returns the manifest file of a run started at timestamp.
// Example: data/runs/2024-05-17T09-03-07+02-00.json
func GetRunManifestPath(baseDir, timestamp string) string {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return filepath.Join(baseDir, RunsDir, models.FileTimestamp(timestamp)+SnapshotExt)
}

// Manager handles storage and retrieval of snapshots.
type Manager struct {
	baseDir string
	store   *storage.Storage
}

// NewManager creates a new Artifact Manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return &Manager{baseDir: baseDir, store: &storage.Storage{}}
}

// BaseDir returns the data root.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Export writes payload as indented JSON under the category and source
// directories and returns the absolute file path. Writing the same category,
// source and timestamp twice replaces the earlier file.
func (m *Manager) Export(category, source, timestamp string, payload any) (string, error) {
	path, err := filepath.Abs(GetSnapshotPath(m.baseDir, category, source, timestamp))
	if err != nil {
		return "", fmt.Errorf("failed to resolve snapshot path: %w", err)
	}
	if err := m.WriteJSON(path, payload); err != nil {
		return "", err
	}
	return path, nil
}

// WriteJSON encodes payload with two-space indentation, leaving non-ASCII
// and HTML characters unescaped.
func (m *Manager) WriteJSON(path string, payload any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	content := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if err := m.store.SaveFile(path, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Latest returns the most recent snapshot path for a category and source.
// File names are compared as instants, so a UTC offset change does not reorder
// them. Names that do not parse lose to any that do.
func (m *Manager) Latest(category, source string) (string, bool, error) {
	dir := GetSourceDir(m.baseDir, category, source)
	names, err := m.store.ListFiles(dir, SnapshotExt)
	if err != nil {
		return "", false, err
	}
	if len(names) == 0 {
		return "", false, nil
	}

	best := ""
	var bestAt time.Time
	for _, name := range names {
		at, err := models.ParseFileTimestamp(strings.TrimSuffix(name, SnapshotExt))
		if err != nil {
			at = time.Time{}
		}
		if best == "" || at.After(bestAt) || (at.Equal(bestAt) && name > best) {
			best, bestAt = name, at
		}
	}
	return filepath.Join(dir, best), true, nil
}

// Sources lists the source directories present for a category.
func (m *Manager) Sources(category string) ([]string, error) {
	return m.store.ListDirs(filepath.Join(m.baseDir, category))
}

// Load reads a snapshot back, keeping the order of its data fields.
func (m *Manager) Load(path string) (*models.Snapshot, error) {
	data, err := m.store.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}
