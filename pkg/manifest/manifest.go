package manifest

// RunManifest is written once per collect run. It lists every
// (category, source) outcome without requiring the snapshots to be opened.
type RunManifest struct {
	RunID         int64             `json:"run_id,omitempty"`
	StartedAt     string            `json:"started_at"`
	GeneratedAt   string            `json:"generated_at"`
	ScriptVersion string            `json:"script_version"`
	Total         int               `json:"total"`
	Successful    int               `json:"successful"`
	Failed        int               `json:"failed"`
	Skipped       int               `json:"skipped"`
	Results       []SnapshotSummary `json:"results"`
}

// SnapshotSummary describes one snapshot, or why none was written.
type SnapshotSummary struct {
	Category     string `json:"category"`
	Source       string `json:"source"`
	Status       string `json:"status"` // "success", "failed" or "skipped"
	FilePath     string `json:"file_path,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	FieldCount   int    `json:"field_count,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
