package collect

// ResultOutput is the structured output for one (category, source) pair.
type ResultOutput struct {
	Category   string `json:"category" yaml:"category"`
	Source     string `json:"source" yaml:"source"`
	Status     string `json:"status" yaml:"status"`
	FilePath   string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	FieldCount int    `json:"field_count,omitempty" yaml:"field_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FinalOutput is the structured output for the entire run.
type FinalOutput struct {
	Status   string         `json:"status" yaml:"status"`
	RunID    int64          `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Manifest string         `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Results  []ResultOutput `json:"results" yaml:"results"`
	Stats    Stats          `json:"stats" yaml:"stats"`
}

// Stats provides summary statistics for the run.
type Stats struct {
	Total            int     `json:"total" yaml:"total"`
	Successful       int     `json:"successful" yaml:"successful"`
	Failed           int     `json:"failed" yaml:"failed"`
	Skipped          int     `json:"skipped" yaml:"skipped"`
	TotalTimeSeconds float64 `json:"total_time_seconds" yaml:"total_time_seconds"`
}
