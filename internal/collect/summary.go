package collect

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/leakdiff/pkg/db"
	"github.com/dtnitsch/leakdiff/pkg/manifest"
	"github.com/dtnitsch/leakdiff/pkg/pipeline"
	"gopkg.in/yaml.v3"
)

// BuildOutput summarizes pipeline results. Status is "success" when every
// attempted source produced data, "partial_failure" otherwise.
func BuildOutput(results []*pipeline.Result, elapsed time.Duration) *FinalOutput {
	out := &FinalOutput{Results: []ResultOutput{}}
	for _, r := range results {
		ro := ResultOutput{
			Category: r.Category,
			Source:   r.Source,
			Status:   r.Status,
			FilePath: r.Path,
		}
		if r.Snapshot != nil {
			ro.FieldCount = len(r.Snapshot.Data)
		}
		if r.Err != nil {
			ro.Error = r.Err.Error()
		}
		switch r.Status {
		case db.StatusSuccess:
			out.Stats.Successful++
		case db.StatusSkipped:
			out.Stats.Skipped++
		default:
			out.Stats.Failed++
		}
		out.Results = append(out.Results, ro)
	}
	out.Stats.Total = len(results)
	out.Stats.TotalTimeSeconds = elapsed.Seconds()

	out.Status = "success"
	if out.Stats.Failed > 0 || out.Stats.Skipped > 0 {
		out.Status = "partial_failure"
	}
	return out
}

// ToManifestResults converts pipeline results for the run manifest.
func ToManifestResults(results []*pipeline.Result) []manifest.SnapshotResult {
	out := make([]manifest.SnapshotResult, len(results))
	for i, r := range results {
		out[i] = manifest.SnapshotResult{
			Category: r.Category,
			Source:   r.Source,
			Status:   r.Status,
			FilePath: r.Path,
			Error:    r.Err,
		}
		if r.Snapshot != nil {
			out[i].FieldCount = len(r.Snapshot.Data)
			out[i].UserAgent = r.Snapshot.Meta.UserAgent
		}
	}
	return out
}

// Render formats the final output as json or yaml.
func Render(out *FinalOutput, format string) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	if strings.EqualFold(format, "yaml") {
		return yaml.Marshal(out)
	}
	return json.MarshalIndent(out, "", "  ")
}

// ValidateFormat accepts json and yaml in any case.
func ValidateFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "yaml":
		return nil
	}
	return fmt.Errorf("unknown format %q (json|yaml)", format)
}
