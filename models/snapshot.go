package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/leakdiff/pkg/record"
)

// ScriptVersion is written into every snapshot's meta block.
const ScriptVersion = "1.2"

// TimestampLayout is ISO-8601 with second precision and a numeric offset.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// Meta describes one collection run for one source.
type Meta struct {
	Browser       string `json:"browser"`
	Timestamp     string `json:"timestamp"`
	ScriptVersion string `json:"script_version"`
	UserAgent     string `json:"user_agent,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Snapshot is the unit written to disk. Data is null when the fetch failed.
type Snapshot struct {
	Meta Meta           `json:"meta"`
	Data record.Ordered `json:"data"`
}

// Timestamp renders t in the local zone using TimestampLayout.
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// FileTimestamp replaces the colons of an ISO timestamp so it can be used as a
// file name.
func FileTimestamp(ts string) string {
	return strings.ReplaceAll(ts, ":", "-")
}

// ParseFileTimestamp reverses FileTimestamp for a name such as
// 2024-05-17T09-03-07+02-00.
func ParseFileTimestamp(name string) (time.Time, error) {
	date, clock, ok := strings.Cut(name, "T")
	// HH-MM-SS±HH-MM
	if !ok || len(clock) != 14 {
		return time.Time{}, fmt.Errorf("not a snapshot timestamp: %q", name)
	}
	b := []byte(clock)
	b[2], b[5], b[11] = ':', ':', ':'
	return time.Parse(TimestampLayout, date+"T"+string(b))
}
