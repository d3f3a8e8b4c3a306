// Package compare lines up two snapshots field by field.
package compare

import (
	"encoding/json"
	"fmt"

	"github.com/dtnitsch/leakdiff/pkg/record"
)

// Row is one field across two snapshots. Missing is set for the side that
// does not carry the field at all, as opposed to carrying null.
type Row struct {
	Key          string
	Left, Right  string
	LeftMissing  bool
	RightMissing bool
	Equal        bool
}

// Fields returns a row per key of left, in left's order, followed by the keys
// only right has, in right's order.
func Fields(left, right record.Ordered) []Row {
	var rows []Row
	seen := map[string]bool{}

	add := func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		lv, lok := left.Lookup(key)
		rv, rok := right.Lookup(key)
		row := Row{
			Key:          key,
			Left:         FormatValue(lv, lok),
			Right:        FormatValue(rv, rok),
			LeftMissing:  !lok,
			RightMissing: !rok,
		}
		row.Equal = lok == rok && row.Left == row.Right
		rows = append(rows, row)
	}

	for _, key := range left.Keys() {
		add(key)
	}
	for _, key := range right.Keys() {
		add(key)
	}
	return rows
}

// Summary counts equal and differing rows.
func Summary(rows []Row) (equal, differ int) {
	for _, r := range rows {
		if r.Equal {
			equal++
		} else {
			differ++
		}
	}
	return equal, differ
}

// FormatValue renders a field value for display.
func FormatValue(v any, present bool) string {
	if !present {
		return "-"
	}
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
