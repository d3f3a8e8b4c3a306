package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dtnitsch/leakdiff/pkg/record"
)

// JSONParser reads a flat JSON object into a record. Keys go through the
// normalizer, string values through the same null rules as table cells.
type JSONParser struct {
	Normalizer Normalizer
}

func (p *JSONParser) Parse(body string) (record.Record, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON body: %w", err)
	}

	out := make(record.Record, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			v = normalizeValue(strings.TrimSpace(s))
		}
		out[p.Normalizer.Normalize(k)] = v
	}
	return out, nil
}
