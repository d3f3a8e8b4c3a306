package parser

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		label   string
		mapping map[string]string
		want    string
	}{
		{"State/Region", IPLabels, "state_region"},
		{"  IP Address ", IPLabels, "ip"},
		{"User-Agent", IPLabels, "user-agent"},
		{"Unmapped Label", nil, "unmapped_label"},
		{"Unmapped Label", IPLabels, "unmapped_label"},
		{"State/Region", nil, "state/region"},
		{"", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := Normalize(tt.label, tt.mapping); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestNormalizer_ReplaceSeparators(t *testing.T) {
	n := Normalizer{ReplaceSeparators: true}
	tests := map[string]string{
		"State/Region":          "state_region",
		"Do-Not-Track":          "do_not_track",
		" Hardware Concurrency": "hardware_concurrency",
		"toLocaleString":        "tolocalestring",
	}
	for label, want := range tests {
		if got := n.Normalize(label); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", label, got, want)
		}
	}
}
