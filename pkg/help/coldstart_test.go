package help

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestQuickstartYAML_Parses(t *testing.T) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(QuickstartYAML), &doc); err != nil {
		t.Fatalf("QuickstartYAML is not valid YAML: %v", err)
	}
	for _, key := range []string{"categories", "sources", "commands", "key_files", "error_behavior"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("QuickstartYAML is missing %q", key)
		}
	}
}
