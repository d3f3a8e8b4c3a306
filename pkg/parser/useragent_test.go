package parser

import (
	"strings"
	"testing"
)

func TestDescribeUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want []string
	}{
		{
			name: "chrome on linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: []string{"Chrome 120", "on Linux"},
		},
		{
			name: "firefox on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; rv:115.0) Gecko/20100101 Firefox/115.0",
			want: []string{"Firefox 115", "on Windows"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DescribeUserAgent(tt.ua)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("DescribeUserAgent() = %q, want it to contain %q", got, w)
				}
			}
		})
	}

	if got := DescribeUserAgent("  "); got != "" {
		t.Errorf("DescribeUserAgent(blank) = %q", got)
	}
}
