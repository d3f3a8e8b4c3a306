package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", cfg.DataDir)
	}
	for _, category := range []string{"ip", "javascript", "ipinfo"} {
		if _, ok := cfg.Target(category); !ok {
			t.Errorf("default target %q missing", category)
		}
	}
	regular, ok := cfg.Source("Chromium")
	if !ok || !regular.IsHeadless() || regular.Wait != 3*time.Second {
		t.Errorf("Chromium source = %+v", regular)
	}
	tor, ok := cfg.Source("TorBrowser")
	if !ok || tor.Proxy != "127.0.0.1:9050" || tor.Wait != 5*time.Second {
		t.Errorf("TorBrowser source = %+v", tor)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	env := envMap(map[string]string{
		"BROWSER_BINARY":     "/opt/chromium/chrome",
		"HEADLESS_BROWSER":   "0",
		"TOR_BROWSER_BINARY": "/opt/tor/Browser/firefox",
		"TOR_BROWSER_DIR":    "/opt/tor",
		"HEADLESS_TBB":       "1",
		"TOR_PROXY":          "127.0.0.1:9150",
		"LEAKDIFF_DATA_DIR":  "/tmp/leaks",
	})
	cfg, err := LoadConfig("", env)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	regular, _ := cfg.Source("Chromium")
	if regular.Binary != "/opt/chromium/chrome" || regular.IsHeadless() {
		t.Errorf("Chromium source = %+v, want env binary and headless off", regular)
	}
	tor, _ := cfg.Source("TorBrowser")
	if tor.Binary != "/opt/tor/Browser/firefox" || tor.BundleDir != "/opt/tor" || !tor.IsHeadless() || tor.Proxy != "127.0.0.1:9150" {
		t.Errorf("TorBrowser source = %+v", tor)
	}
	if cfg.DataDir != "/tmp/leaks" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoadConfig_EnvAliases(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantBinary   string
		wantHeadless bool
	}{
		{
			name:         "older names apply",
			env:          map[string]string{"FIREFOX_BINARY": "/usr/bin/chromium", "HEADLESS_FIREFOX": "0"},
			wantBinary:   "/usr/bin/chromium",
			wantHeadless: false,
		},
		{
			name: "new names win",
			env: map[string]string{
				"BROWSER_BINARY": "/opt/chrome", "FIREFOX_BINARY": "/usr/bin/chromium",
				"HEADLESS_BROWSER": "1", "HEADLESS_FIREFOX": "0",
			},
			wantBinary:   "/opt/chrome",
			wantHeadless: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("", envMap(tt.env))
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			regular, _ := cfg.Source("Chromium")
			if regular.Binary != tt.wantBinary || regular.IsHeadless() != tt.wantHeadless {
				t.Errorf("Chromium source = %+v, want binary %q headless %v", regular, tt.wantBinary, tt.wantHeadless)
			}
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leakdiff.yaml")
	content := `
data_dir: snapshots
http_timeout: 20s
targets:
  - category: ip
    url: https://example.test/ip
    fetch: http
    mode: table
    labels: ip
    whitelist: [ip, city]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DataDir != "snapshots" || cfg.HTTPTimeout != 20*time.Second {
		t.Errorf("DataDir/HTTPTimeout = %q/%v", cfg.DataDir, cfg.HTTPTimeout)
	}
	if len(cfg.Targets) != 1 {
		t.Fatalf("len(Targets) = %d, want the file's single target", len(cfg.Targets))
	}
	if diff := cmp.Diff([]string{"ip", "city"}, cfg.Targets[0].Whitelist); diff != "" {
		t.Errorf("whitelist mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.Sources) != 2 {
		t.Errorf("len(Sources) = %d, want defaults kept", len(cfg.Sources))
	}
	if cfg.ProbeURL == "" {
		t.Error("ProbeURL default lost in merge")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := `
sources:
  - name: A
  - name: A
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path, nil); err == nil {
		t.Error("LoadConfig() error = nil, want duplicate source error")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("LoadConfig(missing) error = nil")
	}
}

func TestTimestamp(t *testing.T) {
	zone := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2024, 5, 17, 9, 3, 7, 999, zone)

	got := ts.In(zone).Format(TimestampLayout)
	if got != "2024-05-17T09:03:07+02:00" {
		t.Errorf("Format = %q", got)
	}
	if fn := FileTimestamp(got); fn != "2024-05-17T09-03-07+02-00" {
		t.Errorf("FileTimestamp() = %q", fn)
	}
	if Timestamp(ts) != ts.Local().Format(TimestampLayout) {
		t.Errorf("Timestamp() not rendered in the local zone")
	}
}

func TestParseFileTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"2024-05-17T09-03-07+02-00", "2024-05-17T07:03:07Z", false},
		{"2024-01-02T03-04-05-05-00", "2024-01-02T08:04:05Z", false},
		{"notes", "", true},
		{"2024-05-17T09-03", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFileTimestamp(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFileTimestamp() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.UTC().Format(time.RFC3339) != tt.want {
				t.Errorf("ParseFileTimestamp() = %s, want %s", got.UTC().Format(time.RFC3339), tt.want)
			}
		})
	}
}
