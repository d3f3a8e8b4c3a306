package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/fetcher"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("config", "", "")
	set.String("data-dir", "", "")
	set.Bool("quiet", false, "")
	set.String("log-format", "json", "")
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("data_dir: from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEAKDIFF_DATA_DIR", "from-env")

	cfg, err := LoadConfig(newContext(t, "--config", path))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DataDir != "from-env" {
		t.Errorf("DataDir = %q, environment must override the file", cfg.DataDir)
	}

	cfg, err = LoadConfig(newContext(t, "--config", path, "--data-dir", "from-flag"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DataDir != "from-flag" {
		t.Errorf("DataDir = %q, flag must override the environment", cfg.DataDir)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(newContext(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))); err == nil {
		t.Error("LoadConfig() error = nil for a missing --config file")
	}
}

func TestLoadConfig_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, models.DefaultConfigFile), []byte("data_dir: from-default\n"), 0600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("LEAKDIFF_DATA_DIR", "")

	cfg, err := LoadConfig(newContext(t))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DataDir != "from-default" {
		t.Errorf("DataDir = %q, want the value from %s", cfg.DataDir, models.DefaultConfigFile)
	}
}

func TestBuildSources_MissingBrowsers(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.Sources[0].Binary = filepath.Join(t.TempDir(), "no-chrome")
	cfg.Sources[1].Binary = "/nope/Browser/firefox"
	cfg.Sources[1].BundleDir = "/nope"

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	sources, err := BuildSources(cfg, logger)
	if err != nil {
		t.Fatalf("BuildSources() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("len(sources) = %d", len(sources))
	}
	for _, s := range sources {
		if s.Browser != nil || s.SkipReason == "" {
			t.Errorf("source %s: browser = %v, skip reason = %q", s.Name, s.Browser, s.SkipReason)
		}
		if s.HTTP == nil {
			t.Errorf("source %s has no HTTP client", s.Name)
		}
	}
	if sources[1].Wait != cfg.Sources[1].Wait {
		t.Errorf("Wait = %v", sources[1].Wait)
	}
}

func TestResolveSourceBinary_Bundle(t *testing.T) {
	bundle := t.TempDir()
	binary := filepath.Join(bundle, "Browser", "firefox")
	if err := os.MkdirAll(filepath.Dir(binary), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(binary, nil, 0755); err != nil {
		t.Fatal(err)
	}

	sc := models.SourceConfig{Name: "TorBrowser", Role: models.RoleAnonymizing, BundleDir: bundle, Binary: "/stale/path"}
	got, err := ResolveSourceBinary(sc)
	if err != nil || got != binary {
		t.Errorf("ResolveSourceBinary() = %q, %v, want %q", got, err, binary)
	}

	// The bundle is Firefox-based, so the source is reported as unusable.
	_, err = NewBrowserFetcher(sc, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	var unsupported *fetcher.ErrUnsupportedBrowser
	if !errors.As(err, &unsupported) {
		t.Errorf("NewBrowserFetcher() error = %v, want ErrUnsupportedBrowser", err)
	}
}

func TestBuildSources_DefaultAnonymizingSourceIsChromium(t *testing.T) {
	chrome := filepath.Join(t.TempDir(), "chromium")
	if err := os.WriteFile(chrome, nil, 0755); err != nil {
		t.Fatal(err)
	}
	cfg := models.DefaultConfig()
	for i := range cfg.Sources {
		cfg.Sources[i].Binary = chrome
	}

	sources, err := BuildSources(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("BuildSources() error = %v", err)
	}
	for _, s := range sources {
		if s.Browser == nil || s.SkipReason != "" {
			t.Errorf("source %s: browser = %v, skip reason = %q", s.Name, s.Browser, s.SkipReason)
		}
	}

	tor, _ := cfg.Source("TorBrowser")
	if tor.BundleDir != "" || tor.Proxy != "127.0.0.1:9050" || !tor.Stealth {
		t.Errorf("default TorBrowser source = %+v", tor)
	}
}

func TestAnonymizingProxy(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.Sources[1].Proxy = "10.0.0.2:9150"
	if got := AnonymizingProxy(cfg); got != "10.0.0.2:9150" {
		t.Errorf("AnonymizingProxy() = %q", got)
	}
	cfg.Sources = cfg.Sources[:1]
	if got := AnonymizingProxy(cfg); got != "127.0.0.1:9050" {
		t.Errorf("AnonymizingProxy() default = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "json", false).Info("fetched", "source", "Chromium")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "fetched" || entry["source"] != "Chromium" {
		t.Errorf("entry = %v", entry)
	}

	buf.Reset()
	newLogger(&buf, "text", false).Info("fetched", "source", "Chromium")
	if !strings.Contains(buf.String(), "fetched") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("text log line = %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "json", true).Warn("ignored")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}
