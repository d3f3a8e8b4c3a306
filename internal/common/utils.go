package common

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/fetcher"
	"github.com/dtnitsch/leakdiff/pkg/pipeline"
	"github.com/dtnitsch/leakdiff/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
)

// HTTPAccept is sent by every plain HTTP fetch so JSON endpoints answer in JSON.
const HTTPAccept = "application/json, text/html;q=0.9, */*;q=0.8"

// NewLogger returns the stderr logger: JSON by default, colored text with
// --log-format text. --quiet keeps only errors.
func NewLogger(c *cli.Context) *slog.Logger {
	return newLogger(os.Stderr, c.String("log-format"), c.Bool("quiet"))
}

func newLogger(w io.Writer, format string, quiet bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if quiet {
		logLevel = slog.LevelError
	}
	if format == "text" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig resolves the configuration once: .env, then the YAML file from
// --config (or leakdiff.yaml when present), then the environment, then flags.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	path := c.String("config")
	if path == "" {
		if (&storage.Storage{}).HasFile(models.DefaultConfigFile) {
			path = models.DefaultConfigFile
		}
	}

	cfg, err := models.LoadConfig(path, os.Getenv)
	if err != nil {
		return nil, err
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	return cfg, nil
}

// BuildSources creates the fetchers of every configured source. A source
// whose browser cannot be found keeps its HTTP client and carries a skip
// reason for browser targets.
func BuildSources(cfg *models.Config, logger *slog.Logger) ([]pipeline.Source, error) {
	var sources []pipeline.Source
	for _, sc := range cfg.Sources {
		httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.HTTPConfig{
			Timeout: cfg.HTTPTimeout,
			Proxy:   sc.Proxy,
			Accept:  HTTPAccept,
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}

		src := pipeline.Source{
			Name: sc.Name,
			Wait: sc.Wait,
			HTTP: httpFetcher,
		}

		browser, err := NewBrowserFetcher(sc, logger)
		if err != nil {
			src.SkipReason = err.Error()
			logger.Warn("browser unavailable, browser targets will be skipped", "source", sc.Name, "error", err)
		} else {
			src.Browser = browser
		}

		sources = append(sources, src)
	}
	return sources, nil
}

// NewBrowserFetcher resolves the browser binary of sc and builds its fetcher.
func NewBrowserFetcher(sc models.SourceConfig, logger *slog.Logger) (*fetcher.BrowserFetcher, error) {
	binary, err := ResolveSourceBinary(sc)
	if err != nil {
		return nil, err
	}
	return fetcher.NewBrowserFetcher(fetcher.BrowserConfig{
		Binary:         binary,
		Headless:       sc.IsHeadless(),
		Proxy:          sc.Proxy,
		Stealth:        sc.Stealth,
		VirtualDisplay: sc.VirtualDisplay,
		XvfbDisplay:    sc.XvfbDisplay,
		Logger:         logger.With("source", sc.Name),
	})
}

// ResolveSourceBinary finds the executable for sc. A source with a bundle
// directory is located through it.
func ResolveSourceBinary(sc models.SourceConfig) (string, error) {
	if sc.BundleDir != "" {
		return fetcher.ResolveBundleBinary(sc.BundleDir, sc.Binary)
	}
	return fetcher.ResolveBrowserBinary(sc.Binary)
}

// AnonymizingProxy returns the SOCKS5 proxy of the first anonymizing source.
func AnonymizingProxy(cfg *models.Config) string {
	for _, s := range cfg.Sources {
		if s.Role == models.RoleAnonymizing && s.Proxy != "" {
			return s.Proxy
		}
	}
	return "127.0.0.1:9050"
}
