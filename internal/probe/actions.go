// Package probe holds the quick connectivity checks: which address and region
// a diagnostics page sees directly and through the anonymizing path.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/dtnitsch/leakdiff/internal/common"
	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/fetcher"
	"github.com/dtnitsch/leakdiff/pkg/parser"
	"github.com/urfave/cli/v2"
)

// RegionLabel is the table row the region is read from.
const RegionLabel = "State/Region"

// SmokeURL is opened by the smoke command.
const SmokeURL = "https://browserleaks.com"

// Reading is the address and region one probe observed. Both are empty when
// the probe failed.
type Reading struct {
	IP     string
	Region string
}

// Extract reads the client address and region from a diagnostics page.
func Extract(body string) Reading {
	var r Reading
	r.IP, _ = parser.ExtractClientIP(body)
	r.Region, _ = parser.FindLabel(body, RegionLabel)
	return r
}

func probeOnce(ctx context.Context, f fetcher.PageFetcher, url string, wait time.Duration) (Reading, error) {
	page, err := f.Fetch(ctx, url, wait)
	if err != nil {
		return Reading{}, err
	}
	return Extract(page.HTML), nil
}

// printReadings writes the four result lines: direct IP, direct region,
// anonymized IP, anonymized region.
func printReadings(w io.Writer, direct, anon Reading) {
	fmt.Fprintln(w, direct.IP)
	fmt.Fprintln(w, direct.Region)
	fmt.Fprintln(w, anon.IP)
	fmt.Fprintln(w, anon.Region)
}

// ProbeAction prints the direct and anonymized address and region. The plain
// HTTP variant never fails; --browser uses the configured browsers and exits
// 1, 2 or 3 depending on which stage broke.
func ProbeAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	if c.Bool("browser") {
		return browserProbe(ctx, cfg, logger, os.Stdout)
	}
	return httpProbe(ctx, cfg, logger, os.Stdout)
}

func httpProbe(ctx context.Context, cfg *models.Config, logger *slog.Logger, w io.Writer) error {
	direct, err := fetcher.NewHTTPFetcher(fetcher.HTTPConfig{Timeout: cfg.ProbeTimeout})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}
	anon, err := fetcher.NewHTTPFetcher(fetcher.HTTPConfig{
		Timeout: cfg.ProbeTimeout,
		Proxy:   common.AnonymizingProxy(cfg),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	directReading, err := probeOnce(ctx, direct, cfg.ProbeURL, 0)
	if err != nil {
		logger.Warn("direct probe failed", "url", cfg.ProbeURL, "error", err)
	}
	anonReading, err := probeOnce(ctx, anon, cfg.ProbeURL, 0)
	if err != nil {
		logger.Warn("proxied probe failed", "url", cfg.ProbeURL, "error", err)
	}

	printReadings(w, directReading, anonReading)
	return nil
}

func browserProbe(ctx context.Context, cfg *models.Config, logger *slog.Logger, w io.Writer) error {
	regular, ok := sourceByRole(cfg, models.RoleRegular)
	if !ok {
		return cli.Exit("# ERROR: no regular browser source configured", 1)
	}
	regularFetcher, err := common.NewBrowserFetcher(regular, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("# ERROR: could not start %s: %v", regular.Name, err), 1)
	}
	directReading, err := probeOnce(ctx, regularFetcher, cfg.ProbeURL, regular.Wait)
	if err != nil {
		return cli.Exit(fmt.Sprintf("# ERROR: could not start %s: %v", regular.Name, err), 1)
	}

	anon, ok := sourceByRole(cfg, models.RoleAnonymizing)
	if !ok {
		return cli.Exit("# ERROR: no anonymizing browser source configured", 2)
	}
	anonFetcher, err := common.NewBrowserFetcher(anon, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("# ERROR: %s browser unavailable: %v", anon.Name, err), 2)
	}
	page, err := anonFetcher.Fetch(ctx, cfg.ProbeURL, anon.Wait)
	if err != nil {
		return cli.Exit(fmt.Sprintf("# ERROR: could not start %s: %v", anon.Name, err), 3)
	}
	logger.Info("anonymizing browser user agent", "source", anon.Name, "user_agent", page.UserAgent)

	printReadings(w, directReading, Extract(page.HTML))
	return nil
}

// SmokeAction opens SmokeURL in every configured browser (or only --source)
// and prints the page title. Failures are printed and do not change the exit code.
func SmokeAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	url := c.String("url")
	if url == "" {
		url = SmokeURL
	}

	sources, err := smokeSources(cfg, c.String("source"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	for _, sc := range sources {
		f, err := common.NewBrowserFetcher(sc, logger)
		if err != nil {
			fmt.Printf("=== Test %s ===\n", sc.Name)
			fmt.Printf("Error during test: %v\n", err)
			continue
		}
		smoke(ctx, os.Stdout, sc.Name, f, url, sc.Wait)
	}
	return nil
}

func smoke(ctx context.Context, w io.Writer, name string, f fetcher.PageFetcher, url string, wait time.Duration) {
	fmt.Fprintf(w, "=== Test %s ===\n", name)
	page, err := f.Fetch(ctx, url, wait)
	if err != nil {
		fmt.Fprintf(w, "Error during test: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Title: %s\n", parser.Title(page.HTML))
}

// smokeSources returns every configured source, or only the one named.
func smokeSources(cfg *models.Config, name string) ([]models.SourceConfig, error) {
	if name == "" {
		return cfg.Sources, nil
	}
	sc, ok := cfg.Source(name)
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return []models.SourceConfig{sc}, nil
}

func sourceByRole(cfg *models.Config, role models.Role) (models.SourceConfig, bool) {
	for _, s := range cfg.Sources {
		if s.Role == role {
			return s, true
		}
	}
	return models.SourceConfig{}, false
}
