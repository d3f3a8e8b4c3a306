package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dtnitsch/leakdiff/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// DefaultNavigateTimeout bounds navigation and load of one page.
const DefaultNavigateTimeout = 60 * time.Second

// BrowserConfig configures a BrowserFetcher.
type BrowserConfig struct {
	// Binary is the browser executable; it must be resolvable before use.
	Binary   string
	Headless bool
	// Proxy is a SOCKS5 host:port all browser traffic is routed through.
	Proxy   string
	Stealth bool

	// VirtualDisplay runs the browser headful on an Xvfb display instead of
	// using headless mode. Only used when Headless is set.
	VirtualDisplay bool
	XvfbDisplay    string

	NavigateTimeout time.Duration
	Logger          *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = DefaultNavigateTimeout
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// BrowserFetcher drives a real browser over the DevTools protocol. Every
// Fetch launches a fresh browser process and tears it down afterwards.
type BrowserFetcher struct {
	cfg BrowserConfig
}

// NewBrowserFetcher returns a fetcher for cfg.Binary. Firefox-based binaries,
// Tor Browser included, are rejected with ErrUnsupportedBrowser because they
// do not serve the DevTools protocol.
func NewBrowserFetcher(cfg BrowserConfig) (*BrowserFetcher, error) {
	if cfg.Binary == "" {
		return nil, fmt.Errorf("browser: no binary configured")
	}
	if IsFirefoxBinary(cfg.Binary) {
		return nil, &ErrUnsupportedBrowser{Path: cfg.Binary}
	}
	cfg.defaults()
	return &BrowserFetcher{cfg: cfg}, nil
}

// Fetch navigates to url, waits for the load event plus wait, and returns
// the rendered document together with navigator.userAgent.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string, wait time.Duration) (*models.Page, error) {
	log := f.cfg.Logger

	var display *Display
	if f.cfg.Headless && f.cfg.VirtualDisplay {
		display = NewDisplay(f.cfg.XvfbDisplay, log)
		if err := display.Start(); err != nil {
			log.Warn("browser: virtual display unavailable, falling back to headless", "display", f.cfg.XvfbDisplay, "error", err)
			display = nil
		} else {
			defer display.Stop()
		}
	}

	l := launcher.New().Context(ctx).Bin(f.cfg.Binary)
	if display != nil {
		l = l.Headless(false).Env(append(os.Environ(), "DISPLAY="+display.Name())...)
	} else {
		l = l.Headless(f.cfg.Headless)
	}
	if f.cfg.Proxy != "" {
		l = l.Proxy("socks5://" + f.cfg.Proxy)
	}
	if f.cfg.Stealth {
		l = l.Set("disable-blink-features", "AutomationControlled")
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch %s: %w", f.cfg.Binary, err)
	}
	defer l.Cleanup()
	log.Debug("browser: launched", "binary", f.cfg.Binary, "url", u, "proxy", f.cfg.Proxy)

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	defer b.Close()

	var page *rod.Page
	if f.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", url, "error", err)
	}

	if err := sleepCtx(ctx, wait); err != nil {
		return nil, err
	}

	res, err := page.Context(ctx).Eval(`() => navigator.userAgent`)
	if err != nil {
		return nil, fmt.Errorf("browser: read user agent: %w", err)
	}
	html, err := page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: read document: %w", err)
	}

	return &models.Page{
		URL:       url,
		HTML:      html,
		UserAgent: res.Value.Str(),
	}, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
