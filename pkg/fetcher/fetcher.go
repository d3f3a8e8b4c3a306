package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dtnitsch/leakdiff/models"
	"golang.org/x/net/proxy"
)

// DefaultHTTPTimeout bounds every plain HTTP request.
const DefaultHTTPTimeout = 15 * time.Second

// DefaultUserAgent is sent by HTTPFetcher when no user agent is configured.
const DefaultUserAgent = "leakdiff/" + models.ScriptVersion

// PageFetcher loads one page and reports the user agent it presented.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, wait time.Duration) (*models.Page, error)
}

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	Timeout time.Duration
	// Proxy is a SOCKS5 host:port. Host names are resolved by the proxy.
	Proxy     string
	UserAgent string
	Accept    string
}

// HTTPFetcher fetches pages with a plain HTTP client.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	accept    string
}

// NewHTTPFetcher builds a client that dials through cfg.Proxy when set.
func NewHTTPFetcher(cfg HTTPConfig) (*HTTPFetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{}
	if cfg.Proxy != "" {
		dialer, err := proxy.SOCKS5("tcp", cfg.Proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", cfg.Proxy, err)
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", cfg.Proxy)
		}
		transport.DialContext = cd.DialContext
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
		accept:    cfg.Accept,
	}, nil
}

// Fetch issues a GET for url. wait is ignored; there is no page script to settle.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, wait time.Duration) (*models.Page, error) {
	body, err := f.GetBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return &models.Page{
		URL:       url,
		HTML:      string(body),
		UserAgent: f.userAgent,
	}, nil
}

// GetBytes returns the response body of a successful GET.
func (f *HTTPFetcher) GetBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if f.accept != "" {
		req.Header.Set("Accept", f.accept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s, status code: %d", url, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, nil
}
