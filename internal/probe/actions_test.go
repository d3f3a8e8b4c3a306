package probe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/fetcher"
	"github.com/google/go-cmp/cmp"
)

const leakPage = `<html><head><title> Browser Leaks </title></head><body>
<span id="client-ipv4" class="flag" data-ip="198.51.100.4">198.51.100.4</span>
<table>
<tr><td>IP Address</td><td>198.51.100.4</td></tr>
<tr><td>State/Region</td><td>Mazovia</td></tr>
</table></body></html>`

type stubFetcher struct {
	page *models.Page
	err  error
}

func (s stubFetcher) Fetch(ctx context.Context, url string, wait time.Duration) (*models.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Reading
	}{
		{"full page", leakPage, Reading{IP: "198.51.100.4", Region: "Mazovia"}},
		{"bare address", "your ip is 10.1.2.3", Reading{IP: "10.1.2.3"}},
		{"nothing", "<p>blocked</p>", Reading{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Extract(tt.body)); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProbeOnce_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(leakPage))
	}))
	defer srv.Close()

	f, err := fetcher.NewHTTPFetcher(fetcher.HTTPConfig{Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	got, err := probeOnce(context.Background(), f, srv.URL, 0)
	if err != nil {
		t.Fatalf("probeOnce() error = %v", err)
	}
	if got.IP != "198.51.100.4" || got.Region != "Mazovia" {
		t.Errorf("probeOnce() = %+v", got)
	}
}

func TestHTTPProbe_FailuresPrintEmptyLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(leakPage))
	}))
	defer srv.Close()

	cfg := models.DefaultConfig()
	cfg.ProbeURL = srv.URL
	cfg.ProbeTimeout = 2 * time.Second
	// Nothing listens on port 1, so the proxied probe fails.
	cfg.Sources[1].Proxy = "127.0.0.1:1"

	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if err := httpProbe(context.Background(), cfg, logger, &out); err != nil {
		t.Fatalf("httpProbe() error = %v", err)
	}
	want := "198.51.100.4\nMazovia\n\n\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestSmoke(t *testing.T) {
	var out bytes.Buffer
	smoke(context.Background(), &out, "Chromium", stubFetcher{page: &models.Page{HTML: leakPage}}, SmokeURL, 0)
	smoke(context.Background(), &out, "TorBrowser", stubFetcher{err: errors.New("launch failed")}, SmokeURL, 0)

	want := "=== Test Chromium ===\nTitle: Browser Leaks\n" +
		"=== Test TorBrowser ===\nError during test: launch failed\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("smoke output mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceByRole(t *testing.T) {
	cfg := models.DefaultConfig()
	if s, ok := sourceByRole(cfg, models.RoleAnonymizing); !ok || s.Name != "TorBrowser" {
		t.Errorf("sourceByRole(anonymizing) = %+v, %v", s, ok)
	}
	cfg.Sources = cfg.Sources[1:]
	if _, ok := sourceByRole(cfg, models.RoleRegular); ok {
		t.Error("sourceByRole(regular) found a source that is not configured")
	}
}

func TestSmokeSources(t *testing.T) {
	cfg := models.DefaultConfig()

	all, err := smokeSources(cfg, "")
	if err != nil || len(all) != len(cfg.Sources) {
		t.Errorf("smokeSources(\"\") = %d sources, %v", len(all), err)
	}
	one, err := smokeSources(cfg, "TorBrowser")
	if err != nil || len(one) != 1 || one[0].Role != models.RoleAnonymizing {
		t.Errorf("smokeSources(TorBrowser) = %+v, %v", one, err)
	}
	if _, err := smokeSources(cfg, "Opera"); err == nil {
		t.Error("smokeSources(unknown) error = nil")
	}
}
