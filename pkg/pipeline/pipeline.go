// Package pipeline runs one diagnostics target through every configured
// source: fetch, parse, enrich, filter and export.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/artifact_manager"
	"github.com/dtnitsch/leakdiff/pkg/db"
	"github.com/dtnitsch/leakdiff/pkg/fetcher"
	"github.com/dtnitsch/leakdiff/pkg/parser"
	"github.com/dtnitsch/leakdiff/pkg/record"
	"github.com/dtnitsch/leakdiff/pkg/sink"
)

// Source is one browser path with the fetchers it can serve targets with.
// A nil fetcher means the source cannot serve that fetch kind.
type Source struct {
	Name    string
	Wait    time.Duration
	Browser fetcher.PageFetcher
	HTTP    fetcher.PageFetcher
	// SkipReason explains a missing Browser fetcher, e.g. binary not found.
	SkipReason string
}

func (s Source) fetcherFor(kind models.FetchKind) (fetcher.PageFetcher, string) {
	switch kind {
	case models.FetchHTTP:
		if s.HTTP == nil {
			return nil, "no HTTP client configured"
		}
		return s.HTTP, ""
	default:
		if s.Browser == nil {
			if s.SkipReason != "" {
				return nil, s.SkipReason
			}
			return nil, "no browser configured"
		}
		return s.Browser, ""
	}
}

// Result is the outcome of one source for one target.
type Result struct {
	Category string
	Source   string
	Status   string // db.StatusSuccess, db.StatusFailed or db.StatusSkipped
	Snapshot *models.Snapshot
	Path     string
	Err      error
}

// Options wires the optional collaborators of a Pipeline.
type Options struct {
	Manager *artifact_manager.Manager
	// Ledger and RunID record every outcome when set.
	Ledger *db.DB
	RunID  int64
	Sink   sink.Sink
	Logger *slog.Logger
	// Progress receives the human-readable [RUN]/[OK]/... lines.
	Progress io.Writer
	Clock    func() time.Time
}

// Pipeline is stateless between runs apart from its collaborators.
type Pipeline struct {
	manager  *artifact_manager.Manager
	ledger   *db.DB
	runID    int64
	sink     sink.Sink
	logger   *slog.Logger
	progress io.Writer
	clock    func() time.Time
}

// New returns a pipeline exporting through opts.Manager.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		manager:  opts.Manager,
		ledger:   opts.Ledger,
		runID:    opts.RunID,
		sink:     opts.Sink,
		logger:   opts.Logger,
		progress: opts.Progress,
		clock:    opts.Clock,
	}
	if p.manager == nil {
		p.manager = artifact_manager.NewManager("")
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.progress == nil {
		p.progress = io.Discard
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	return p
}

// RunAll runs target through sources in order. Per-source failures are part
// of the results; only export failures and cancellation stop the loop.
func (p *Pipeline) RunAll(ctx context.Context, sources []Source, target models.TargetConfig) ([]*Result, error) {
	var results []*Result
	for _, src := range sources {
		res, err := p.Run(ctx, src, target)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Run produces and exports one snapshot. A fetch or parse failure yields a
// snapshot with meta.error set and null data; a source that cannot serve the
// target is skipped without a snapshot.
func (p *Pipeline) Run(ctx context.Context, src Source, target models.TargetConfig) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ts := models.Timestamp(p.clock())
	res := &Result{Category: target.Category, Source: src.Name}

	f, reason := src.fetcherFor(target.Fetch)
	if f == nil {
		res.Status = db.StatusSkipped
		res.Err = fmt.Errorf("%s", reason)
		fmt.Fprintf(p.progress, "[WARN] %s skipped for %s: %s\n", src.Name, target.Category, reason)
		p.logger.Warn("source skipped", "source", src.Name, "category", target.Category, "reason", reason)
		p.track(ctx, res, ts)
		return res, nil
	}

	fmt.Fprintf(p.progress, "[RUN] %s %s\n", src.Name, target.Category)

	snap := &models.Snapshot{
		Meta: models.Meta{
			Browser:       src.Name,
			Timestamp:     ts,
			ScriptVersion: models.ScriptVersion,
		},
	}

	data, ua, err := p.collect(ctx, f, src, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		snap.Meta.Error = err.Error()
		res.Status = db.StatusFailed
		res.Err = err
	} else {
		snap.Meta.UserAgent = ua
		snap.Data = data
		res.Status = db.StatusSuccess
	}
	res.Snapshot = snap

	path, err := p.manager.Export(target.Category, src.Name, ts, snap)
	if err != nil {
		return nil, fmt.Errorf("failed to export %s/%s: %w", target.Category, src.Name, err)
	}
	res.Path = path

	if res.Status == db.StatusSuccess {
		fmt.Fprintf(p.progress, "[OK] %s %s: %d fields\n", src.Name, target.Category, len(data))
	} else {
		fmt.Fprintf(p.progress, "[ERROR] %s %s: %v\n", src.Name, target.Category, res.Err)
		p.logger.Error("collection failed", "source", src.Name, "category", target.Category, "error", res.Err)
	}
	fmt.Fprintf(p.progress, "[SAVE] %s\n", path)

	p.track(ctx, res, ts)
	return res, nil
}

// collect fetches and parses one page into the filtered record.
func (p *Pipeline) collect(ctx context.Context, f fetcher.PageFetcher, src Source, target models.TargetConfig) (record.Ordered, string, error) {
	page, err := f.Fetch(ctx, target.URL, src.Wait)
	if err != nil {
		return nil, "", err
	}

	rec, err := BuildRecord(page.HTML, target, p.logger)
	if err != nil {
		return nil, "", err
	}
	return record.Filter(rec, target.Whitelist), page.UserAgent, nil
}

// BuildRecord parses body per target and applies the enrichment hook and the
// IP fallback. The result is not yet filtered.
func BuildRecord(body string, target models.TargetConfig, logger *slog.Logger) (record.Record, error) {
	var mapping map[string]string
	if target.Labels != "" {
		m, ok := parser.LabelSets[target.Labels]
		if !ok {
			return nil, fmt.Errorf("unknown label set %q", target.Labels)
		}
		mapping = m
	}

	prs, err := parser.New(string(target.Mode), parser.Normalizer{Mapping: mapping, ReplaceSeparators: target.ReplaceSeparators}, logger)
	if err != nil {
		return nil, err
	}
	rec, err := prs.Parse(body)
	if err != nil {
		return nil, err
	}

	if target.Enrich != "" {
		hook, ok := parser.Hooks[target.Enrich]
		if !ok {
			return nil, fmt.Errorf("unknown enrich hook %q", target.Enrich)
		}
		hook(rec)
	}

	applyIPFallback(rec, body, target.IPFallback)
	return rec, nil
}

// applyIPFallback fills ip from the raw body when the parsed record has no
// usable ip. When extraction finds nothing ip is set to null.
func applyIPFallback(rec record.Record, body string, mode models.IPFallback) {
	if _, ok := rec.String("ip"); ok {
		return
	}
	var ip string
	var found bool
	switch mode {
	case models.IPFallbackBare:
		ip, found = parser.ExtractIP(body)
	case models.IPFallbackMarker:
		ip, found = parser.ExtractClientIP(body)
	default:
		return
	}
	if found {
		rec["ip"] = ip
	} else {
		rec["ip"] = nil
	}
}

// track writes res to the ledger and the sink. Failures there are logged only.
func (p *Pipeline) track(ctx context.Context, res *Result, ts string) {
	if p.ledger != nil && p.runID != 0 {
		rr := db.RunResult{
			RunID:    p.runID,
			Category: res.Category,
			Source:   res.Source,
			Status:   res.Status,
			FilePath: res.Path,
		}
		if res.Snapshot != nil {
			rr.Timestamp = ts
			rr.UserAgent = res.Snapshot.Meta.UserAgent
			rr.FieldCount = len(res.Snapshot.Data)
		}
		if res.Err != nil {
			rr.ErrorMessage = res.Err.Error()
		}
		if _, err := p.ledger.InsertRunResult(rr); err != nil {
			p.logger.Warn("failed to record run result", "source", res.Source, "category", res.Category, "error", err)
		}
	}

	if p.sink != nil && res.Snapshot != nil {
		entry := sink.Entry{
			RunID:    p.runID,
			Category: res.Category,
			Source:   res.Source,
			Path:     res.Path,
			Snapshot: res.Snapshot,
		}
		if err := p.sink.Put(ctx, entry); err != nil {
			p.logger.Warn("failed to mirror snapshot", "path", res.Path, "error", err)
		}
	}
}
