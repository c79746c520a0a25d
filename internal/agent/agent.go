// Package agent orchestrates a data hunt: plan a search strategy, gather
// candidate start pages, traverse them toward a data file and download it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"datahunt/internal/download"
	"datahunt/internal/links"
	"datahunt/internal/storage"
	"datahunt/internal/traversal"
	"datahunt/pkg/types"
)

// DefaultMaxCandidates bounds how many start URLs a hunt tries.
const DefaultMaxCandidates = 10

// Planner produces the search strategy and entry points for a query.
type Planner interface {
	SearchStrategy(ctx context.Context, query string) (string, error)
	FindEntryPoints(ctx context.Context, query, strategy string) (string, error)
}

// Traverser runs a single traversal.
type Traverser interface {
	Run(ctx context.Context, req traversal.Request) (types.Outcome, error)
}

// Downloader saves a located file.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (download.Result, error)
}

// DownloadObserver is notified of every download attempt.
type DownloadObserver interface {
	ObserveDownload(err error)
}

// Report summarises a hunt.
type Report struct {
	RunID      string            `json:"run_id"`
	Query      string            `json:"query"`
	Strategy   string            `json:"strategy,omitempty"`
	Candidates []string          `json:"candidates,omitempty"`
	Attempts   []storage.Attempt `json:"attempts"`
	Download   *download.Result  `json:"download,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Found reports whether the hunt downloaded a file.
func (r Report) Found() bool {
	return r.Download != nil
}

// Agent runs hunts. It is safe for concurrent use.
type Agent struct {
	planner       Planner
	traverser     Traverser
	downloader    Downloader
	runLog        storage.RunLog
	observer      DownloadObserver
	maxCandidates int
	logger        *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithRunLog persists every attempt.
func WithRunLog(log storage.RunLog) Option {
	return func(a *Agent) {
		a.runLog = log
	}
}

// WithDownloadObserver reports download results, eg. to metrics.
func WithDownloadObserver(o DownloadObserver) Option {
	return func(a *Agent) {
		a.observer = o
	}
}

// WithMaxCandidates caps the number of start URLs tried per hunt.
func WithMaxCandidates(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxCandidates = n
		}
	}
}

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New wires an Agent.
func New(planner Planner, traverser Traverser, downloader Downloader, opts ...Option) (*Agent, error) {
	if planner == nil || traverser == nil || downloader == nil {
		return nil, errors.New("agent requires a planner, a traverser and a downloader")
	}
	a := &Agent{
		planner:       planner,
		traverser:     traverser,
		downloader:    downloader,
		maxCandidates: DefaultMaxCandidates,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Hunt looks for a data file matching query. Candidates are tried in order
// until one yields a downloaded file. A report without a download is not an
// error; only planning failures and cancellation are.
func (a *Agent) Hunt(ctx context.Context, query string, maxDepth int) (Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Report{}, errors.New("query is required")
	}
	report := a.newReport(query)
	if err := ctx.Err(); err != nil {
		return a.finish(report), err
	}
	logger := a.logger.With("run_id", report.RunID)
	logger.Info("hunt started", "query", query)

	strategy, err := a.planner.SearchStrategy(ctx, query)
	if err != nil {
		return report, fmt.Errorf("search strategy: %w", err)
	}
	report.Strategy = strategy

	entryPoints, err := a.planner.FindEntryPoints(ctx, query, strategy)
	if err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		logger.Warn("entry points unavailable, using strategy urls only", "error", err)
	}
	report.Candidates = a.candidates(entryPoints, strategy)
	if len(report.Candidates) == 0 {
		logger.Warn("no candidate start urls")
	}

	for _, candidate := range report.Candidates {
		if err := ctx.Err(); err != nil {
			return a.finish(report), err
		}
		var done bool
		if c := links.Classify(candidate); c.IsFile {
			done = a.fetchDirect(ctx, &report, candidate, c.Extension, logger)
		} else {
			done, err = a.traverse(ctx, &report, candidate, maxDepth, logger)
			if err != nil {
				return a.finish(report), err
			}
		}
		if done {
			break
		}
	}
	report = a.finish(report)
	logger.Info("hunt finished", "found", report.Found(), "attempts", len(report.Attempts))
	return report, nil
}

// Traverse runs a single traversal from startURL and downloads the file it
// finds, skipping the planning steps.
func (a *Agent) Traverse(ctx context.Context, startURL, query string, maxDepth int) (Report, error) {
	report := a.newReport(strings.TrimSpace(query))
	report.Candidates = []string{startURL}
	logger := a.logger.With("run_id", report.RunID)
	if _, err := a.traverse(ctx, &report, startURL, maxDepth, logger); err != nil {
		return a.finish(report), err
	}
	return a.finish(report), nil
}

// BatchResult pairs a query with its hunt report.
type BatchResult struct {
	Query  string `json:"query"`
	Report Report `json:"report"`
	Err    error  `json:"-"`
}

// HuntBatch runs independent hunts on a worker pool. Results keep the order
// of queries.
func (a *Agent) HuntBatch(ctx context.Context, queries []string, maxDepth, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	pool, err := NewWorkerPool(ctx, concurrency, len(queries))
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	results := make([]BatchResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		results[i].Query = q
		wg.Add(1)
		if err := pool.Submit(ctx, func(jobCtx context.Context) {
			defer wg.Done()
			results[i].Report, results[i].Err = a.Hunt(jobCtx, q, maxDepth)
		}); err != nil {
			wg.Done()
			results[i].Err = err
		}
	}
	wg.Wait()
	return results, ctx.Err()
}

func (a *Agent) newReport(query string) Report {
	return Report{
		RunID:     uuid.NewString(),
		Query:     query,
		StartedAt: time.Now().UTC(),
	}
}

func (a *Agent) finish(r Report) Report {
	r.FinishedAt = time.Now().UTC()
	return r
}

// candidates merges entry-point links with URLs found in the strategy,
// keeping first-seen order and only absolute http(s) URLs.
func (a *Agent) candidates(entryPoints, strategy string) []string {
	raw := append(links.ExtractLinks(entryPoints), links.ExtractURLs(entryPoints)...)
	raw = append(raw, links.ExtractURLs(strategy)...)

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		u, err := url.Parse(strings.TrimSpace(r))
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		u.Fragment = ""
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
		if len(out) == a.maxCandidates {
			break
		}
	}
	return out
}

func (a *Agent) traverse(ctx context.Context, report *Report, startURL string, maxDepth int, logger *slog.Logger) (bool, error) {
	started := time.Now().UTC()
	out, err := a.traverser.Run(ctx, traversal.Request{
		StartURL: startURL,
		Query:    report.Query,
		MaxDepth: maxDepth,
	})
	if err != nil {
		return false, err
	}
	attempt := storage.Attempt{
		RunID:     report.RunID,
		Query:     report.Query,
		StartURL:  startURL,
		Outcome:   out,
		Cause:     out.CauseString(),
		StartedAt: started,
	}
	if out.Found() {
		attempt.DownloadPath = a.download(ctx, report, out.URL, logger)
	}
	a.record(ctx, report, attempt, logger)
	return report.Found(), nil
}

// fetchDirect downloads a candidate that already names a data file.
func (a *Agent) fetchDirect(ctx context.Context, report *Report, fileURL, ext string, logger *slog.Logger) bool {
	started := time.Now().UTC()
	attempt := storage.Attempt{
		RunID:    report.RunID,
		Query:    report.Query,
		StartURL: fileURL,
		Outcome: types.Outcome{
			Kind:  types.OutcomeFileFound,
			URL:   fileURL,
			Trail: []types.Hop{{URL: fileURL, Kind: types.HopFile, Extension: ext}},
		},
		StartedAt: started,
	}
	attempt.DownloadPath = a.download(ctx, report, fileURL, logger)
	if attempt.DownloadPath == "" {
		attempt.Cause = "download failed"
	}
	a.record(ctx, report, attempt, logger)
	return report.Found()
}

func (a *Agent) download(ctx context.Context, report *Report, fileURL string, logger *slog.Logger) string {
	res, err := a.downloader.Download(ctx, fileURL)
	if a.observer != nil {
		a.observer.ObserveDownload(err)
	}
	if err != nil {
		logger.Warn("download failed", "url", fileURL, "error", err)
		return ""
	}
	logger.Info("file downloaded", "url", fileURL, "path", res.Path, "bytes", res.Bytes)
	report.Download = &res
	return res.Path
}

func (a *Agent) record(ctx context.Context, report *Report, attempt storage.Attempt, logger *slog.Logger) {
	attempt.FinishedAt = time.Now().UTC()
	report.Attempts = append(report.Attempts, attempt)
	if a.runLog == nil {
		return
	}
	if err := a.runLog.SaveAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		logger.Warn("persist attempt failed", "start_url", attempt.StartURL, "error", err)
	}
}
