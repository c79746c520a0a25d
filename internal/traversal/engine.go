// Package traversal implements the guided link-traversal engine: a state
// machine that walks from a start page toward a data file by asking an
// oracle for the next hop.
package traversal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"datahunt/internal/fetcher"
	"datahunt/internal/links"
	"datahunt/pkg/types"
)

// Oracle suggests the next link or file to pursue. The answer is free text.
type Oracle interface {
	SuggestNext(ctx context.Context, query, pageContent string) (string, error)
}

// Recorder observes hops and outcomes, eg. for metrics.
type Recorder interface {
	ObserveHop(hop types.Hop)
	ObserveOutcome(outcome types.Outcome)
}

// Request describes a single traversal run.
type Request struct {
	StartURL string
	Query    string
	// MaxDepth overrides the engine default when > 0.
	MaxDepth int
}

// Engine drives traversal runs. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	fetcher  fetcher.Fetcher
	oracle   Oracle
	maxDepth int
	render   bool
	recorder Recorder
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth sets the default hop ceiling.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithRenderedPages asks the fetcher to render pages (not files) with JavaScript.
func WithRenderedPages(render bool) Option {
	return func(e *Engine) {
		e.render = render
	}
}

// WithRecorder attaches a hop/outcome observer.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine builds an engine around a fetcher and an oracle.
func NewEngine(f fetcher.Fetcher, o Oracle, opts ...Option) (*Engine, error) {
	if f == nil {
		return nil, errors.New("traversal engine requires a fetcher")
	}
	if o == nil {
		return nil, errors.New("traversal engine requires an oracle")
	}
	e := &Engine{
		fetcher:  f,
		oracle:   o,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run drives a traversal to its terminal outcome. Cancellation of ctx is
// honoured between hops only; an in-flight fetch or oracle call completes
// (bounded by its own timeout) before the run stops with ctx.Err().
func (e *Engine) Run(ctx context.Context, req Request) (types.Outcome, error) {
	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = e.maxDepth
	}
	st := NewState(req.StartURL, req.Query, maxDepth)
	logger := e.logger.With("start_url", st.StartURL, "max_depth", st.MaxDepth)
	logger.Info("traversal started")

	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("traversal cancelled", "depth", st.Depth, "phase", st.Phase.String())
			return types.Outcome{Depth: st.Depth, Trail: st.Trail}, err
		}
		out := e.Step(ctx, st)
		if out == nil {
			continue
		}
		if e.recorder != nil {
			e.recorder.ObserveOutcome(*out)
		}
		logger.Info("traversal finished",
			"outcome", string(out.Kind),
			"url", out.URL,
			"depth", out.Depth,
			"hops", len(out.Trail),
			"cause", out.CauseString(),
		)
		return *out, nil
	}
}

// Step performs exactly one transition of st and returns the terminal
// outcome once one is reached, or nil when the run continues.
func (e *Engine) Step(ctx context.Context, st *State) *types.Outcome {
	// calls to collaborators are atomic with respect to cancellation
	callCtx := context.WithoutCancel(ctx)

	switch st.Phase {
	case PhaseStart:
		return e.start(callCtx, st)
	case PhaseSuggest:
		return e.suggest(callCtx, st)
	case PhaseClassify:
		return e.classify(callCtx, st)
	case PhaseFallback:
		return e.fallback(callCtx, st)
	default:
		return st.terminate(types.OutcomeNoSuggestion, "", fmt.Errorf("step called in phase %s", st.Phase))
	}
}

func (e *Engine) start(ctx context.Context, st *State) *types.Outcome {
	start, err := normaliseStart(st.StartURL)
	if err != nil {
		return st.terminate(types.OutcomeFetchFailed, st.StartURL, err)
	}
	st.MarkVisited(start)
	page, err := e.fetch(ctx, st, start, types.FetchPage, types.HopPage, "", "")
	if err != nil {
		return st.terminate(types.OutcomeFetchFailed, start, err)
	}
	e.enter(st, start, page)
	return nil
}

func (e *Engine) suggest(ctx context.Context, st *State) *types.Outcome {
	answer, err := e.oracle.SuggestNext(ctx, st.Query, st.CurrentContent)
	if err != nil {
		e.logger.Warn("oracle call failed", "url", st.CurrentURL, "depth", st.Depth, "error", err)
		return st.terminate(types.OutcomeNoSuggestion, "", fmt.Errorf("oracle: %w", err))
	}
	ref, ok := links.ExtractSuggestion(answer)
	if !ok {
		e.logger.Debug("oracle answer holds no usable url", "url", st.CurrentURL, "answer_bytes", len(answer))
		return st.terminate(types.OutcomeNoSuggestion, "", nil)
	}
	st.Suggestion = ref
	st.Phase = PhaseClassify
	return nil
}

func (e *Engine) classify(ctx context.Context, st *State) *types.Outcome {
	suggestion := st.Suggestion
	st.Suggestion = ""

	target, err := links.Resolve(suggestion, st.CurrentURL)
	if err != nil {
		e.logger.Debug("suggestion does not resolve", "suggestion", suggestion, "error", err)
		return st.terminate(types.OutcomeNoSuggestion, "", err)
	}
	class := links.Classify(target)
	e.logger.Debug("suggestion classified",
		"suggestion", suggestion,
		"target", target,
		"is_file", class.IsFile,
		"reason", string(class.Reason),
	)

	if class.IsFile {
		_, err := e.fetch(ctx, st, target, types.FetchFile, types.HopFile, suggestion, class.Extension)
		switch {
		case err == nil:
			return st.terminate(types.OutcomeFileFound, target, nil)
		case fetcher.IsNotFound(err):
			st.Candidate = target
			st.CandidateErr = err
			st.Phase = PhaseFallback
			return nil
		default:
			return st.terminate(types.OutcomeFetchFailed, target, err)
		}
	}

	if st.HasVisited(target) {
		return st.terminate(types.OutcomeCycleDetected, target, nil)
	}
	if st.Depth+1 > st.MaxDepth {
		return st.terminate(types.OutcomeMaxDepthExceeded, target, nil)
	}
	st.MarkVisited(target)
	page, err := e.fetch(ctx, st, target, types.FetchPage, types.HopPage, suggestion, class.Extension)
	if err != nil {
		return st.terminate(types.OutcomeFetchFailed, target, err)
	}
	st.Depth++
	e.enter(st, target, page)
	return nil
}

func (e *Engine) fallback(ctx context.Context, st *State) *types.Outcome {
	candidate, cause := st.Candidate, st.CandidateErr
	st.Candidate, st.CandidateErr = "", nil

	link, ok := links.FindFallbackLink([]byte(st.CurrentContent), st.CurrentURL)
	if !ok {
		e.logger.Debug("fallback scan found no data link", "url", st.CurrentURL)
		return st.terminate(types.OutcomeFetchFailed, candidate, cause)
	}
	e.logger.Info("falling back to page anchor", "missing", candidate, "fallback", link)
	ext := links.Classify(link).Extension
	if _, err := e.fetch(ctx, st, link, types.FetchFile, types.HopFallback, "", ext); err != nil {
		return st.terminate(types.OutcomeFetchFailed, link, err)
	}
	return st.terminate(types.OutcomeFileFound, link, nil)
}

// enter makes page the current page and waits for the next suggestion.
func (e *Engine) enter(st *State, requested string, page *types.Page) {
	st.CurrentURL = requested
	st.CurrentContent = ""
	if page != nil {
		if base := page.BaseURL(); base != nil && base.IsAbs() {
			st.CurrentURL = base.String()
			st.MarkVisited(st.CurrentURL)
		}
		st.CurrentContent = string(page.Body)
	}
	st.Phase = PhaseSuggest
}

func (e *Engine) fetch(ctx context.Context, st *State, rawURL string, kind types.FetchKind, hopKind types.HopKind, suggestion, ext string) (*types.Page, error) {
	hop := types.Hop{
		URL:        rawURL,
		Kind:       hopKind,
		Depth:      st.Depth,
		Suggestion: suggestion,
		Extension:  ext,
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		err = fmt.Errorf("parse url: %w", err)
		hop.Error = err.Error()
		e.observe(st, hop)
		return nil, err
	}
	page, err := e.fetcher.Fetch(ctx, types.FetchRequest{
		URL:    u,
		Kind:   kind,
		Depth:  st.Depth,
		Render: e.render && kind == types.FetchPage,
	})
	if err != nil {
		hop.Error = err.Error()
		e.logger.Warn("fetch failed", "url", rawURL, "kind", string(kind), "depth", st.Depth, "error", err)
	}
	e.observe(st, hop)
	return page, err
}

func (e *Engine) observe(st *State, hop types.Hop) {
	st.record(hop)
	if e.recorder != nil {
		e.recorder.ObserveHop(hop)
	}
}

func normaliseStart(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("start url is empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse start url %q: %w", raw, err)
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + raw)
		if err != nil {
			return "", fmt.Errorf("parse start url %q: %w", raw, err)
		}
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("start url %q missing host", raw)
	}
	return parsed.String(), nil
}
