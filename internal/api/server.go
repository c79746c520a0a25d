package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"datahunt/internal/agent"
	"datahunt/internal/storage"
)

// Hunter runs hunts and single traversals.
type Hunter interface {
	Hunt(ctx context.Context, query string, maxDepth int) (agent.Report, error)
	Traverse(ctx context.Context, startURL, query string, maxDepth int) (agent.Report, error)
}

// RunStore looks up persisted attempts.
type RunStore interface {
	AttemptsForRun(ctx context.Context, runID string) ([]storage.Attempt, error)
}

// Submitter schedules work without blocking.
type Submitter interface {
	TrySubmit(fn agent.Job) error
}

// Server exposes the HTTP API for running hunts.
type Server struct {
	hunter  Hunter
	pool    Submitter
	runs    RunStore
	metrics http.Handler
	timeout time.Duration
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithRunStore enables GET /v1/runs/{id}.
func WithRunStore(store RunStore) Option {
	return func(s *Server) {
		s.runs = store
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithRequestTimeout bounds each hunt.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer wires handlers onto an HTTP mux.
func NewServer(hunter Hunter, pool Submitter, opts ...Option) *Server {
	s := &Server{
		hunter:  hunter,
		pool:    pool,
		timeout: 10 * time.Minute,
		logger:  slog.Default(),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/v1/hunts", s.handleHunts)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)
	s.mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	s.mux.HandleFunc("/docs", s.handleDocs)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

type huntResult struct {
	report agent.Report
	err    error
}

func (s *Server) handleHunts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req HuntRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json payload: %v", err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := make(chan huntResult, 1)
	reqCtx := r.Context()
	err := s.pool.TrySubmit(func(jobCtx context.Context) {
		ctx, cancel := context.WithTimeout(jobCtx, s.timeout)
		defer cancel()
		stop := context.AfterFunc(reqCtx, cancel)
		defer stop()

		var res huntResult
		if req.StartURL != "" {
			res.report, res.err = s.hunter.Traverse(ctx, req.StartURL, req.Query, req.MaxDepth)
		} else {
			res.report, res.err = s.hunter.Hunt(ctx, req.Query, req.MaxDepth)
		}
		results <- res
	})
	if err != nil {
		if errors.Is(err, agent.ErrPoolSaturated) {
			w.Header().Set("Retry-After", "5")
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	select {
	case <-reqCtx.Done():
		s.logger.Warn("client went away before hunt finished", "query", req.Query)
	case res := <-results:
		switch {
		case res.err == nil:
			writeJSON(w, http.StatusOK, res.report)
		case errors.Is(res.err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, res.err.Error())
		default:
			s.logger.Error("hunt failed", "query", req.Query, "run_id", res.report.RunID, "error", res.err)
			writeError(w, http.StatusBadGateway, res.err.Error())
		}
	}
}

func (r HuntRequest) validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return errors.New("query is required")
	}
	if r.MaxDepth < 0 || r.MaxDepth > MaxRequestDepth {
		return fmt.Errorf("max_depth must be between 0 and %d", MaxRequestDepth)
	}
	if r.StartURL != "" {
		u, err := url.Parse(r.StartURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("start_url %q must be an absolute http(s) url", r.StartURL)
		}
	}
	return nil
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/runs/"), "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		http.NotFound(w, r)
		return
	}
	runID, err := urlPathDecode(trimmed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	if s.runs == nil {
		writeError(w, http.StatusNotImplemented, "run log is not configured")
		return
	}
	attempts, err := s.runs.AttemptsForRun(r.Context(), runID)
	if err != nil {
		s.logger.Error("load run failed", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if len(attempts) == 0 {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   runID,
		"attempts": attempts,
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func urlPathDecode(segment string) (string, error) {
	return url.PathUnescape(segment)
}
