package main

import (
	"errors"
	"fmt"
	"log/slog"

	"datahunt/internal/agent"
	"datahunt/internal/config"
	"datahunt/internal/download"
	"datahunt/internal/fetcher"
	"datahunt/internal/llm"
	"datahunt/internal/metrics"
	"datahunt/internal/oracle"
	"datahunt/internal/robots"
	"datahunt/internal/search"
	"datahunt/internal/storage"
	"datahunt/internal/traversal"
)

// app holds the assembled components shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	agent   *agent.Agent
	metrics *metrics.Recorder
	store   *storage.SQLWriter
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close run log", "error", err)
		}
	}
}

func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Fetch.UserAgent,
		Headers:      cfg.Fetch.Headers,
		Timeout:      cfg.Fetch.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		ProxyURL:     cfg.Fetch.ProxyURL,
		Logger:       logger,
		Retry: fetcher.RetryOptions{
			MaxRetries: cfg.Fetch.Retry.MaxRetries,
			BaseDelay:  cfg.Fetch.Retry.BaseDelay.Duration,
			MaxDelay:   cfg.Fetch.Retry.MaxDelay.Duration,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialise fetcher: %w", err)
	}

	var pageFetcher fetcher.Fetcher = httpFetcher
	if cfg.Rendering.Enabled {
		renderer := fetcher.NewChromedpRenderer(fetcher.RenderOptions{
			Timeout:            cfg.Rendering.Timeout.Duration,
			WaitForSelector:    cfg.Rendering.WaitForSelector,
			UserAgent:          cfg.Fetch.UserAgent,
			MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
			ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
			SettleDelay:        cfg.Rendering.SettleDelay.Duration,
		}, logger)
		pageFetcher = fetcher.NewComposite(httpFetcher, renderer, logger)
	}

	limiter := fetcher.NewHostLimiter(cfg.RateLimit.PerHostDelay.Duration, cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration)
	if cfg.Robots.Respect || limiter != nil {
		var policy fetcher.RobotsPolicy
		if cfg.Robots.Respect {
			policy = robots.NewAgent(cfg.Robots, nil)
		}
		pageFetcher = fetcher.NewPolite(pageFetcher, policy, limiter)
	}

	llmClient, err := llm.NewClient(cfg.LLM, llm.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("initialise llm client: %w", err)
	}

	oracleOpts := []oracle.Option{
		oracle.WithMaxContentChars(cfg.Traversal.MaxContentChars),
		oracle.WithLogger(logger),
	}
	provider, err := search.NewProvider(cfg.Search)
	switch {
	case err == nil:
		oracleOpts = append(oracleOpts, oracle.WithSearch(provider, cfg.Search.Limit))
	case errors.Is(err, search.ErrNotConfigured):
		logger.Debug("web search disabled, entry points come from the model")
	default:
		return nil, fmt.Errorf("initialise search provider: %w", err)
	}
	guide, err := oracle.New(llmClient, oracleOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise oracle: %w", err)
	}

	recorder := metrics.New()
	engine, err := traversal.NewEngine(pageFetcher, guide,
		traversal.WithMaxDepth(cfg.Traversal.MaxDepth),
		traversal.WithRenderedPages(cfg.Rendering.Enabled),
		traversal.WithRecorder(recorder),
		traversal.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise traversal engine: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, metrics: recorder}
	agentOpts := []agent.Option{
		agent.WithDownloadObserver(recorder),
		agent.WithLogger(logger),
	}
	if cfg.DB.Enabled() {
		store, err := storage.NewSQLWriter(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("initialise run log: %w", err)
		}
		a.store = store
		agentOpts = append(agentOpts, agent.WithRunLog(store))
	}

	downloader := download.New(cfg.Download, nil, logger)
	a.agent, err = agent.New(guide, engine, downloader, agentOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
