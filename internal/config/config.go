package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything needed to assemble the hunter: traversal
// limits, fetch behaviour, the oracle backend and the optional outer layers.
type Config struct {
	Traversal TraversalConfig `yaml:"traversal"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Robots    RobotsConfig    `yaml:"robots"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Rendering RenderingConfig `yaml:"rendering"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Download  DownloadConfig  `yaml:"download"`
	DB        SQLConfig       `yaml:"db"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
}

// TraversalConfig bounds a single traversal run.
type TraversalConfig struct {
	MaxDepth        int `yaml:"max_depth"`
	MaxContentChars int `yaml:"max_content_chars"`
}

// FetchConfig controls page and file retrieval.
type FetchConfig struct {
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	RequestTimeout Duration          `yaml:"request_timeout"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	ProxyURL       string            `yaml:"proxy_url"`
	Retry          RetryConfig       `yaml:"retry"`
}

// RetryConfig controls retries of transient failures.
type RetryConfig struct {
	MaxRetries int      `yaml:"max_retries"`
	BaseDelay  Duration `yaml:"base_delay"`
	MaxDelay   Duration `yaml:"max_delay"`
}

// RobotsConfig configures robots.txt handling.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// RateLimitConfig applies a fixed delay and a token bucket per host.
type RateLimitConfig struct {
	PerHostDelay Duration `yaml:"per_host_delay"`
	Requests     int      `yaml:"requests"`
	Window       Duration `yaml:"window"`
}

// RenderingConfig controls optional JavaScript rendering of pages.
type RenderingConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Timeout            Duration `yaml:"timeout"`
	WaitForSelector    string   `yaml:"wait_for_selector"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
	SettleDelay        Duration `yaml:"settle_delay"`
}

// LLMConfig selects the language model behind the oracle.
type LLMConfig struct {
	Provider    string      `yaml:"provider"`
	Model       string      `yaml:"model"`
	APIURL      string      `yaml:"api_url"`
	APIKey      string      `yaml:"-"`
	MaxTokens   int         `yaml:"max_tokens"`
	Temperature float64     `yaml:"temperature"`
	Timeout     Duration    `yaml:"timeout"`
	Retry       RetryConfig `yaml:"retry"`
}

// SearchConfig selects an optional web search backend for entry points.
type SearchConfig struct {
	Provider string `yaml:"provider"`
	APIURL   string `yaml:"api_url"`
	APIKey   string `yaml:"-"`
	Limit    int    `yaml:"limit"`
}

// DownloadConfig controls where found files are saved.
type DownloadConfig struct {
	Directory string   `yaml:"directory"`
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
}

// SQLConfig describes the run log database.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	CreateIfMissing bool     `yaml:"create_if_missing"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxConcurrency int      `yaml:"max_concurrency"`
	QueueSize      int      `yaml:"queue_size"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Traversal: TraversalConfig{
			MaxDepth:        6,
			MaxContentChars: 60000,
		},
		Fetch: FetchConfig{
			UserAgent:      defaultUserAgent,
			Headers:        map[string]string{},
			RequestTimeout: DurationFrom(30 * time.Second),
			MaxBodyBytes:   8 * 1024 * 1024,
			Retry: RetryConfig{
				MaxRetries: 2,
				BaseDelay:  DurationFrom(500 * time.Millisecond),
				MaxDelay:   DurationFrom(5 * time.Second),
			},
		},
		Robots: RobotsConfig{
			Respect:   false,
			Overrides: []string{},
			UserAgent: "datahunt/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Rendering: RenderingConfig{
			Timeout:            DurationFrom(30 * time.Second),
			ConcurrentSessions: 2,
			SettleDelay:        DurationFrom(time.Second),
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-1.5-flash",
			MaxTokens:   2048,
			Temperature: 0.2,
			Timeout:     DurationFrom(60 * time.Second),
			Retry: RetryConfig{
				MaxRetries: 3,
				BaseDelay:  DurationFrom(time.Second),
				MaxDelay:   DurationFrom(20 * time.Second),
			},
		},
		Search: SearchConfig{
			Limit: 8,
		},
		Download: DownloadConfig{
			Directory: "./downloads",
			Timeout:   DurationFrom(30 * time.Second),
			UserAgent: defaultUserAgent,
		},
		DB: SQLConfig{
			Driver:      "postgres",
			AutoMigrate: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxConcurrency: 4,
			QueueSize:      16,
			RequestTimeout: DurationFrom(10 * time.Minute),
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file, then
// overlays secrets from the environment.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()

	cfg := Default()
	if err := decodeYAML(fh, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// LoadOptional behaves like Load but falls back to defaults when path is
// empty or does not exist.
func LoadOptional(path string) (*Config, error) {
	if strings.TrimSpace(path) != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}
	cfg := Default()
	return finish(&cfg)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyEnv(os.Getenv)
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate enforces required invariants.
func (c Config) Validate() error {
	if c.Traversal.MaxDepth <= 0 {
		return fmt.Errorf("traversal.max_depth must be > 0 (got %d)", c.Traversal.MaxDepth)
	}
	if c.Traversal.MaxContentChars < 0 {
		return fmt.Errorf("traversal.max_content_chars must be >= 0 (got %d)", c.Traversal.MaxContentChars)
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0 (got %d)", c.Fetch.MaxBodyBytes)
	}
	if c.Fetch.RequestTimeout.Duration <= 0 {
		return errors.New("fetch.request_timeout must be > 0")
	}
	if c.Fetch.Retry.MaxRetries < 0 {
		return fmt.Errorf("fetch.retry.max_retries must be >= 0 (got %d)", c.Fetch.Retry.MaxRetries)
	}
	if c.LLM.Retry.MaxRetries < 0 {
		return fmt.Errorf("llm.retry.max_retries must be >= 0 (got %d)", c.LLM.Retry.MaxRetries)
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rate_limit.requests must be >= 0 (got %d)", c.RateLimit.Requests)
	}
	if c.Robots.Respect && c.Robots.UserAgent == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "ollama", "anthropic":
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	switch c.Search.Provider {
	case "", "searxng", "brave", "tavily":
	default:
		return fmt.Errorf("search.provider %q is not supported", c.Search.Provider)
	}
	if c.Search.Provider == "searxng" && c.Search.APIURL == "" {
		return errors.New("search.api_url is required for searxng")
	}
	if c.Download.Directory == "" {
		return errors.New("download.directory must be set")
	}
	if c.Server.MaxConcurrency <= 0 {
		return fmt.Errorf("server.max_concurrency must be > 0 (got %d)", c.Server.MaxConcurrency)
	}
	if c.Server.QueueSize < 0 {
		return fmt.Errorf("server.queue_size must be >= 0 (got %d)", c.Server.QueueSize)
	}
	return nil
}

func (c *Config) normalise() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	c.Fetch.ProxyURL = strings.TrimSpace(c.Fetch.ProxyURL)
	if c.Fetch.Headers == nil {
		c.Fetch.Headers = make(map[string]string)
	}
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Robots.Overrides = dedupeLower(c.Robots.Overrides)

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.APIURL = strings.TrimRight(strings.TrimSpace(c.LLM.APIURL), "/")
	c.Search.Provider = strings.ToLower(strings.TrimSpace(c.Search.Provider))
	c.Search.APIURL = strings.TrimRight(strings.TrimSpace(c.Search.APIURL), "/")

	c.Download.Directory = strings.TrimSpace(c.Download.Directory)
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = c.Fetch.UserAgent
	}
	c.DB.DSN = strings.TrimSpace(c.DB.DSN)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}

// Enabled reports whether any per-host throttling is active.
func (r RateLimitConfig) Enabled() bool {
	return r.PerHostDelay.Duration > 0 || (r.Requests > 0 && !r.Window.IsZero())
}

// Enabled reports whether the run log should be written.
func (s SQLConfig) Enabled() bool {
	return s.DSN != ""
}
