package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	t.Setenv(EnvLLMAPIKey, "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadFromReader(strings.NewReader(`
traversal:
  max_depth: 4
fetch:
  request_timeout: 10s
  retry:
    max_retries: 1
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Traversal.MaxDepth)
	assert.Equal(t, 10*time.Second, cfg.Fetch.RequestTimeout.Duration)
	assert.Equal(t, 1, cfg.Fetch.Retry.MaxRetries)
	assert.Equal(t, "./downloads", cfg.Download.Directory)
	assert.Equal(t, 30*time.Second, cfg.Download.Timeout.Duration)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestLoadFromReaderEmptyDocument(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Traversal.MaxDepth)
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("traversal:\n  max_hops: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero depth", func(c *Config) { c.Traversal.MaxDepth = 0 }, "traversal.max_depth"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bard" }, "llm.provider"},
		{"searxng without url", func(c *Config) { c.Search.Provider = "searxng" }, "search.api_url"},
		{"negative retries", func(c *Config) { c.Fetch.Retry.MaxRetries = -1 }, "fetch.retry.max_retries"},
		{"no download dir", func(c *Config) { c.Download.Directory = "" }, "download.directory"},
		{"no concurrency", func(c *Config) { c.Server.MaxConcurrency = 0 }, "server.max_concurrency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestApplyEnvProviderFallback(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY": "sk-openai",
		"GEMINI_API_KEY": "gm-key",
		EnvSearchAPIKey:  "search-key",
		EnvDBDSN:         "postgres://localhost/datahunt",
	}
	getenv := func(k string) string { return env[k] }

	cfg := Default()
	cfg.LLM.Provider = "openai"
	cfg.applyEnv(getenv)
	assert.Equal(t, "sk-openai", cfg.LLM.APIKey)
	assert.Equal(t, "search-key", cfg.Search.APIKey)
	assert.Equal(t, "postgres://localhost/datahunt", cfg.DB.DSN)
	assert.True(t, cfg.DB.Enabled())

	env[EnvLLMAPIKey] = "generic"
	cfg = Default()
	cfg.applyEnv(getenv)
	assert.Equal(t, "generic", cfg.LLM.APIKey)
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Traversal, cfg.Traversal)

	cfg, err = LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOptionalInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("traversal: [oops"), 0o600))

	_, err := LoadOptional(path)
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATAHUNT_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Setenv("DATAHUNT_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("DATAHUNT_TEST_VALUE"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("DATAHUNT_TEST_VALUE"))
}

func TestDurationYAMLSeconds(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("download:\n  timeout: 45\n"))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Download.Timeout.Duration)
}
