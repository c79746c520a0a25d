package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that carry secrets. They are never read from YAML.
const (
	EnvLLMAPIKey    = "LLM_API_KEY"
	EnvSearchAPIKey = "SEARCH_API_KEY"
	EnvDBDSN        = "DATAHUNT_DB_DSN"
)

var providerKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding values already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if key := strings.TrimSpace(getenv(EnvLLMAPIKey)); key != "" {
		c.LLM.APIKey = key
	} else if name, ok := providerKeyEnv[strings.ToLower(strings.TrimSpace(c.LLM.Provider))]; ok {
		c.LLM.APIKey = strings.TrimSpace(getenv(name))
	}
	if key := strings.TrimSpace(getenv(EnvSearchAPIKey)); key != "" {
		c.Search.APIKey = key
	}
	if dsn := strings.TrimSpace(getenv(EnvDBDSN)); dsn != "" {
		c.DB.DSN = dsn
	}
}
