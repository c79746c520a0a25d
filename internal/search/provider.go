// Package search looks up candidate portal pages through a web search API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"datahunt/internal/config"
)

const defaultTimeout = 15 * time.Second

// Provider runs a web search.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// Result is a single search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Options controls a search call.
type Options struct {
	Limit int
}

// ErrNotConfigured is returned by NewProvider when no provider is selected.
var ErrNotConfigured = errors.New("no search provider configured")

// NewProvider builds the provider named in cfg.
func NewProvider(cfg config.SearchConfig) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, ErrNotConfigured
	case "searxng":
		return NewSearxngProvider(cfg.APIURL)
	case "brave":
		return NewBraveProvider(cfg.APIKey, cfg.APIURL)
	case "tavily":
		return NewTavilyProvider(cfg.APIKey, cfg.APIURL)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}

// Markdown renders results as a markdown link list, one hit per line,
// skipping results without a URL and repeated URLs.
func Markdown(results []Result) string {
	var sb strings.Builder
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		u := strings.TrimSpace(r.URL)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = u
		}
		title = strings.NewReplacer("[", "(", "]", ")").Replace(title)
		fmt.Fprintf(&sb, "- [%s](%s)", title, u)
		if s := strings.Join(strings.Fields(r.Snippet), " "); s != "" {
			if len(s) > 160 {
				s = s[:160] + "..."
			}
			sb.WriteString(": " + s)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func doJSON(client *http.Client, req *http.Request, provider string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s request failed with status %d", provider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}
