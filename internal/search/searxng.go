package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SearxngProvider queries a SearXNG instance.
type SearxngProvider struct {
	apiURL string
	client *http.Client
}

// NewSearxngProvider creates a SearXNG provider.
func NewSearxngProvider(apiURL string) (*SearxngProvider, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, errors.New("searxng api url is required")
	}
	return &SearxngProvider{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (p *SearxngProvider) Name() string { return "searxng" }

type searxngResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search executes a query. SearXNG has no result count parameter, so the
// limit is applied client side.
func (p *SearxngProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	endpoint, err := url.Parse(p.apiURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse searxng url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", query)
	q.Set("format", "json")
	if opts.Limit > 0 {
		q.Set("count", strconv.Itoa(opts.Limit))
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create searxng request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var decoded searxngResponse
	if err := doJSON(p.client, req, "searxng", &decoded); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		if opts.Limit > 0 && len(results) == opts.Limit {
			break
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: strings.TrimSpace(item.Content),
			Score:   item.Score,
		})
	}
	return results, nil
}
