package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultTavilyURL = "https://api.tavily.com/search"

// TavilyProvider queries the Tavily Search API.
type TavilyProvider struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewTavilyProvider creates a Tavily provider.
func NewTavilyProvider(apiKey, apiURL string) (*TavilyProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("tavily api key is required")
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultTavilyURL
	}
	return &TavilyProvider{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (p *TavilyProvider) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search executes a query.
func (p *TavilyProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	payload, err := json.Marshal(tavilyRequest{
		APIKey:     p.apiKey,
		Query:      query,
		MaxResults: opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var decoded tavilyResponse
	if err := doJSON(p.client, req, "tavily", &decoded); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: strings.TrimSpace(item.Content),
			Score:   item.Score,
		})
	}
	return results, nil
}
