package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datahunt/internal/config"
)

func TestSearxngSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "census csv", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Census","url":"https://census.example.gov/data","content":" tables "},
			{"title":"Other","url":"https://other.example.org/"},
			{"title":"Third","url":"https://third.example.org/"}
		]}`))
	}))
	defer srv.Close()

	p, err := NewSearxngProvider(srv.URL + "/")
	require.NoError(t, err)

	results, err := p.Search(context.Background(), "census csv", Options{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://census.example.gov/data", results[0].URL)
	assert.Equal(t, "tables", results[0].Snippet)
}

func TestBraveSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brave-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		resp := braveResponse{}
		resp.Web.Results = []braveResult{{Title: "Brave Result", URL: "https://brave.example/", Description: "snippet"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p, err := NewBraveProvider("brave-key", srv.URL)
	require.NoError(t, err)

	results, err := p.Search(context.Background(), "open data", Options{Limit: 3})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://brave.example/", results[0].URL)
}

func TestTavilySearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tv-key", req.APIKey)
		assert.Equal(t, 5, req.MaxResults)
		_, _ = w.Write([]byte(`{"results":[{"title":"T","url":"https://t.example/","content":"c","score":0.9}]}`))
	}))
	defer srv.Close()

	p, err := NewTavilyProvider("tv-key", srv.URL)
	require.NoError(t, err)

	results, err := p.Search(context.Background(), "q", Options{Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
}

func TestSearchErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewSearxngProvider(srv.URL)
	require.NoError(t, err)
	_, err = p.Search(context.Background(), "q", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(config.SearchConfig{})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewProvider(config.SearchConfig{Provider: "brave"})
	require.Error(t, err, "brave needs a key")

	p, err := NewProvider(config.SearchConfig{Provider: "tavily", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "tavily", p.Name())

	_, err = NewProvider(config.SearchConfig{Provider: "altavista"})
	require.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	out := Markdown([]Result{
		{Title: "Open [Data]", URL: "https://a.example/", Snippet: "line one\n line two"},
		{Title: "dup", URL: "https://a.example/"},
		{Title: "no url"},
		{URL: "https://b.example/x"},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "- [Open (Data)](https://a.example/): line one line two", lines[0])
	assert.Equal(t, "- [https://b.example/x](https://b.example/x)", lines[1])
}
