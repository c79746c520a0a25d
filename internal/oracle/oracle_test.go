package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datahunt/internal/search"
)

type fakeLLM struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeLLM) Ask(_ context.Context, _, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

type fakeSearch struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) Search(_ context.Context, query string, _ search.Options) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestSuggestNextSendsDigest(t *testing.T) {
	llm := &fakeLLM{answer: "  /files/report.csv \n"}
	o, err := New(llm, quiet())
	require.NoError(t, err)

	page := `<html><head><title>Open Data</title><script>var x = 1;</script></head>
<body><nav><a href="/about">About</a></nav><p>See <a href="/files/report.csv">the report</a>.</p></body></html>`

	answer, err := o.SuggestNext(context.Background(), "annual report", page)
	require.NoError(t, err)
	assert.Equal(t, "/files/report.csv", answer)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, `"annual report"`)
	assert.Contains(t, prompt, "# Open Data")
	assert.Contains(t, prompt, "[the report](/files/report.csv)")
	assert.Contains(t, prompt, "[About](/about)")
	assert.NotContains(t, prompt, "var x")
}

func TestSuggestNextNone(t *testing.T) {
	o, err := New(&fakeLLM{answer: "NONE."}, quiet())
	require.NoError(t, err)

	answer, err := o.SuggestNext(context.Background(), "q", "<html><body></body></html>")
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestSuggestNextError(t *testing.T) {
	o, err := New(&fakeLLM{err: errors.New("quota exceeded")}, quiet())
	require.NoError(t, err)

	_, err = o.SuggestNext(context.Background(), "q", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSearchStrategy(t *testing.T) {
	llm := &fakeLLM{answer: "Try [census](https://census.example.gov/)\n"}
	o, err := New(llm, quiet())
	require.NoError(t, err)

	strategy, err := o.SearchStrategy(context.Background(), "US city populations")
	require.NoError(t, err)
	assert.Equal(t, "Try [census](https://census.example.gov/)", strategy)
	assert.Contains(t, llm.prompts[0], "US city populations")
}

func TestFindEntryPointsUsesSearch(t *testing.T) {
	llm := &fakeLLM{answer: "unused"}
	s := &fakeSearch{results: []search.Result{
		{Title: "CO2 data", URL: "https://co2.example.org/data"},
		{Title: "Emissions", URL: "https://em.example.org/"},
	}}
	o, err := New(llm, WithSearch(s, 5), quiet())
	require.NoError(t, err)

	text, err := o.FindEntryPoints(context.Background(), "global CO2 emissions", "strategy")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://co2.example.org/data", "https://em.example.org/"}, o.ExtractLinks(text))
	assert.Empty(t, llm.prompts)
	assert.Equal(t, []string{"global CO2 emissions dataset csv"}, s.queries)
}

func TestFindEntryPointsFallsBackToModel(t *testing.T) {
	llm := &fakeLLM{answer: "- [Portal](https://portal.example.org/)"}
	s := &fakeSearch{err: errors.New("search down")}
	o, err := New(llm, WithSearch(s, 5), quiet())
	require.NoError(t, err)

	text, err := o.FindEntryPoints(context.Background(), "stock data", "look at exchanges")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://portal.example.org/"}, o.ExtractLinks(text))
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "look at exchanges")
	assert.Equal(t, []string{"stock data"}, s.queries)
}

func TestDigestTruncatesAndPassesPlainText(t *testing.T) {
	d := NewDigester(10)
	assert.Equal(t, "plain text", d.Digest("  plain text  "))

	long := d.Digest(strings.Repeat("é", 25))
	assert.True(t, strings.HasPrefix(long, strings.Repeat("é", 10)))
	assert.Contains(t, long, "[content truncated]")
}

func TestDigestDropsHiddenNoise(t *testing.T) {
	d := NewDigester(0)
	out := d.Digest(`<html><body>
<div hidden><a href="/secret.csv">hidden</a></div>
<style>.x{}</style>
<table><tr><th>Year</th></tr><tr><td><a href="y2023.xlsx">2023</a></td></tr></table>
</body></html>`)
	assert.NotContains(t, out, "secret.csv")
	assert.NotContains(t, out, ".x{}")
	assert.Contains(t, out, "(y2023.xlsx)")
}
