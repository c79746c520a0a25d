// Package oracle asks a language model, and optionally a web search API,
// where the requested data lives.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"datahunt/internal/links"
	"datahunt/internal/search"
)

// Completer sends a single prompt to a language model.
type Completer interface {
	Ask(ctx context.Context, system, prompt string) (string, error)
}

// Oracle answers the traversal engine's next-hop questions and plans hunts.
type Oracle struct {
	llm         Completer
	search      search.Provider
	searchLimit int
	digester    *Digester
	logger      *slog.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithSearch enables web search for entry points.
func WithSearch(p search.Provider, limit int) Option {
	return func(o *Oracle) {
		o.search = p
		o.searchLimit = limit
	}
}

// WithMaxContentChars caps the page digest sent to the model.
func WithMaxContentChars(n int) Option {
	return func(o *Oracle) {
		o.digester = NewDigester(n)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New builds an oracle backed by llm.
func New(llm Completer, opts ...Option) (*Oracle, error) {
	if llm == nil {
		return nil, errors.New("oracle requires a language model")
	}
	o := &Oracle{
		llm:      llm,
		digester: NewDigester(0),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SuggestNext asks which link on the page to follow. The answer is returned
// verbatim; a reply of NONE becomes the empty string.
func (o *Oracle) SuggestNext(ctx context.Context, query, pageContent string) (string, error) {
	digest := o.digester.Digest(pageContent)
	answer, err := o.llm.Ask(ctx, systemPrompt, nextHopPrompt(query, digest))
	if err != nil {
		return "", fmt.Errorf("suggest next: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(strings.Trim(answer, ".` "), "none") {
		return "", nil
	}
	return answer, nil
}

// SearchStrategy asks the model how to look for data answering query.
func (o *Oracle) SearchStrategy(ctx context.Context, query string) (string, error) {
	answer, err := o.llm.Ask(ctx, systemPrompt, strategyPrompt(query))
	if err != nil {
		return "", fmt.Errorf("search strategy: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// FindEntryPoints returns markdown text listing candidate start pages.
// A configured search provider is queried with query; without one, or when
// search fails or finds nothing, the model lists pages from the strategy.
func (o *Oracle) FindEntryPoints(ctx context.Context, query, strategy string) (string, error) {
	if o.search != nil {
		results, err := o.search.Search(ctx, searchQuery(query), search.Options{Limit: o.searchLimit})
		switch {
		case err != nil:
			o.logger.Warn("web search failed, asking the model instead", "provider", o.search.Name(), "error", err)
		case len(results) > 0:
			o.logger.Debug("web search entry points", "provider", o.search.Name(), "results", len(results))
			return search.Markdown(results), nil
		}
	}
	answer, err := o.llm.Ask(ctx, systemPrompt, entryPointsPrompt(strategy))
	if err != nil {
		return "", fmt.Errorf("find entry points: %w", err)
	}
	return answer, nil
}

// ExtractLinks returns the targets of markdown links in text, in order.
func (o *Oracle) ExtractLinks(text string) []string {
	return links.ExtractLinks(text)
}

func searchQuery(query string) string {
	q := strings.TrimSpace(query)
	lower := strings.ToLower(q)
	for _, hint := range []string{"csv", "dataset", "data", "xlsx", "json"} {
		if strings.Contains(lower, hint) {
			return q
		}
	}
	return q + " dataset csv"
}
