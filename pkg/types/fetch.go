package types

import (
	"net/http"
	"net/url"
	"time"
)

// FetchKind tells the fetcher what the caller intends to do with the response.
type FetchKind string

const (
	// FetchPage requests a navigable page whose body is read and returned.
	FetchPage FetchKind = "page"
	// FetchFile probes a data file: the status is checked and the body discarded.
	FetchFile FetchKind = "file"
)

// FetchRequest models a single fetch issued by the traversal engine.
type FetchRequest struct {
	URL    *url.URL
	Kind   FetchKind
	Depth  int
	Render bool
}

// Page represents the fetched content.
type Page struct {
	URL             *url.URL
	FinalURL        *url.URL
	Body            []byte
	ContentType     string
	StatusCode      int
	Headers         http.Header
	FetchedAt       time.Time
	Rendered        bool
	ResponseLatency time.Duration
}

// BaseURL returns the URL relative references on the page resolve against.
func (p *Page) BaseURL() *url.URL {
	if p == nil {
		return nil
	}
	if p.FinalURL != nil {
		return p.FinalURL
	}
	return p.URL
}
