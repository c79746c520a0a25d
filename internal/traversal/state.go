package traversal

import (
	"net/url"
	"strings"

	"datahunt/pkg/types"
)

// DefaultMaxDepth is the hop ceiling used when none is configured.
const DefaultMaxDepth = 6

// Phase is the engine state a traversal is in before the next Step.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseSuggest
	PhaseClassify
	PhaseFallback
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseSuggest:
		return "awaiting_suggestion"
	case PhaseClassify:
		return "classifying"
	case PhaseFallback:
		return "fallback_scanning"
	case PhaseDone:
		return "terminal"
	default:
		return "unknown"
	}
}

// State is owned by exactly one traversal run and discarded at its end.
type State struct {
	Query          string
	StartURL       string
	CurrentURL     string
	CurrentContent string
	Depth          int
	MaxDepth       int
	Visited        map[string]struct{}

	Phase Phase
	// Suggestion holds the oracle's raw reference between PhaseSuggest and
	// PhaseClassify.
	Suggestion string
	// Candidate is the file URL that failed with not-found, pending a
	// fallback scan of the current page.
	Candidate    string
	CandidateErr error

	Trail []types.Hop
}

// NewState prepares a run starting at startURL.
func NewState(startURL, query string, maxDepth int) *State {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &State{
		Query:    query,
		StartURL: strings.TrimSpace(startURL),
		MaxDepth: maxDepth,
		Visited:  make(map[string]struct{}),
		Phase:    PhaseStart,
	}
}

// HasVisited reports whether rawURL was already fetched as a page.
func (s *State) HasVisited(rawURL string) bool {
	_, ok := s.Visited[visitKey(rawURL)]
	return ok
}

// MarkVisited adds rawURL to the visited set.
func (s *State) MarkVisited(rawURL string) {
	s.Visited[visitKey(rawURL)] = struct{}{}
}

func (s *State) record(hop types.Hop) {
	s.Trail = append(s.Trail, hop)
}

func (s *State) terminate(kind types.OutcomeKind, rawURL string, cause error) *types.Outcome {
	s.Phase = PhaseDone
	trail := make([]types.Hop, len(s.Trail))
	copy(trail, s.Trail)
	return &types.Outcome{
		Kind:  kind,
		URL:   rawURL,
		Cause: cause,
		Depth: s.Depth,
		Trail: trail,
	}
}

// visitKey canonicalises a URL so trivially different spellings of the same
// page share one visited entry.
func visitKey(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "http"
	}
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPortForScheme(scheme) {
		host = host + ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	key := scheme + "://" + host + path
	if q := u.RawQuery; q != "" {
		key += "?" + q
	}
	return key
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
