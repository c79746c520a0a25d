package types

// OutcomeKind enumerates the terminal results of a traversal run.
type OutcomeKind string

const (
	OutcomeFileFound        OutcomeKind = "file_found"
	OutcomeMaxDepthExceeded OutcomeKind = "max_depth_exceeded"
	OutcomeCycleDetected    OutcomeKind = "cycle_detected"
	OutcomeFetchFailed      OutcomeKind = "fetch_failed"
	OutcomeNoSuggestion     OutcomeKind = "no_suggestion"
)

// HopKind distinguishes what a hop fetched.
type HopKind string

const (
	HopPage     HopKind = "page"
	HopFile     HopKind = "file"
	HopFallback HopKind = "fallback"
)

// Hop records one fetch made during a traversal run.
type Hop struct {
	URL        string  `json:"url"`
	Kind       HopKind `json:"kind"`
	Depth      int     `json:"depth"`
	Suggestion string  `json:"suggestion,omitempty"`
	Extension  string  `json:"extension,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Outcome is the terminal value of a traversal run. URL names the file found,
// the URL that failed, or the page that would have been revisited or
// exceeded the depth budget. Cause carries the fetch error for FetchFailed and
// the oracle error, if any, for NoSuggestion.
type Outcome struct {
	Kind  OutcomeKind `json:"kind"`
	URL   string      `json:"url,omitempty"`
	Cause error       `json:"-"`
	Depth int         `json:"depth"`
	Trail []Hop       `json:"trail"`
}

// Found reports whether the run located a data file.
func (o Outcome) Found() bool {
	return o.Kind == OutcomeFileFound
}

// CauseString returns the failure cause as text, or "" when there is none.
func (o Outcome) CauseString() string {
	if o.Cause == nil {
		return ""
	}
	return o.Cause.Error()
}
