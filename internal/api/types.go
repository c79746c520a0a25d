package api

// MaxRequestDepth caps the max_depth a client may ask for.
const MaxRequestDepth = 20

// HuntRequest is the payload of POST /v1/hunts. A start_url turns the hunt
// into a single traversal from that page.
type HuntRequest struct {
	Query    string `json:"query"`
	StartURL string `json:"start_url,omitempty"`
	MaxDepth int    `json:"max_depth,omitempty"`
}

// ErrorResponse is the JSON body of failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
