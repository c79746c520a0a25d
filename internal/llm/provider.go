package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider adapts the client to one vendor's HTTP API.
type Provider interface {
	Name() string
	// BuildURL returns the completion endpoint for model under baseURL; an
	// empty baseURL selects the vendor default.
	BuildURL(baseURL, model string) string
	SetHeaders(req *http.Request, apiKey string)
	BuildRequestBody(model, system string, messages []Message, temperature float64, maxTokens int) ([]byte, error)
	// ParseResponse extracts the completion text.
	ParseResponse(body []byte) (string, error)
}

// ProviderFor returns the adapter registered under name.
func ProviderFor(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		return geminiProvider{}, nil
	case "openai":
		return openAIProvider{defaultURL: "https://api.openai.com/v1", name: "openai"}, nil
	case "ollama":
		return openAIProvider{defaultURL: "http://localhost:11434/v1", name: "ollama"}, nil
	case "anthropic":
		return anthropicProvider{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", name)
	}
}
