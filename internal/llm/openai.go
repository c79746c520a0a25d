package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// openAIProvider speaks the chat completions API shared by OpenAI and Ollama.
type openAIProvider struct {
	name       string
	defaultURL string
}

func (p openAIProvider) Name() string { return p.name }

func (p openAIProvider) BuildURL(baseURL, _ string) string {
	if baseURL == "" {
		baseURL = p.defaultURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

func (p openAIProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p openAIProvider) BuildRequestBody(model, system string, messages []Message, temperature float64, maxTokens int) ([]byte, error) {
	all := make([]Message, 0, len(messages)+1)
	if system != "" {
		all = append(all, Message{Role: "system", Content: system})
	}
	all = append(all, messages...)
	return json.Marshal(openAIRequest{
		Model:       model,
		Messages:    all,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
}

func (p openAIProvider) ParseResponse(body []byte) (string, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(p.name + ": response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
