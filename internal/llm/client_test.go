package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datahunt/internal/config"
)

func testConfig(provider, apiURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    provider,
		Model:       "test-model",
		APIURL:      apiURL,
		APIKey:      "secret",
		MaxTokens:   256,
		Temperature: 0.1,
		Timeout:     config.DurationFrom(5 * time.Second),
		Retry: config.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  config.DurationFrom(time.Millisecond),
			MaxDelay:   config.DurationFrom(2 * time.Millisecond),
		},
	}
}

func newTestClient(t *testing.T, cfg config.LLMConfig) *Client {
	t.Helper()
	c, err := NewClient(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return c
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Goog-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body geminiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Contents, 1) {
			assert.Equal(t, "where is the csv?", body.Contents[0].Parts[0].Text)
		}
		assert.NotNil(t, body.SystemInstruction)
		assert.Equal(t, 256, body.GenerationConfig.MaxOutputTokens)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"https://x.org/"},{"text":"a.csv"}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig("gemini", srv.URL))
	text, err := c.Ask(context.Background(), "be brief", "where is the csv?")
	require.NoError(t, err)
	assert.Equal(t, "https://x.org/a.csv", text)
	assert.Equal(t, "gemini", c.Provider())
}

func TestOpenAICompatibleComplete(t *testing.T) {
	for _, provider := range []string{"openai", "ollama"} {
		t.Run(provider, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

				var body openAIRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				if assert.Len(t, body.Messages, 2) {
					assert.Equal(t, "system", body.Messages[0].Role)
				}

				_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"/data/file.json"}}]}`))
			}))
			defer srv.Close()

			c := newTestClient(t, testConfig(provider, srv.URL))
			text, err := c.Ask(context.Background(), "sys", "prompt")
			require.NoError(t, err)
			assert.Equal(t, "/data/file.json", text)
		})
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"answer"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig("anthropic", srv.URL))
	text, err := c.Ask(context.Background(), "", "q")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
}

func TestCompleteRetriesTransient(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig("openai", srv.URL))
	text, err := c.Ask(context.Background(), "", "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCompleteDoesNotRetryFatal(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig("openai", srv.URL))
	_, err := c.Ask(context.Background(), "", "q")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCompleteExhaustsRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig("gemini", srv.URL))
	_, err := c.Ask(context.Background(), "", "q")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestCompleteRejectsEmptyRequest(t *testing.T) {
	c := newTestClient(t, testConfig("gemini", "http://127.0.0.1:1"))
	_, err := c.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(config.LLMConfig{Provider: "bard", Model: "x"})
	require.Error(t, err)
	_, err = NewClient(config.LLMConfig{Provider: "gemini"})
	require.Error(t, err)
}

func TestClassifyHTTPError(t *testing.T) {
	assert.True(t, IsTransient(classifyHTTPError("p", http.StatusTooManyRequests, nil)))
	assert.True(t, IsTransient(classifyHTTPError("p", http.StatusBadGateway, nil)))
	assert.True(t, IsFatal(classifyHTTPError("p", http.StatusBadRequest, nil)))
	assert.True(t, IsFatal(classifyHTTPError("p", http.StatusForbidden, nil)))
	assert.True(t, IsFatal(classifyHTTPError("p", http.StatusTeapot, nil)))
}

func TestGeminiParseBlocked(t *testing.T) {
	_, err := geminiProvider{}.ParseResponse([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}
