package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datahunt/internal/config"
)

func newRobotsServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(hits, 1)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestAgentAllowed(t *testing.T) {
	var hits int32
	srv := newRobotsServer(t, "User-agent: *\nDisallow: /private/\n", &hits)

	agent := NewAgent(config.RobotsConfig{Respect: true, UserAgent: "datahunt/1.0"}, srv.Client())
	ctx := context.Background()

	assert.True(t, agent.Allowed(ctx, mustParse(t, srv.URL+"/data/report.csv")))
	assert.False(t, agent.Allowed(ctx, mustParse(t, srv.URL+"/private/secret.csv")))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "rules are cached per host")

	agent.Purge(mustParse(t, srv.URL).Host)
	assert.True(t, agent.Allowed(ctx, mustParse(t, srv.URL+"/")))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestAgentDisabledAndOverrides(t *testing.T) {
	var hits int32
	srv := newRobotsServer(t, "User-agent: *\nDisallow: /\n", &hits)
	target := mustParse(t, srv.URL+"/anything")

	off := NewAgent(config.RobotsConfig{Respect: false}, srv.Client())
	assert.True(t, off.Allowed(context.Background(), target))

	overridden := NewAgent(config.RobotsConfig{
		Respect:   true,
		UserAgent: "datahunt/1.0",
		Overrides: []string{target.Hostname()},
	}, srv.Client())
	assert.True(t, overridden.Allowed(context.Background(), target))
	assert.Zero(t, atomic.LoadInt32(&hits))

	strict := NewAgent(config.RobotsConfig{Respect: true, UserAgent: "datahunt/1.0"}, srv.Client())
	assert.False(t, strict.Allowed(context.Background(), target))
}

func TestAgentRejectsRelativeURL(t *testing.T) {
	agent := NewAgent(config.RobotsConfig{}, nil)
	assert.False(t, agent.Allowed(context.Background(), &url.URL{Path: "/x"}))
	assert.False(t, agent.Allowed(context.Background(), nil))
}
