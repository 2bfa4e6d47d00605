package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/llm"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_GEMINI_KEY", "secret")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_GEMINI_KEY", Model: "m"})
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TEST_GEMINI_KEY"})
	require.Error(t, err)
}

func TestComplete_JoinsParts(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/m:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Dzień "},{"text":"dobry"}]}}]}`))
	})

	out, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Dzień dobry", out)
}

func TestComplete_RateLimitIsClassified(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`))
	})
	_, err := c.Complete(context.Background(), "x")
	require.ErrorIs(t, err, llm.ErrRateLimited)
}

func TestComplete_ForbiddenIsAuth(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.Complete(context.Background(), "x")
	require.ErrorIs(t, err, llm.ErrAuth)
}

func TestComplete_NoCandidates(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	})
	_, err := c.Complete(context.Background(), "x")
	require.ErrorIs(t, err, llm.ErrEmpty)
}
