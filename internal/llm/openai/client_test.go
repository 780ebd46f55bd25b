package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/solicitation-tracker/internal/llm"
)

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"ok\":true}  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "m"}, nil)
	out, err := c.Complete(context.Background(), llm.Request{
		System: "sys", Prompt: "hi", Schema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "m", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	assert.Len(t, got["messages"], 2)
}

func TestComplete_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("x") == "" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Complete(context.Background(), llm.Request{Prompt: "hi"})
	assert.ErrorContains(t, err, "429")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer empty.Close()
	c = NewClient(Config{APIKey: "k", BaseURL: empty.URL}, nil)
	_, err = c.Complete(context.Background(), llm.Request{Prompt: "hi"})
	assert.ErrorContains(t, err, "no choices")
}
