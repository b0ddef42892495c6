package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdfchat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var body struct {
			Model    string         `json:"model"`
			Stream   *bool          `json:"stream"`
			Options  map[string]any `json:"options"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body.Model)
		require.NotNil(t, body.Stream)
		assert.False(t, *body.Stream)
		assert.EqualValues(t, 1000, body.Options["num_predict"])
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "assistant", body.Messages[0].Role)

		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"Hello from ollama"},"done":true}` + "\n"))
	}))
	defer server.Close()

	p, err := NewOllamaProvider(server.URL, "llama3")
	require.NoError(t, err)

	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: "model", Content: "earlier"},
		{Role: llm.RoleUser, Content: "hi"},
	}, llm.WithMaxTokens(1000))

	require.NoError(t, err)
	assert.Equal(t, "Hello from ollama", out)
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	p, err := NewOllamaProvider(server.URL, "missing")
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "hi")
	assert.Error(t, err)
}
