package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pawcare/pkg/llm"
)

func newTestProvider(url string) *Provider {
	return NewProviderWithConfig(&Config{BaseURL: url, EmbedModel: "nomic-embed-text", ChatModel: "llama3.1:8b", Timeout: 5 * time.Second})
}

func TestNewProvider_Defaults(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[1,2],[3,4]]}`))
	}))
	defer srv.Close()

	out, err := newTestProvider(srv.URL).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, out)
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestChat_SendsOptions(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"NON_URGENT"},"done":true}`))
	}))
	defer srv.Close()

	out, err := newTestProvider(srv.URL).Chat(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "itchy ears"}},
		llm.WithTemperature(0), llm.WithMaxTokens(10))
	require.NoError(t, err)
	assert.Equal(t, "NON_URGENT", out)

	require.NotNil(t, got.Options)
	require.NotNil(t, got.Options.Temperature)
	assert.Equal(t, 0.0, *got.Options.Temperature)
	assert.Equal(t, 10, got.Options.NumPredict)
	assert.False(t, got.Stream)
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"}}`))
	}))
	defer srv.Close()

	out, err := newTestProvider(srv.URL).Generate(context.Background(), "q", "sys")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	require.Len(t, got.Messages, 2)
	assert.Nil(t, got.Options)
}
