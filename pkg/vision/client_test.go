package vision

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScores(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []float64
		wantErr bool
	}{
		{name: "flat", body: `[0.1, 0.9]`, want: []float64{0.1, 0.9}},
		{name: "nested", body: `[[0.3, 0.7]]`, want: []float64{0.3, 0.7}},
		{name: "predictions", body: `{"predictions": [[0.2, 0.8]]}`, want: []float64{0.2, 0.8}},
		{name: "scores", body: `{"scores": [1, 0]}`, want: []float64{1, 0}},
		{name: "probabilities", body: ` {"probabilities": [0.5, 0.5]} `, want: []float64{0.5, 0.5}},
		{name: "empty body", body: ``, wantErr: true},
		{name: "empty list", body: `[]`, wantErr: true},
		{name: "strings", body: `["healthy"]`, wantErr: true},
		{name: "unknown object", body: `{"label": "ringworm"}`, wantErr: true},
		{name: "not json", body: `ringworm`, wantErr: true},
		{name: "empty nested", body: `{"predictions": []}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScores([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0xff, 0xd8}, body)
		_, _ = w.Write([]byte(`{"predictions":[[0.1,0.2,0.7]]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, APIKey: "secret", ContentType: "image/jpeg", Timeout: 5 * time.Second})
	scores, err := c.Invoke(context.Background(), []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.7}, scores)
}

func TestClientInvoke_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timeout: 5 * time.Second})
	_, err := c.Invoke(context.Background(), []byte{1})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedOutput))
}
