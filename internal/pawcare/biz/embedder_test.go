package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pawcare/pkg/errors"
)

func TestAdaptDimension(t *testing.T) {
	tests := []struct {
		name   string
		in     []float32
		target int
		want   []float32
	}{
		{name: "equal", in: []float32{1, 2, 3}, target: 3, want: []float32{1, 2, 3}},
		{name: "truncate", in: []float32{1, 2, 3, 4}, target: 2, want: []float32{1, 2}},
		{name: "pad", in: []float32{1}, target: 3, want: []float32{1, 0, 0}},
		{name: "empty pad", in: nil, target: 2, want: []float32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdaptDimension(tt.in, tt.target)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, tt.target)
			// 幂等
			assert.Equal(t, got, AdaptDimension(got, tt.target))
		})
	}
}

func TestAdaptDimension_AllLengths(t *testing.T) {
	for n := 0; n <= 64; n++ {
		v := make([]float32, n)
		assert.Len(t, AdaptDimension(v, 3072), 3072, "native=%d", n)
	}
}

func TestAdaptDimension_DoesNotAlias(t *testing.T) {
	in := []float32{1, 2, 3}
	out := AdaptDimension(in, 2)
	out[0] = 9
	assert.Equal(t, float32(1), in[0])
}

func TestEmbedder_Embed(t *testing.T) {
	provider := &bowEmbedding{dim: testDim, native: 8}
	e := NewEmbedder(provider, EmbedderConfig{Dimension: testDim, Timeout: time.Second})

	v, err := e.Embed(context.Background(), "itchy skin")
	require.NoError(t, err)
	assert.Len(t, v, testDim)
	assert.Equal(t, testDim, e.Dimension())
}

func TestEmbedder_EmbedBatch(t *testing.T) {
	provider := &bowEmbedding{dim: testDim}
	e := NewEmbedder(provider, EmbedderConfig{Dimension: testDim, BatchSize: 3})

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("word%d", i)
	}

	out, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, 7)
	assert.Equal(t, 3, provider.calls)
	for i, v := range out {
		assert.Equal(t, provider.vector(texts[i]), v, "顺序应与输入一致")
	}
}

func TestEmbedder_Error(t *testing.T) {
	provider := &bowEmbedding{dim: testDim, err: stderrors.New("rate limited")}
	e := NewEmbedder(provider, EmbedderConfig{Dimension: testDim})

	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	assert.Error(t, err)
	_, err = e.Embed(context.Background(), "a")
	assert.Error(t, err)
}

type shortEmbedding struct{ bowEmbedding }

func (s *shortEmbedding) Embed(context.Context, []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func TestEmbedder_CountMismatch(t *testing.T) {
	e := NewEmbedder(&shortEmbedding{}, EmbedderConfig{Dimension: testDim})
	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDimensionMismatch))
}
