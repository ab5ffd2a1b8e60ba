package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/llm"
)

// AdaptDimension 将向量调整为 target 长度：过长截断，过短右侧补零。
// 纯函数，长度相等时原样返回。
func AdaptDimension(v []float32, target int) []float32 {
	switch {
	case target <= 0 || len(v) == target:
		return v
	case len(v) > target:
		out := make([]float32, target)
		copy(out, v[:target])
		return out
	default:
		out := make([]float32, target)
		copy(out, v)
		return out
	}
}

// Embedder 生成固定维度的向量。
type Embedder struct {
	provider  llm.EmbeddingProvider
	dimension int
	batchSize int
	timeout   time.Duration
}

// EmbedderConfig 向量化配置。
type EmbedderConfig struct {
	// Dimension 索引维度。
	Dimension int
	// BatchSize 单次请求的最大文本数。
	BatchSize int
	// Timeout 单次请求超时。
	Timeout time.Duration
}

// NewEmbedder 创建 Embedder。
func NewEmbedder(provider llm.EmbeddingProvider, cfg EmbedderConfig) *Embedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Embedder{
		provider:  provider,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
	}
}

// Dimension 返回目标维度。
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed 向量化单个文本。
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	v, err := e.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.adapt(v), nil
}

// EmbedBatch 分批向量化，返回顺序与输入一致。
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, v := range vectors {
			out = append(out, e.adapt(v))
		}
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	vectors, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, errors.ErrDimensionMismatch.WithMessagef(
			"embedding provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *Embedder) adapt(v []float32) []float32 {
	if e.dimension > 0 && len(v) != e.dimension {
		logger.Warnw("Embedding dimension adapted",
			"error", errors.ErrDimensionMismatch.Error(),
			"native", len(v),
			"target", e.dimension,
			"provider", e.provider.Name(),
		)
	}
	return AdaptDimension(v, e.dimension)
}

func (e *Embedder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}
