package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/pkg/component/milvus"
	"github.com/kart-io/pawcare/pkg/errors"
)

// backend 是 MilvusStore 依赖的 Milvus 客户端能力，*milvus.Client 实现了它。
type backend interface {
	CreateCollection(ctx context.Context, schema *milvus.CollectionSchema) error
	Upsert(ctx context.Context, collection string, rows *milvus.Rows) (int64, error)
	Search(ctx context.Context, collection string, vector []float32, topK int, outputFields []string) ([]milvus.Hit, error)
	DropCollection(ctx context.Context, collection string) error
	RowCount(ctx context.Context, collection string) (int64, error)
	Close(ctx context.Context) error
}

// Config MilvusStore 配置。
type Config struct {
	// Collection 集合名称。
	Collection string
	// Dimension 向量维度。
	Dimension int
	// BatchSize 单次 upsert 的最大条数。
	BatchSize int
}

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	client backend
	cfg    Config
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client, cfg Config) *MilvusStore {
	return newMilvusStore(client, cfg)
}

func newMilvusStore(client backend, cfg Config) *MilvusStore {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &MilvusStore{client: client, cfg: cfg}
}

func (s *MilvusStore) schema() *milvus.CollectionSchema {
	return &milvus.CollectionSchema{
		Name:        s.cfg.Collection,
		Description: "pet health knowledge base",
		Dimension:   s.cfg.Dimension,
		MetaFields: []milvus.MetaField{
			{Name: MetaText, MaxLen: 65535},
			{Name: MetaSource, MaxLen: 1024},
			{Name: MetaChunk, MaxLen: 16},
		},
	}
}

// EnsureCollection 创建集合（已存在时只加载）。
func (s *MilvusStore) EnsureCollection(ctx context.Context) error {
	if err := s.client.CreateCollection(ctx, s.schema()); err != nil {
		return errors.ErrStoreUnavailable.WithCause(err)
	}
	return nil
}

// Upsert 按 BatchSize 分批写入，共 ceil(len/BatchSize) 次调用。
func (s *MilvusStore) Upsert(ctx context.Context, vectors []Vector) (int, error) {
	total := 0
	for start := 0; start < len(vectors); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(vectors))
		rows, err := s.toRows(vectors[start:end])
		if err != nil {
			return total, err
		}

		n, err := s.client.Upsert(ctx, s.cfg.Collection, rows)
		if err != nil {
			return total, errors.ErrStoreUnavailable.WithCause(err)
		}
		total += int(n)

		logger.Debugw("Upserted vector batch",
			"collection", s.cfg.Collection,
			"batch_start", start,
			"batch_size", end-start,
		)
	}
	return total, nil
}

func (s *MilvusStore) toRows(batch []Vector) (*milvus.Rows, error) {
	rows := &milvus.Rows{
		IDs:        make([]string, len(batch)),
		Embeddings: make([][]float32, len(batch)),
		Metadata: map[string][]string{
			MetaText:   make([]string, len(batch)),
			MetaSource: make([]string, len(batch)),
			MetaChunk:  make([]string, len(batch)),
		},
	}
	for i, v := range batch {
		if s.cfg.Dimension > 0 && len(v.Values) != s.cfg.Dimension {
			return nil, errors.ErrDimensionMismatch.WithMessagef(
				"vector %s has dimension %d, want %d", v.ID, len(v.Values), s.cfg.Dimension)
		}
		rows.IDs[i] = v.ID
		rows.Embeddings[i] = v.Values
		for field := range rows.Metadata {
			rows.Metadata[field][i] = v.Metadata[field]
		}
	}
	return rows, nil
}

// Query 执行相似度检索，并按分数降序稳定排序。
func (s *MilvusStore) Query(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		return []ScoredChunk{}, nil
	}

	hits, err := s.client.Search(ctx, s.cfg.Collection, vector, topK,
		[]string{MetaText, MetaSource, MetaChunk})
	if err != nil {
		return nil, errors.ErrStoreUnavailable.WithCause(err)
	}

	results := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		results = append(results, ScoredChunk{
			ID:       h.ID,
			Text:     h.Metadata[MetaText],
			Source:   h.Metadata[MetaSource],
			Metadata: h.Metadata,
			Score:    h.Score,
		})
	}
	sortByScore(results)

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func sortByScore(results []ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// Purge 删除集合并重新创建，保证后续写入可用。
func (s *MilvusStore) Purge(ctx context.Context) error {
	if err := s.client.DropCollection(ctx, s.cfg.Collection); err != nil {
		return errors.ErrStoreUnavailable.WithCause(err)
	}
	logger.Infow("Purged vector collection", "collection", s.cfg.Collection)
	return s.EnsureCollection(ctx)
}

// Stats 获取集合行数。
func (s *MilvusStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.client.RowCount(ctx, s.cfg.Collection)
	if err != nil {
		return nil, errors.ErrStoreUnavailable.WithCause(err)
	}
	return &Stats{
		Collection: s.cfg.Collection,
		Dimension:  s.cfg.Dimension,
		Rows:       rows,
	}, nil
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	if err := s.client.Close(ctx); err != nil {
		return fmt.Errorf("failed to close milvus: %w", err)
	}
	return nil
}
