package store

import (
	"context"
)

// 元数据字段名。
const (
	MetaText   = "text"
	MetaSource = "source"
	MetaChunk  = "chunk_index"
)

// DefaultBatchSize 单次写入的最大向量数。
const DefaultBatchSize = 100

// Vector 表示一条待写入的向量记录。
type Vector struct {
	// ID 内容寻址 ID。
	ID string
	// Values 向量值，长度等于集合维度。
	Values []float32
	// Metadata 扁平元数据，至少包含 text 和 source。
	Metadata map[string]string
}

// ScoredChunk 表示一条检索结果。
type ScoredChunk struct {
	// ID 记录 ID。
	ID string
	// Text 文档块文本。
	Text string
	// Source 来源文件。
	Source string
	// Metadata 其余元数据。
	Metadata map[string]string
	// Score 相似度分数，越大越相似。
	Score float32
}

// Stats 集合统计信息。
type Stats struct {
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
	Rows       int64  `json:"rows"`
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// EnsureCollection 确保集合存在并已加载。
	EnsureCollection(ctx context.Context) error

	// Upsert 分批写入向量，返回写入条数。
	Upsert(ctx context.Context, vectors []Vector) (int, error)

	// Query 返回按相似度降序排列的前 topK 条结果。
	Query(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error)

	// Purge 删除集合中的所有向量。
	Purge(ctx context.Context) error

	// Stats 获取集合统计信息。
	Stats(ctx context.Context) (*Stats, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}
