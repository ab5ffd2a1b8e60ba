package biz

import (
	"strconv"

	"github.com/kart-io/pawcare/internal/pawcare/store"
	"github.com/kart-io/pawcare/internal/pkg/pawcare/textutil"
)

// Chunker 将文本切分为带重叠的固定窗口片段。
type Chunker struct {
	size    int
	overlap int
}

// NewChunker 创建切分器。size 和 overlap 以字符计。
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{size: size, overlap: overlap}
}

// Split 切分文本。每个片段持有 metadata 的独立副本，并附带 chunk_index。
// 空白文本返回空切片。
func (c *Chunker) Split(text string, metadata map[string]string) []DocumentChunk {
	parts := textutil.SplitIntoChunks(text, c.size, c.overlap)
	chunks := make([]DocumentChunk, 0, len(parts))
	for i, p := range parts {
		meta := make(map[string]string, len(metadata)+1)
		for k, v := range metadata {
			meta[k] = v
		}
		meta[store.MetaChunk] = strconv.Itoa(i)
		chunks = append(chunks, DocumentChunk{Text: p, Ordinal: i, Metadata: meta})
	}
	return chunks
}
