package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pawcare/internal/pawcare/store"
)

func TestChunker_Blank(t *testing.T) {
	c := NewChunker(1000, 200)
	for _, text := range []string{"", " ", "\n\n\t  \n"} {
		assert.Empty(t, c.Split(text, map[string]string{store.MetaSource: "a.pdf"}))
	}
}

func TestChunker_MetadataCopied(t *testing.T) {
	c := NewChunker(50, 10)
	meta := map[string]string{store.MetaSource: "vaccines.pdf"}
	chunks := c.Split(strings.Repeat("Dogs need rabies vaccination yearly. ", 10), meta)

	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, "vaccines.pdf", ch.Metadata[store.MetaSource])
		assert.Equal(t, i, ch.Ordinal)
	}
	assert.Equal(t, "0", chunks[0].Metadata[store.MetaChunk])
	assert.Equal(t, "1", chunks[1].Metadata[store.MetaChunk])

	// 修改片段元数据不影响原始输入与其他片段
	chunks[0].Metadata[store.MetaSource] = "changed"
	assert.Equal(t, "vaccines.pdf", meta[store.MetaSource])
	assert.Equal(t, "vaccines.pdf", chunks[1].Metadata[store.MetaSource])
	assert.NotContains(t, meta, store.MetaChunk)
}

func TestChunker_SentenceSurvivesBoundary(t *testing.T) {
	sentence := "Heartworm prevention should be given every month."
	text := strings.Repeat("filler words here. ", 4) + sentence + strings.Repeat(" more filler text.", 4)
	chunks := NewChunker(100, 60).Split(text, nil)

	found := false
	for _, ch := range chunks {
		if strings.Contains(ch.Text, sentence) {
			found = true
		}
	}
	assert.True(t, found, "重叠窗口应保证句子完整出现在某个片段中")
}
