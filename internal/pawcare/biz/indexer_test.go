package biz

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	"github.com/kart-io/pawcare/internal/pawcare/store"
	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/infra/pool"
)

func newTestIndexer(s store.VectorStore, emb *bowEmbedding, p *pool.Pool, m *metrics.PipelineMetrics) *Indexer {
	return NewIndexer(
		NewChunker(200, 40),
		NewEmbedder(emb, EmbedderConfig{Dimension: testDim, BatchSize: 4}),
		s, p, m,
		&IndexerConfig{Extensions: []string{".pdf", ".txt", ".md"}},
	)
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexer_DirectoryNotFound(t *testing.T) {
	ix := newTestIndexer(newMemStore(), &bowEmbedding{dim: testDim}, nil, nil)

	_, err := ix.Index(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDirectoryNotFound))

	file := write(t, t.TempDir(), "a.txt", "not a dir")
	_, err = ix.Index(context.Background(), file)
	assert.True(t, stderrors.Is(err, errors.ErrDirectoryNotFound))
}

func TestIndexer_EmptyDirectory(t *testing.T) {
	s := newMemStore()
	emb := &bowEmbedding{dim: testDim}
	dir := t.TempDir()
	write(t, dir, "blank.txt", "   \n\n  ")

	report, err := newTestIndexer(s, emb, nil, nil).Index(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Chunks)
	assert.Equal(t, 0, report.Files)
	assert.Equal(t, 0, s.upserts)
	assert.Equal(t, 0, emb.calls)
}

func TestIndexer_PerFileFailureDoesNotAbort(t *testing.T) {
	s := newMemStore()
	dir := t.TempDir()
	write(t, dir, "broken.pdf", "definitely not a pdf")
	write(t, dir, "vaccines.txt", "Dogs need rabies vaccination yearly.")
	write(t, dir, "notes/fleas.md", strings.Repeat("Apply flea treatment monthly. ", 20))
	write(t, dir, "ignored.png", "png")

	m := metrics.New()
	report, err := newTestIndexer(s, &bowEmbedding{dim: testDim}, nil, m).Index(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Files)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "broken.pdf"), report.Failures[0].Path)
	assert.Greater(t, report.Chunks, 2)
	assert.Len(t, s.vectors, report.Chunks)

	sources := map[string]bool{}
	for _, v := range s.vectors {
		assert.Len(t, v.Values, testDim)
		assert.NotEmpty(t, v.Metadata[store.MetaText])
		sources[v.Metadata[store.MetaSource]] = true
	}
	assert.Equal(t, map[string]bool{"vaccines.txt": true, "notes/fleas.md": true}, sources)

	idx := m.Stats()["indexing"].(map[string]any)
	assert.Equal(t, uint64(1), idx["files_failed"])
	assert.Equal(t, uint64(report.Chunks), idx["chunks_indexed"])
}

func TestIndexer_ReindexIsStable(t *testing.T) {
	s := newMemStore()
	dir := t.TempDir()
	write(t, dir, "care.txt", strings.Repeat("Brush your dog's teeth daily. ", 30))
	ix := newTestIndexer(s, &bowEmbedding{dim: testDim}, nil, nil)

	first, err := ix.Index(context.Background(), dir)
	require.NoError(t, err)
	second, err := ix.Index(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Len(t, s.vectors, first.Chunks, "重复索引应覆盖而不是新增")
}

func TestIndexer_StoreErrorPropagates(t *testing.T) {
	s := newMemStore()
	s.upsertErr = stderrors.New("milvus unavailable")
	dir := t.TempDir()
	write(t, dir, "a.txt", "Cats need dental care.")

	_, err := newTestIndexer(s, &bowEmbedding{dim: testDim}, nil, nil).Index(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIndexFailed))
}

func TestIndexer_UnreachableStoreSkipsEmbedding(t *testing.T) {
	s := newMemStore()
	s.ensureErr = stderrors.New("milvus unavailable")
	emb := &bowEmbedding{dim: testDim}
	dir := t.TempDir()
	write(t, dir, "a.txt", "Cats need dental care.")

	_, err := newTestIndexer(s, emb, nil, nil).Index(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIndexFailed))
	assert.Equal(t, 0, emb.calls)
	assert.Equal(t, 0, s.upserts)
}

func TestIndexer_EmbeddingErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.txt", "Cats need dental care.")

	_, err := newTestIndexer(newMemStore(), &bowEmbedding{dim: testDim, err: stderrors.New("quota")}, nil, nil).Index(context.Background(), dir)
	assert.True(t, stderrors.Is(err, errors.ErrIndexFailed))
}

func TestIndexer_WithPool(t *testing.T) {
	p, err := pool.NewPool("index-test", pool.IndexPoolConfig(2))
	require.NoError(t, err)
	defer p.Release()

	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		write(t, dir, name, "Content of "+name+" about pet nutrition.")
	}

	s := newMemStore()
	report, err := newTestIndexer(s, &bowEmbedding{dim: testDim}, p, nil).Index(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Files)
	assert.Equal(t, 5, report.Chunks)
	assert.Len(t, s.vectors, 5)
}
