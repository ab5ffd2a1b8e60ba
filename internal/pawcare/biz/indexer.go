package biz

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	"github.com/kart-io/pawcare/internal/pawcare/store"
	"github.com/kart-io/pawcare/internal/pkg/pawcare/docutil"
	"github.com/kart-io/pawcare/internal/pkg/pawcare/textutil"
	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/infra/pool"
)

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// Extensions 参与索引的文件扩展名。
	Extensions []string
}

// Indexer 负责目录索引：提取、切分、向量化、写入。
type Indexer struct {
	chunker  *Chunker
	embedder *Embedder
	store    store.VectorStore
	pool     *pool.Pool
	metrics  *metrics.PipelineMetrics
	config   *IndexerConfig
}

// NewIndexer 创建索引器实例。workers 为 nil 时串行提取文件。
func NewIndexer(chunker *Chunker, embedder *Embedder, vectorStore store.VectorStore, workers *pool.Pool, m *metrics.PipelineMetrics, config *IndexerConfig) *Indexer {
	return &Indexer{
		chunker:  chunker,
		embedder: embedder,
		store:    vectorStore,
		pool:     workers,
		metrics:  m,
		config:   config,
	}
}

type extraction struct {
	chunks []DocumentChunk
	err    error
}

// Index 索引目录中的所有文档。单个文件失败只记录在报告中，不中断整批。
// 写入阶段失败返回 ErrIndexFailed。
func (i *Indexer) Index(ctx context.Context, dir string) (report *IndexReport, err error) {
	start := time.Now()
	report = &IndexReport{Directory: dir}
	defer func() {
		if i.metrics != nil {
			i.metrics.RecordIndexing(report.Files, len(report.Failures), report.Chunks, time.Since(start), err)
		}
	}()

	if !docutil.DirExists(dir) {
		return report, errors.ErrDirectoryNotFound.WithMessagef("directory not found or is not a directory: %s", dir)
	}

	files, err := docutil.FindFiles(dir, i.config.Extensions)
	if err != nil {
		return report, errors.ErrIndexFailed.WithCause(err)
	}
	logger.Infow("Indexing documents", "directory", dir, "files", len(files))

	results := i.extractAll(ctx, dir, files)

	var chunks []DocumentChunk
	for idx, res := range results {
		switch {
		case res.err != nil:
			logger.Warnw("Failed to process file", "file", files[idx], "error", res.err.Error())
			report.Failures = append(report.Failures, FileFailure{Path: files[idx], Error: res.err.Error()})
		case len(res.chunks) == 0:
			logger.Warnw("File yielded no text, skipped", "file", files[idx], "error", errors.ErrEmptyInput.Error())
		default:
			report.Files++
			chunks = append(chunks, res.chunks...)
		}
	}

	if len(chunks) == 0 {
		logger.Warnw("No chunks to index", "directory", dir)
		return report, nil
	}

	if err := ctx.Err(); err != nil {
		return report, errors.ErrIndexFailed.WithCause(err)
	}

	if err := i.store.EnsureCollection(ctx); err != nil {
		return report, errors.ErrIndexFailed.WithCause(err)
	}

	vectors, err := i.vectorize(ctx, chunks)
	if err != nil {
		return report, errors.ErrIndexFailed.WithCause(err)
	}
	if _, err := i.store.Upsert(ctx, vectors); err != nil {
		return report, errors.ErrIndexFailed.WithCause(err)
	}

	report.Chunks = len(vectors)
	logger.Infow("Indexing completed",
		"directory", dir,
		"files", report.Files,
		"failed_files", len(report.Failures),
		"chunks", report.Chunks,
		"duration", time.Since(start).String(),
	)
	return report, nil
}

// extractAll 并发提取文件文本，结果顺序与 files 一致。
func (i *Indexer) extractAll(ctx context.Context, dir string, files []string) []extraction {
	results := make([]extraction, len(files))

	var wg sync.WaitGroup
	for idx, file := range files {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[idx] = extraction{err: err}
				return
			}
			results[idx] = i.extract(dir, file)
		}

		if i.pool == nil {
			task()
			continue
		}
		// 池不可用时在当前 goroutine 执行
		if err := i.pool.Submit(task); err != nil {
			logger.Debugw("Index pool rejected task, running inline", "file", file, "error", err.Error())
			task()
		}
	}
	wg.Wait()

	return results
}

func (i *Indexer) extract(dir, file string) extraction {
	text, err := docutil.ExtractText(file)
	if err != nil {
		return extraction{err: err}
	}

	source, err := filepath.Rel(dir, file)
	if err != nil {
		source = file
	}
	return extraction{chunks: i.chunker.Split(text, map[string]string{store.MetaSource: filepath.ToSlash(source)})}
}

func (i *Indexer) vectorize(ctx context.Context, chunks []DocumentChunk) ([]store.Vector, error) {
	texts := make([]string, len(chunks))
	for idx, c := range chunks {
		texts[idx] = c.Text
	}

	embeddings, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	vectors := make([]store.Vector, len(chunks))
	for idx, c := range chunks {
		meta := make(map[string]string, len(c.Metadata)+1)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta[store.MetaText] = c.Text

		vectors[idx] = store.Vector{
			ID:       textutil.ContentID(meta[store.MetaSource], c.Ordinal, c.Text),
			Values:   embeddings[idx],
			Metadata: meta,
		}
	}
	return vectors, nil
}
