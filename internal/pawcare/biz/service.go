package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	"github.com/kart-io/pawcare/internal/pawcare/store"
	"github.com/kart-io/pawcare/internal/pkg/pawcare/textutil"
	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/infra/pool"
	"github.com/kart-io/pawcare/pkg/infra/tracing"
	"github.com/kart-io/pawcare/pkg/llm"
	"github.com/kart-io/pawcare/pkg/vision"
)

// Service 定义分诊流水线对上层暴露的接口。
type Service interface {
	// IndexDocuments 索引目录，返回提交的分块数。
	IndexDocuments(ctx context.Context, dir string) (int, error)
	// IndexDirectory 索引目录，返回完整报告。
	IndexDirectory(ctx context.Context, dir string) (*IndexReport, error)
	// GenerateResponse 处理一次对话请求。仅在问题为空时返回错误。
	GenerateResponse(ctx context.Context, query string, history []ChatMessage, image []byte) (*StructuredResponse, error)
	// Purge 清空知识库。
	Purge(ctx context.Context) error
	// Stats 获取知识库与流水线统计信息。
	Stats(ctx context.Context) (map[string]any, error)
}

// Config 流水线配置。
type Config struct {
	ChunkSize           int
	ChunkOverlap        int
	TopK                int
	EmbeddingDim        int
	BatchSize           int
	HistoryWindow       int
	Extensions          []string
	Labels              []string
	ClassifierTimeout   time.Duration
	ClassifierMaxTokens int
	ImageTimeout        time.Duration
	AnswerTimeout       time.Duration
	AnswerTemperature   float64
	EmbedTimeout        time.Duration
}

// Dependencies 流水线依赖的外部组件。
type Dependencies struct {
	Store     store.VectorStore
	Embedding llm.EmbeddingProvider
	// QueryEmbedding 问题向量化使用的供应商（可带缓存），为空时使用 Embedding。
	QueryEmbedding llm.EmbeddingProvider
	Chat           llm.ChatProvider
	// Vision 为空表示未配置图像分类端点。
	Vision vision.Endpoint
	// IndexPool 为空时串行提取文件。
	IndexPool *pool.Pool
	// Metrics 为空时使用全局实例。
	Metrics *metrics.PipelineMetrics
}

// Pipeline 组合各组件提供完整的分诊服务。
type Pipeline struct {
	indexer    *Indexer
	classifier *Classifier
	image      *ImageAnalyzer
	answerer   *Answerer
	store      store.VectorStore
	embedding  llm.EmbeddingProvider
	chat       llm.ChatProvider
	metrics    *metrics.PipelineMetrics
}

// NewPipeline 创建流水线实例。
func NewPipeline(deps Dependencies, cfg *Config) *Pipeline {
	m := deps.Metrics
	if m == nil {
		m = metrics.Global()
	}
	queryEmbedding := deps.QueryEmbedding
	if queryEmbedding == nil {
		queryEmbedding = deps.Embedding
	}

	embedCfg := EmbedderConfig{Dimension: cfg.EmbeddingDim, BatchSize: cfg.BatchSize, Timeout: cfg.EmbedTimeout}
	indexEmbedder := NewEmbedder(deps.Embedding, embedCfg)
	queryEmbedder := NewEmbedder(queryEmbedding, embedCfg)

	return &Pipeline{
		indexer: NewIndexer(
			NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
			indexEmbedder,
			deps.Store,
			deps.IndexPool,
			m,
			&IndexerConfig{Extensions: cfg.Extensions},
		),
		classifier: NewClassifier(deps.Chat, m, &ClassifierConfig{
			HistoryWindow: cfg.HistoryWindow,
			MaxTokens:     cfg.ClassifierMaxTokens,
			Timeout:       cfg.ClassifierTimeout,
		}),
		image: NewImageAnalyzer(deps.Vision, cfg.Labels, cfg.ImageTimeout, m),
		answerer: NewAnswerer(queryEmbedder, deps.Store, deps.Chat, m, &AnswererConfig{
			TopK:        cfg.TopK,
			Temperature: cfg.AnswerTemperature,
			Timeout:     cfg.AnswerTimeout,
		}),
		store:     deps.Store,
		embedding: deps.Embedding,
		chat:      deps.Chat,
		metrics:   m,
	}
}

// IndexDocuments 索引目录中的所有文档，返回提交的分块数。
func (p *Pipeline) IndexDocuments(ctx context.Context, dir string) (int, error) {
	report, err := p.IndexDirectory(ctx, dir)
	if err != nil {
		return 0, err
	}
	return report.Chunks, nil
}

// IndexDirectory 索引目录并返回完整报告。
func (p *Pipeline) IndexDirectory(ctx context.Context, dir string) (*IndexReport, error) {
	ctx, span := tracing.Start(ctx, "pawcare.index", attribute.String("index.directory", dir))
	report, err := p.indexer.Index(ctx, dir)
	if report != nil {
		span.SetAttributes(
			attribute.Int("index.files", report.Files),
			attribute.Int("index.chunks", report.Chunks),
			attribute.Int("index.failed", len(report.Failures)),
		)
	}
	tracing.End(span, err)
	return report, err
}

// GenerateResponse 依次执行分类、图像分析、回答、组装。
func (p *Pipeline) GenerateResponse(ctx context.Context, query string, history []ChatMessage, image []byte) (*StructuredResponse, error) {
	if textutil.IsBlank(query) {
		return nil, errors.ErrInvalidQuery
	}

	state := NewConversationState(history)
	ctx, span := tracing.Start(ctx, "pawcare.respond",
		attribute.Int("chat.history", len(state.History)),
		attribute.Bool("chat.image", len(image) > 0),
	)
	defer span.End()

	// 1. 紧急程度分类
	stageCtx, stage := tracing.Start(ctx, "pawcare.classify")
	classification := p.classifier.Classify(stageCtx, query, state)
	stage.SetAttributes(attribute.String("triage.classification", string(classification)))
	stage.End()

	// 2. 图像分析
	var imageResult *ImageAnalysisResult
	if len(image) > 0 {
		stageCtx, stage = tracing.Start(ctx, "pawcare.image", attribute.Int("image.bytes", len(image)))
		imageResult = p.image.Analyze(stageCtx, image)
		stage.SetAttributes(attribute.String("image.status", string(imageResult.Status)))
		stage.End()
	}

	// 3. URGENT 直接短路，不检索不生成
	var resp *StructuredResponse
	if classification == Urgent {
		resp = Assemble(classification, imageResult, nil, nil)
	} else {
		stageCtx, stage = tracing.Start(ctx, "pawcare.answer")
		answer, err := p.answerer.Answer(stageCtx, query, state, imageResult)
		tracing.End(stage, err)
		if err != nil {
			logger.Errorw("Answer generation failed",
				"query", textutil.TruncateString(query, 50),
				"error", err.Error(),
			)
		}
		resp = Assemble(classification, imageResult, answer, err)
	}
	p.metrics.RecordResponse(classification == Urgent)
	span.SetAttributes(attribute.String("triage.urgency", string(resp.Urgency)))

	logger.Infow("Response generated",
		"classification", string(classification),
		"urgency", string(resp.Urgency),
		"action", string(resp.Data.ActionRequired),
		"image", imageResult != nil,
		"history", len(state.History),
	)
	return resp, nil
}

// Purge 清空知识库。
func (p *Pipeline) Purge(ctx context.Context) error {
	return p.store.Purge(ctx)
}

// Stats 获取知识库与流水线统计信息。
func (p *Pipeline) Stats(ctx context.Context) (map[string]any, error) {
	st, err := p.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"collection":     st.Collection,
		"dimension":      st.Dimension,
		"chunk_count":    st.Rows,
		"embed_provider": p.embedding.Name(),
		"chat_provider":  p.chat.Name(),
		"metrics":        p.metrics.Stats(),
	}, nil
}

// 确保 Pipeline 实现了 Service 接口。
var _ Service = (*Pipeline)(nil)
