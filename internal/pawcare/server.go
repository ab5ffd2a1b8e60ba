// Package pawcare wires the triage pipeline into a runnable HTTP service.
package pawcare

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/internal/pawcare/biz"
	"github.com/kart-io/pawcare/internal/pawcare/handler"
	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	"github.com/kart-io/pawcare/internal/pawcare/store"
	"github.com/kart-io/pawcare/internal/pawcare/watcher"
	"github.com/kart-io/pawcare/pkg/component/milvus"
	"github.com/kart-io/pawcare/pkg/component/redis"
	"github.com/kart-io/pawcare/pkg/infra/app"
	"github.com/kart-io/pawcare/pkg/infra/pool"
	"github.com/kart-io/pawcare/pkg/infra/server"
	httpserver "github.com/kart-io/pawcare/pkg/infra/server/http"
	"github.com/kart-io/pawcare/pkg/infra/tracing"
	"github.com/kart-io/pawcare/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/pawcare/pkg/llm/ollama"
	_ "github.com/kart-io/pawcare/pkg/llm/openai"
	cacheopts "github.com/kart-io/pawcare/pkg/options/cache"
	llmopts "github.com/kart-io/pawcare/pkg/options/llm"
	logopts "github.com/kart-io/pawcare/pkg/options/logger"
	milvusopts "github.com/kart-io/pawcare/pkg/options/milvus"
	pipelineopts "github.com/kart-io/pawcare/pkg/options/pipeline"
	httpopts "github.com/kart-io/pawcare/pkg/options/server/http"
	tracingopts "github.com/kart-io/pawcare/pkg/options/tracing"
	visionopts "github.com/kart-io/pawcare/pkg/options/vision"
	"github.com/kart-io/pawcare/pkg/utils/json"
	"github.com/kart-io/pawcare/pkg/vision"
)

// Name is the name of the application.
const Name = "pawcare"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	VisionOptions    *visionopts.Options
	PipelineOptions  *pipelineopts.Options
	CacheOptions     *cacheopts.Options
	TracingOptions   *tracingopts.Options
	ShutdownTimeout  time.Duration
}

// Server represents the pawcare server.
type Server struct {
	runnables       []server.Runnable
	shutdownTimeout time.Duration
	closers         []func()
}

// Components are the shared building blocks of the server and the index CLI.
type Components struct {
	Pipeline *biz.Pipeline
	Pools    *pool.Manager
	Metrics  *metrics.PipelineMetrics
	closers  []func()
}

// Close releases pools and client connections in reverse order of creation.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting pawcare service...", "json", string(json.CurrentBackend()))

	// 初始化链路追踪
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions, app.GetVersion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	shutdownTracing := func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warnw("failed to flush spans", "error", err.Error())
		}
	}
	logger.Infow("Tracing initialized", "export", tp.Enabled())

	// 2-6. 初始化池、存储与模型客户端
	comps, err := cfg.NewComponents(ctx)
	if err != nil {
		shutdownTracing()
		return nil, err
	}
	comps.closers = append([]func(){shutdownTracing}, comps.closers...)

	background, err := comps.Pools.Get(pool.BackgroundPool)
	if err != nil {
		comps.Close()
		return nil, err
	}

	// 7. 初始化 Handler 与 HTTP 服务器
	httpSrv := httpserver.NewServer(cfg.HTTPOptions)
	handler.New(comps.Pipeline, background, comps.Metrics, handler.Config{
		DataDir:          cfg.PipelineOptions.DataDir,
		MetricsNamespace: Name,
	}).Register(httpSrv.Engine())
	logger.Info("Handler layer initialized")

	runnables := []server.Runnable{httpSrv}

	// 8. 目录监听
	if cfg.PipelineOptions.Watch {
		runnables = append(runnables, watcher.New(watcher.Config{
			Dir:        cfg.PipelineOptions.DataDir,
			Extensions: cfg.PipelineOptions.Extensions,
			Debounce:   cfg.PipelineOptions.WatchDebounce,
		}, comps.Pipeline, background))
		logger.Infow("Directory watch enabled", "dir", cfg.PipelineOptions.DataDir)
	}

	logger.Info("pawcare service is ready")
	return &Server{
		runnables:       runnables,
		shutdownTimeout: cfg.ShutdownTimeout,
		closers:         comps.closers,
	}, nil
}

// NewComponents builds the pipeline and everything it depends on. The
// logger must already be initialized.
func (cfg *Config) NewComponents(ctx context.Context) (*Components, error) {
	comps := &Components{Metrics: metrics.Global()}
	fail := func(err error) (*Components, error) {
		comps.Close()
		return nil, err
	}

	// 2. 初始化工作池
	pools := pool.NewManager()
	comps.Pools = pools
	comps.closers = append(comps.closers, func() {
		if err := pools.ReleaseAllTimeout(cfg.ShutdownTimeout); err != nil {
			logger.Warnw("worker pools did not drain in time", "error", err.Error())
		}
	})
	indexPool, err := pools.Register(pool.IndexPool, pool.IndexPoolConfig(cfg.PipelineOptions.IndexWorkers))
	if err != nil {
		return fail(fmt.Errorf("failed to create index pool: %w", err))
	}
	if _, err := pools.Register(pool.BackgroundPool, pool.BackgroundPoolConfig()); err != nil {
		return fail(fmt.Errorf("failed to create background pool: %w", err))
	}

	// 3. 初始化 Milvus 客户端与向量存储
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize milvus: %w", err))
	}
	comps.closers = append(comps.closers, func() { _ = milvusClient.Close(context.Background()) })

	vectorStore := store.NewMilvusStore(milvusClient, store.Config{
		Collection: cfg.PipelineOptions.Collection,
		Dimension:  cfg.PipelineOptions.EmbeddingDim,
		BatchSize:  cfg.PipelineOptions.BatchSize,
	})
	if err := vectorStore.EnsureCollection(ctx); err != nil {
		return fail(fmt.Errorf("failed to prepare collection: %w", err))
	}
	logger.Infow("Vector store initialized",
		"collection", cfg.PipelineOptions.Collection,
		"dimension", cfg.PipelineOptions.EmbeddingDim,
	)

	// 4. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return fail(fmt.Errorf("failed to initialize embedding provider: %w", err))
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return fail(fmt.Errorf("failed to initialize chat provider: %w", err))
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 5. 初始化 Redis 查询向量缓存（可选，连接失败时降级为无缓存）
	var queryEmbedding llm.EmbeddingProvider
	if cfg.CacheOptions != nil && cfg.CacheOptions.Enabled {
		redisClient, err := redis.New(ctx, cfg.CacheOptions.Redis)
		if err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		} else {
			comps.closers = append(comps.closers, func() { _ = redisClient.Close() })
			queryEmbedding = llm.NewCachedEmbeddingProvider(embedProvider, redisClient.Client(), &llm.EmbeddingCacheConfig{
				Enabled:   true,
				TTL:       cfg.CacheOptions.TTL,
				KeyPrefix: cfg.CacheOptions.KeyPrefix,
			})
			logger.Infow("Redis cache initialized",
				"addr", cfg.CacheOptions.Redis.Addr(),
				"ttl", cfg.CacheOptions.TTL,
			)
		}
	} else {
		logger.Info("Cache is disabled")
	}

	// 6. 初始化图像分类端点
	var visionEndpoint vision.Endpoint
	if cfg.VisionOptions.Enabled() {
		visionEndpoint = vision.NewClient(vision.Config{
			URL:         cfg.VisionOptions.Endpoint,
			APIKey:      cfg.VisionOptions.APIKey,
			ContentType: cfg.VisionOptions.ContentType,
			Timeout:     cfg.VisionOptions.Timeout,
			MaxRetries:  cfg.VisionOptions.MaxRetries,
		})
		logger.Infow("Image classifier initialized", "endpoint", cfg.VisionOptions.Endpoint)
	} else {
		logger.Info("Image classifier not configured, photos will be reported as unavailable")
	}

	po := cfg.PipelineOptions
	comps.Pipeline = biz.NewPipeline(biz.Dependencies{
		Store:          vectorStore,
		Embedding:      embedProvider,
		QueryEmbedding: queryEmbedding,
		Chat:           chatProvider,
		Vision:         visionEndpoint,
		IndexPool:      indexPool,
		Metrics:        comps.Metrics,
	}, &biz.Config{
		ChunkSize:           po.ChunkSize,
		ChunkOverlap:        po.ChunkOverlap,
		TopK:                po.TopK,
		EmbeddingDim:        po.EmbeddingDim,
		BatchSize:           po.BatchSize,
		HistoryWindow:       po.HistoryWindow,
		Extensions:          po.Extensions,
		Labels:              cfg.VisionOptions.Labels,
		ClassifierTimeout:   po.ClassifierTimeout,
		ClassifierMaxTokens: po.ClassifierMaxTokens,
		ImageTimeout:        po.ImageTimeout,
		AnswerTimeout:       po.AnswerTimeout,
		AnswerTemperature:   po.AnswerTemperature,
		EmbedTimeout:        po.EmbedTimeout,
	})
	logger.Infow("Pipeline initialized",
		"cache.enabled", queryEmbedding != nil,
		"vision.enabled", visionEndpoint != nil,
		"top_k", po.TopK,
	)
	return comps, nil
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		for i := len(s.closers) - 1; i >= 0; i-- {
			s.closers[i]()
		}
	}()
	return server.Run(ctx, s.shutdownTimeout, s.runnables...)
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	if cfg.VisionOptions.Enabled() {
		fmt.Printf("  Vision: %s\n", cfg.VisionOptions.Endpoint)
	}
}
