// Package handler exposes the triage pipeline over HTTP.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/internal/pawcare/biz"
	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	"github.com/kart-io/pawcare/internal/pkg/pawcare/docutil"
	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/infra/middleware"
	"github.com/kart-io/pawcare/pkg/infra/middleware/requestid"
	"github.com/kart-io/pawcare/pkg/infra/pool"
	"github.com/kart-io/pawcare/pkg/utils/response"
	"github.com/kart-io/pawcare/pkg/utils/validator"
)

// Config holds handler defaults.
type Config struct {
	// DataDir is indexed when a request names no directory.
	DataDir string
	// IndexTimeout bounds background indexing jobs.
	IndexTimeout time.Duration
	// MetricsNamespace prefixes the exported metric names.
	MetricsNamespace string
}

// Handler serves the pawcare API.
type Handler struct {
	service    biz.Service
	background *pool.Pool
	metrics    *metrics.PipelineMetrics
	cfg        Config
}

// New creates a Handler. background may be nil, in which case async
// index requests run synchronously.
func New(service biz.Service, background *pool.Pool, m *metrics.PipelineMetrics, cfg Config) *Handler {
	if m == nil {
		m = metrics.Global()
	}
	if cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = "pawcare"
	}
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = 30 * time.Minute
	}
	return &Handler{service: service, background: background, metrics: m, cfg: cfg}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.GET("/metrics", h.Metrics)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/index", h.Index)
		v1.DELETE("/index", h.Purge)
		v1.POST("/chat", h.Chat)
		v1.GET("/stats", h.Stats)
	}
}

// IndexRequest asks for a directory to be (re)indexed.
type IndexRequest struct {
	Directory string `json:"directory"`
	Async     bool   `json:"async"`
}

// IndexResult is returned by a synchronous index run.
type IndexResult struct {
	Message string           `json:"message"`
	Chunks  int              `json:"chunks"`
	Files   int              `json:"files"`
	Failed  []biz.FileFailure `json:"failed,omitempty"`
}

// ChatMessage is one prior turn sent by the client.
type ChatMessage struct {
	Sender string `json:"sender" validate:"required,oneof=user ai"`
	Text   string `json:"text"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message     string        `json:"message" validate:"required,notblank"`
	ChatHistory []ChatMessage `json:"chat_history" validate:"omitempty,dive"`
	ImageBase64 string        `json:"image_base64" validate:"omitempty,imagebase64"`
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics writes the pipeline counters in Prometheus text format.
func (h *Handler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(h.metrics.Export(h.cfg.MetricsNamespace, "pipeline")))
}

// Index indexes a directory, either inline or on the background pool.
func (h *Handler) Index(c *gin.Context) {
	var req IndexRequest
	// 请求体可为空，此时索引默认目录
	if c.Request.ContentLength != 0 {
		if !h.bind(c, &req) {
			return
		}
	}
	dir := req.Directory
	if dir == "" {
		dir = h.cfg.DataDir
	}
	if !docutil.DirExists(dir) {
		response.Fail(c, errors.ErrDirectoryNotFound.WithMessagef("directory %q not found", dir))
		return
	}

	if req.Async && h.background != nil {
		h.indexAsync(c, dir)
		return
	}

	report, err := h.service.IndexDirectory(c.Request.Context(), dir)
	if err != nil {
		logger.Errorw("index request failed", "directory", dir, "error", err.Error())
		response.Fail(c, err)
		return
	}
	response.OK(c, &IndexResult{
		Message: fmt.Sprintf("Indexing complete. Processed chunks: %d", report.Chunks),
		Chunks:  report.Chunks,
		Files:   report.Files,
		Failed:  report.Failures,
	})
}

func (h *Handler) indexAsync(c *gin.Context, dir string) {
	reqID := requestid.Get(c.Request.Context())
	err := h.background.Submit(func() {
		ctx, cancel := context.WithTimeout(requestid.With(context.Background(), reqID), h.cfg.IndexTimeout)
		defer cancel()

		report, err := h.service.IndexDirectory(ctx, dir)
		if err != nil {
			logger.Errorw("background index failed", "directory", dir, "request_id", reqID, "error", err.Error())
			return
		}
		logger.Infow("background index finished",
			"directory", dir, "request_id", reqID, "files", report.Files, "chunks", report.Chunks)
	})
	if err != nil {
		response.Fail(c, errors.ErrTooManyRequests.WithCause(err))
		return
	}

	resp := response.Success(gin.H{"directory": dir, "status": "accepted"})
	resp.Message = "Indexing started"
	resp.RequestID = reqID
	c.JSON(http.StatusAccepted, resp)
}

// Purge removes every indexed vector.
func (h *Handler) Purge(c *gin.Context) {
	if err := h.service.Purge(c.Request.Context()); err != nil {
		logger.Errorw("purge failed", "error", err.Error())
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"message": "All vectors cleared"})
}

// Chat runs the triage pipeline for one message.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if !h.bind(c, &req) {
		return
	}

	var image []byte
	if req.ImageBase64 != "" {
		data, err := validator.DecodeImageBase64(req.ImageBase64)
		if err != nil {
			response.Fail(c, errors.ErrInvalidImage.WithCause(err))
			return
		}
		image = data
	}

	history := make([]biz.ChatMessage, 0, len(req.ChatHistory))
	for _, m := range req.ChatHistory {
		history = append(history, biz.ChatMessage{Sender: biz.Sender(m.Sender), Text: m.Text})
	}

	resp, err := h.service.GenerateResponse(c.Request.Context(), req.Message, history, image)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, resp)
}

// Stats reports the collection size and pipeline counters.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, stats)
}

// bind decodes the JSON body and writes the error response on failure.
func (h *Handler) bind(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	if middleware.IsBodyTooLarge(err) {
		response.Fail(c, errors.ErrRequestTooLarge)
		return false
	}
	if verr, ok := err.(*validator.ValidationErrors); ok {
		// 按请求语言重新翻译校验信息
		if translated := validator.Global().ValidateWithLang(obj, response.Lang(c)); translated != nil {
			verr = translated
		}
		response.FailWithData(c, errors.ErrInvalidParam.WithMessagef("%s", verr.First()), verr.ToMap())
		return false
	}
	response.Fail(c, errors.ErrBadRequest.WithCause(err))
	return false
}
