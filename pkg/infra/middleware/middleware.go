// Package middleware provides the gin middleware chain of the HTTP server.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	apierrors "github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/infra/middleware/requestid"
	"github.com/kart-io/pawcare/pkg/utils/response"
)

// Recovery 捕获 handler 中的 panic，记录完整堆栈并返回统一错误响应。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", r,
					"stack_trace", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"request_id", requestid.Get(c.Request.Context()),
				)
				response.Fail(c, apierrors.ErrPanic.WithMessagef("panic: %v", r))
			}
		}()
		c.Next()
	}
}

// Logger 记录每个请求的方法、路径、状态码和耗时。skipPaths 中的路径不记录。
func Logger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency_ms", latency.Milliseconds(),
			"request_id", requestid.Get(c.Request.Context()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Errorw("HTTP Request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warnw("HTTP Request", fields...)
		default:
			logger.Infow("HTTP Request", fields...)
		}
	}
}

// BodyLimit 限制请求体大小。Content-Length 超限时立即拒绝，
// 其余情况由 http.MaxBytesReader 在读取时截断。
func BodyLimit(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = 4 << 20
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			logger.Warnw("request body too large",
				"path", c.Request.URL.Path,
				"content_length", c.Request.ContentLength,
				"max_size", maxSize,
			)
			response.Fail(c, apierrors.ErrRequestTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from a MaxBytesReader limit.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// Timeout 为请求上下文设置截止时间，下游调用据此取消。
// 超时后的响应由 handler 自行决定。
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
