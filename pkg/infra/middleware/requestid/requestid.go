// Package requestid propagates a per-request identifier through the context.
package requestid

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/pawcare/pkg/utils/id"
)

// Header is the header name for request ID.
const Header = "X-Request-ID"

type ctxKey struct{}

// Get returns the request ID from the context, or "" if not set.
func Get(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// With stores the request ID in the context.
func With(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// Middleware reuses an incoming X-Request-ID or generates a ULID, then
// echoes it on the response and stores it in the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(Header)
		if rid == "" || len(rid) > 128 {
			rid = id.NewULID()
		}
		c.Header(Header, rid)
		c.Request = c.Request.WithContext(With(c.Request.Context(), rid))
		c.Next()
	}
}
