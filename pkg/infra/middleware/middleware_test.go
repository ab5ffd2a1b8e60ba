package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/infra/middleware/requestid"
	"github.com/kart-io/pawcare/pkg/utils/json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	e := gin.New()
	e.Use(mw...)
	return e
}

func TestRecovery(t *testing.T) {
	e := newEngine(requestid.Middleware(), Recovery())
	e.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(apierrors.ErrPanic.Code), body["code"])
	assert.NotEmpty(t, body["request_id"])
}

func TestRequestID(t *testing.T) {
	e := newEngine(requestid.Middleware())
	var seen string
	e.GET("/", func(c *gin.Context) { seen = requestid.Get(c.Request.Context()) })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(requestid.Header))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.Header, "abc")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, "abc", seen)
}

func TestBodyLimit(t *testing.T) {
	e := newEngine(BodyLimit(8))
	var readErr error
	e.POST("/", func(c *gin.Context) {
		_, readErr = io.ReadAll(c.Request.Body)
	})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.True(t, IsBodyTooLarge(readErr))
}

func TestTimeout(t *testing.T) {
	e := newEngine(Timeout(50 * time.Millisecond))
	var hasDeadline bool
	e.GET("/", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, hasDeadline)
}

func TestLogger_Passthrough(t *testing.T) {
	e := newEngine(Logger("/healthz"))
	e.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	e.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
