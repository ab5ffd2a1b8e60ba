// Package http provides the gin based HTTP server.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/kart-io/logger"

	apierrors "github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/infra/middleware"
	"github.com/kart-io/pawcare/pkg/infra/middleware/requestid"
	"github.com/kart-io/pawcare/pkg/infra/server"
	options "github.com/kart-io/pawcare/pkg/options/server/http"
	"github.com/kart-io/pawcare/pkg/utils/response"
	"github.com/kart-io/pawcare/pkg/utils/validator"
)

// Server is the HTTP server implementation.
type Server struct {
	opts   *options.Options
	engine *gin.Engine
	server *http.Server
	addr   net.Addr
}

var _ server.Runnable = (*Server)(nil)

// NewServer creates a gin engine with the standard middleware chain:
// recovery, request ID, tracing, access log, body limit and request deadline.
func NewServer(opts *options.Options) *Server {
	if opts == nil {
		opts = options.NewOptions()
	}

	gin.SetMode(gin.ReleaseMode)
	binding.Validator = validator.GinValidator{V: validator.Global()}

	engine := gin.New()
	// 中间件必须在注册路由之前应用，子路由组才能继承
	engine.Use(
		middleware.Recovery(),
		requestid.Middleware(),
		middleware.Tracing("/healthz", "/metrics"),
		middleware.Logger("/healthz", "/metrics"),
		middleware.BodyLimit(opts.MaxBodyBytes),
		middleware.Timeout(opts.RequestTimeout),
	)
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteNotFound)
	})

	return &Server{opts: opts, engine: engine}
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the bound listener address once started.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Start binds the listener and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()

	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "addr", s.addr.String(), "error", err)
		}
	}()
	logger.Infow("HTTP server listening", "addr", s.addr.String())
	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
