// Package server exposes response morphing over HTTP with gin. Handlers
// return a response.Response; the server picks the output format per
// request and writes the morphed result.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/apimorph/internal/config"
	"github.com/vyrodovalexey/apimorph/internal/format"
	"github.com/vyrodovalexey/apimorph/internal/model"
	"github.com/vyrodovalexey/apimorph/internal/observability"
	"github.com/vyrodovalexey/apimorph/internal/response"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// HandlerFunc produces the response to morph. A returned error is rendered
// as a problem document.
type HandlerFunc func(c *gin.Context) (*response.Response, error)

// Server is the HTTP adapter around the morph pipeline.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	runtime    atomic.Pointer[Runtime]
	logger     observability.Logger
	config     config.ServerConfig
	tracing    bool
	mu         sync.Mutex
	running    bool
}

// Option is a functional option for configuring the server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTracing enables the request tracing middleware.
func WithTracing(enabled bool) Option {
	return func(s *Server) {
		s.tracing = enabled
	}
}

// New creates a server serving rt. Operational endpoints (/healthz,
// /metrics and /formats) are registered immediately.
func New(cfg config.ServerConfig, rt *Runtime, opts ...Option) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		engine: gin.New(),
		logger: observability.NopLogger(),
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runtime.Store(rt)

	s.engine.Use(RequestID())
	if s.tracing {
		s.engine.Use(Tracing("/healthz", "/metrics"))
	}
	s.engine.Use(AccessLog(s.logger, "/healthz", "/metrics"), Recovery(s.logger))

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.GET("/formats", s.listFormats)

	s.engine.NoRoute(func(c *gin.Context) {
		writeProblem(c, newProblem(http.StatusNotFound, "no route matches "+c.Request.URL.Path))
	})

	return s
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Runtime returns the current runtime snapshot.
func (s *Server) Runtime() *Runtime {
	return s.runtime.Load()
}

// SetRuntime swaps the runtime snapshot. Requests already in flight finish
// with the snapshot they started with.
func (s *Server) SetRuntime(rt *Runtime) {
	s.runtime.Store(rt)
	s.logger.Info("runtime updated",
		observability.Strings("formats", rt.Catalog.IDs()),
		observability.Strings("transformers", rt.Factory.Kinds()),
	)
}

// GET registers a morphing handler for GET requests.
func (s *Server) GET(path string, h HandlerFunc) {
	s.engine.GET(path, s.Handle(h))
}

// POST registers a morphing handler for POST requests.
func (s *Server) POST(path string, h HandlerFunc) {
	s.engine.POST(path, s.Handle(h))
}

// Handle adapts h to gin. The response is morphed into the format selected
// for the request and written with its status, headers and cookies.
func (s *Server) Handle(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		rt := s.Runtime()

		resp, err := h(c)
		if err != nil {
			s.fail(c, rt, err)
			return
		}
		if resp == nil {
			c.Status(http.StatusNoContent)
			return
		}

		formatID := selectFormat(c, rt)
		c.Set(formatKey, formatID)

		if _, err := rt.Morpher.Morph(c.Request.Context(), resp, formatID, morphOptions(c, rt)...); err != nil {
			s.fail(c, rt, err)
			return
		}

		addVary(resp.Header(), "Accept")
		if err := resp.Write(c.Writer); err != nil {
			s.logger.WithContext(c.Request.Context()).Warn("failed to write response",
				observability.Error(err))
		}
	}
}

func (s *Server) fail(c *gin.Context, rt *Runtime, err error) {
	p := problemFor(err, rt)
	if p.Status >= http.StatusInternalServerError {
		s.logger.WithContext(c.Request.Context()).Error("request failed",
			observability.String("path", c.Request.URL.Path),
			observability.Error(err))
	}
	_ = c.Error(err)
	writeProblem(c, p)
}

// listFormats reports the registered formats and their content types in
// the negotiated format.
func (s *Server) listFormats(*gin.Context) (*response.Response, error) {
	rt := s.Runtime()

	formats := make([]model.Record, 0, len(rt.Catalog.IDs()))
	for _, id := range rt.Catalog.IDs() {
		f, err := rt.Catalog.Get(id)
		if err != nil {
			return nil, err
		}
		formats = append(formats, model.NewResource("format", map[string]any{
			"name":         id,
			"content_type": format.ContentTypeOf(f, rt.Catalog.OptionsFor(id)),
			"default":      id == rt.DefaultFormat,
		}))
	}

	return response.New(model.NewList("formats", formats...), http.StatusOK, nil), nil
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until Stop is called.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.config.ReadTimeout.Duration(),
		ReadHeaderTimeout: s.config.ReadTimeout.Duration(),
		WriteTimeout:      s.config.WriteTimeout.Duration(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", l.Addr().String()),
		observability.Duration("readTimeout", s.config.ReadTimeout.Duration()),
		observability.Duration("writeTimeout", s.config.WriteTimeout.Duration()),
	)

	err := s.httpServer.Serve(l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// addVary adds field to the Vary header unless it is already listed.
func addVary(h http.Header, field string) {
	for _, v := range h.Values("Vary") {
		for _, existing := range strings.Split(v, ",") {
			existing = strings.TrimSpace(existing)
			if existing == "*" || strings.EqualFold(existing, field) {
				return
			}
		}
	}
	h.Add("Vary", field)
}
