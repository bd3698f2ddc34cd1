// file: internal/gateway/server.go

package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"macro-resolver/config"
	"macro-resolver/internal/entity"
	"macro-resolver/internal/logger"
	"macro-resolver/internal/macro"
	"macro-resolver/internal/metrics"
)

// BasePath is the versioned prefix of every API route
const BasePath = "/api/v1"

// Resolver is the part of the engine the gateway needs
type Resolver interface {
	ResolveRecords(ctx context.Context, scenario macro.Scenario, in entity.Records) (macro.RecordsResult, error)
}

// Server exposes the resolver over a JSON HTTP API
type Server struct {
	logger     *logger.Logger
	metrics    *metrics.Metrics
	resolver   Resolver
	cfg        config.HTTPConfig
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer registers the routes. Metrics may be nil.
func NewServer(log *logger.Logger, m *metrics.Metrics, resolver Resolver, cfg config.HTTPConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		logger:   log,
		metrics:  m,
		resolver: resolver,
		cfg:      cfg,
		router:   r,
	}

	r.Use(metrics.GinMiddleware(m), s.requestLogger)
	r.GET("/healthz", s.health)
	r.GET("/health", s.health)

	v := r.Group(BasePath)
	v.GET("/scenarios", s.scenarios)
	v.POST("/resolve/:scenario", s.resolve)

	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens in the background until Stop is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		s.logger.Info("starting HTTP API server",
			"address", s.cfg.Address,
			"maxRecords", s.cfg.MaxRecords)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping HTTP API server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to gracefully shutdown HTTP server", "error", err)
		return err
	}
	s.logger.Info("HTTP API server stopped")
	return nil
}
