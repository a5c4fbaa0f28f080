// Package api serves a read-only HTTP view of the whitelist, the swap journal
// and the registered pool adapters.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/lugondev/go-cpiswap/internal/common"
	"github.com/lugondev/go-cpiswap/internal/metrics"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/storage"
	"github.com/lugondev/go-cpiswap/internal/whitelist"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// WhitelistReader is the part of whitelist.Store the API reads.
type WhitelistReader interface {
	Load(ctx context.Context, key solana.PublicKey) (*whitelist.Whitelist, error)
	Contains(ctx context.Context, key, user solana.PublicKey) (bool, error)
	Capacity() int
}

// Server exposes the router state over HTTP.
type Server struct {
	common.LoggerMixin

	whitelists WhitelistReader
	key        solana.PublicKey
	swaps      storage.SwapRepository
	registry   *pool.Registry
	stats      *metrics.LogMetrics

	engine     *gin.Engine
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves the snapshot of m at /v1/metrics.
func WithMetrics(m *metrics.LogMetrics) Option {
	return func(s *Server) { s.stats = m }
}

func NewServer(whitelists WhitelistReader, key solana.PublicKey, swaps storage.SwapRepository, registry *pool.Registry, opts ...Option) *Server {
	s := &Server{
		LoggerMixin: common.NewLoggerMixin(),
		whitelists:  whitelists,
		key:         key,
		swaps:       swaps,
		registry:    registry,
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/health", s.health)
	v1 := engine.Group("/v1")
	v1.GET("/whitelist", s.getWhitelist)
	v1.GET("/whitelist/:address", s.getMembership)
	v1.GET("/swaps", s.listSwaps)
	v1.GET("/swaps/:id", s.getSwap)
	v1.GET("/pools", s.listPools)
	if s.stats != nil {
		v1.GET("/metrics", s.getMetrics)
	}

	s.engine = engine
	return s
}

// Handler returns the routes, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr in the background.
func (s *Server) Start(addr string) {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.GetLogger().Info("starting api server", "addr", addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.GetLogger().Error("api server stopped", "error", err)
		}
	}()
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop api server: %w", err)
	}
	s.GetLogger().Info("api server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.GetLogger().Debug("api request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
