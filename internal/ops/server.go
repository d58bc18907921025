// Package ops serves the worker's operational endpoints: liveness and
// Prometheus metrics.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
)

// HealthChecker reports readiness of a downstream dependency.
type HealthChecker interface {
	Health(ctx context.Context) (string, error)
}

// ItemStore reads stored news items, newest first.
type ItemStore interface {
	Query(ctx context.Context, limit int) ([]domain.NewsItem, error)
}

// Server is the ops HTTP server.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger logger.Logger

	workerID  string
	embedding HealthChecker
	items     ItemStore
}

// NewServer builds the ops server. The embedding checker may be nil when the
// embedding service is not configured.
func NewServer(port int, workerID string, embedding HealthChecker, items ItemStore, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger:    log,
		workerID:  workerID,
		embedding: embedding,
		items:     items,
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/items", s.handleItems)
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("ops server listening", logger.String("addr", s.http.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("ops server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"worker_id": s.workerID,
	}

	if s.embedding != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		version, err := s.embedding.Health(ctx)
		if err != nil {
			resp["embedding"] = gin.H{"status": "unavailable"}
		} else {
			resp["embedding"] = gin.H{"status": "ok", "model_version": version}
		}
	}

	c.JSON(http.StatusOK, resp)
}

const (
	defaultItemsLimit = 50
	maxItemsLimit     = 500
)

// handleItems returns recently stored items, newest first.
func (s *Server) handleItems(c *gin.Context) {
	limit := defaultItemsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxItemsLimit)
	}

	items, err := s.items.Query(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to query items", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if items == nil {
		items = []domain.NewsItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}
