package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gettogather-api/internal/service"
	"github.com/noah-isme/gettogather-api/pkg/cache"
)

const readyCheckTimeout = 2 * time.Second

// HealthHandler exposes liveness, readiness and Prometheus endpoints.
type HealthHandler struct {
	metrics    *service.MetricsService
	configured func() bool
	pingCache  func(context.Context) error
}

// NewHealthHandler constructs the handler. configured reports whether the backend is
// wired; pingCache pings Redis and may be nil when caching is off.
func NewHealthHandler(metrics *service.MetricsService, configured func() bool, pingCache func(context.Context) error) *HealthHandler {
	if configured == nil {
		configured = func() bool { return false }
	}
	if pingCache == nil {
		pingCache = func(context.Context) error { return cache.ErrDisabled }
	}
	return &HealthHandler{metrics: metrics, configured: configured, pingCache: pingCache}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness check
// @Description Ready in both modes. backend reports configured or mock; cache reports up, down or disabled.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	mode := "mock"
	if h.configured() {
		mode = "configured"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readyCheckTimeout)
	defer cancel()
	cacheState := "up"
	if err := h.pingCache(ctx); err != nil {
		cacheState = "down"
		if errors.Is(err, cache.ErrDisabled) {
			cacheState = "disabled"
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "backend": mode, "cache": cacheState})
}
