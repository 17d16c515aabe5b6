package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartsite/sitehealth/internal/ratelimit"
	"github.com/smartsite/sitehealth/pkg/database"
)

// StatusReporter exposes the monitor's live state for the health payload.
type StatusReporter interface {
	Status() map[string]interface{}
}

type HealthHandler struct {
	db      *database.DB
	monitor StatusReporter
	limiter *ratelimit.RateLimiter
}

func NewHealthHandler(db *database.DB, monitor StatusReporter, limiter *ratelimit.RateLimiter) *HealthHandler {
	return &HealthHandler{
		db:      db,
		monitor: monitor,
		limiter: limiter,
	}
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]string      `json:"checks,omitempty"`
	Monitor   map[string]interface{} `json:"monitor,omitempty"`
	Database  map[string]interface{} `json:"database,omitempty"`
}

// Health reports overall site health. This endpoint is polled heavily by
// client bundles, so over-limit callers get a canned healthy snapshot
// with a 200 rather than a 429; browsers treat any error here as an
// outage in its own right.
//
// @Summary Site health status
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /api/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	if h.limiter != nil && !h.limiter.ShouldAllowRequest(c.ClientIP()) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	if err := h.db.HealthCheck(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "healthy"
	}

	stats := h.db.GetConnectionStats()

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Database: map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
		},
	}
	if h.monitor != nil {
		resp.Monitor = h.monitor.Status()
	}

	c.JSON(http.StatusOK, resp)
}

// Ready is the orchestration readiness probe; unlike Health it does
// surface failures as 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "not ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
