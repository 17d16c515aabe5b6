package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartsite/sitehealth/internal/logger"
	"github.com/smartsite/sitehealth/internal/ratelimit"
)

// HealthTracker receives raw client observations. Implemented by the
// monitor service; tracking works even while the evaluation loop is
// stopped.
type HealthTracker interface {
	TrackAPIError(route string, statusCode int)
	TrackPageLoadTime(page string, loadTimeMs float64)
	TrackSessionFailure()
	TrackMediaUpload(success bool)
	TrackPerformanceMetric(name string, value float64)
}

type TrackHandler struct {
	tracker         HealthTracker
	batchLimiter    *ratelimit.RateLimiter
	apiErrorLimiter *ratelimit.RateLimiter
	pageLoadLimiter *ratelimit.RateLimiter
	maxBatchEntries int
}

func NewTrackHandler(tracker HealthTracker, batchLimiter, apiErrorLimiter, pageLoadLimiter *ratelimit.RateLimiter, maxBatchEntries int) *TrackHandler {
	if maxBatchEntries <= 0 {
		maxBatchEntries = 20
	}
	return &TrackHandler{
		tracker:         tracker,
		batchLimiter:    batchLimiter,
		apiErrorLimiter: apiErrorLimiter,
		pageLoadLimiter: pageLoadLimiter,
		maxBatchEntries: maxBatchEntries,
	}
}

// BatchMetric is one client observation. Route and Page qualify the
// api_error_rate and page_load_time kinds; everything else is a named
// gauge.
type BatchMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Route string  `json:"route,omitempty"`
	Page  string  `json:"page,omitempty"`
}

type BatchRequest struct {
	Metrics []BatchMetric `json:"metrics"`
}

// ok ends every tracking request. Client telemetry must never surface
// errors to the page that sent it, so dropped or invalid payloads get
// the same answer as accepted ones.
func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Batch ingests a batch of observations. The response is sent before
// any processing; the work happens in the background.
//
// @Summary Ingest a batch of health observations
// @Tags tracking
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/health/metrics/batch [post]
func (h *TrackHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ok(c)
		return
	}

	if h.batchLimiter != nil && !h.batchLimiter.ShouldAllowRequest(c.ClientIP()) {
		ok(c)
		return
	}

	metrics := req.Metrics
	if len(metrics) > h.maxBatchEntries {
		logger.Debugf("Truncating oversized tracking batch: %d entries", len(metrics))
		metrics = metrics[:h.maxBatchEntries]
	}

	ok(c)

	go func() {
		for _, metric := range metrics {
			h.apply(metric)
		}
	}()
}

// TrackSingle is the single-metric form of Batch with the same routing,
// the same limiter and the same always-200 contract.
func (h *TrackHandler) TrackSingle(c *gin.Context) {
	var metric BatchMetric
	if err := c.ShouldBindJSON(&metric); err != nil {
		ok(c)
		return
	}

	if h.batchLimiter != nil && !h.batchLimiter.ShouldAllowRequest(c.ClientIP()) {
		ok(c)
		return
	}

	ok(c)
	go h.apply(metric)
}

func (h *TrackHandler) apply(metric BatchMetric) {
	switch metric.Name {
	case "api_error_rate":
		route := metric.Route
		if route == "" {
			route = "batch"
		}
		h.tracker.TrackAPIError(route, int(metric.Value))
	case "page_load_time":
		page := metric.Page
		if page == "" {
			page = "/dashboard"
		}
		h.tracker.TrackPageLoadTime(page, metric.Value)
	default:
		if metric.Name != "" {
			h.tracker.TrackPerformanceMetric(metric.Name, metric.Value)
		}
	}
}

type APIErrorRequest struct {
	Route      string `json:"route" binding:"required"`
	StatusCode int    `json:"statusCode" binding:"required"`
}

// APIError records a single failed API call. Per-IP limited; over-limit
// reports are silently dropped.
func (h *TrackHandler) APIError(c *gin.Context) {
	var req APIErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ok(c)
		return
	}

	if h.apiErrorLimiter != nil && !h.apiErrorLimiter.ShouldAllowRequest(c.ClientIP()) {
		ok(c)
		return
	}

	h.tracker.TrackAPIError(req.Route, req.StatusCode)
	ok(c)
}

type PageLoadRequest struct {
	Page       string  `json:"page" binding:"required"`
	LoadTimeMs float64 `json:"loadTimeMs" binding:"required"`
}

// PageLoad records a page timing sample. Per-IP limited; over-limit
// samples are silently dropped.
func (h *TrackHandler) PageLoad(c *gin.Context) {
	var req PageLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ok(c)
		return
	}

	if h.pageLoadLimiter != nil && !h.pageLoadLimiter.ShouldAllowRequest(c.ClientIP()) {
		ok(c)
		return
	}

	h.tracker.TrackPageLoadTime(req.Page, req.LoadTimeMs)
	ok(c)
}

// SessionFailure records one failed login attempt. Called by the auth
// layer rather than browser beacons.
func (h *TrackHandler) SessionFailure(c *gin.Context) {
	h.tracker.TrackSessionFailure()
	ok(c)
}

type MediaUploadRequest struct {
	Success *bool `json:"success" binding:"required"`
}

// MediaUpload records an upload outcome.
func (h *TrackHandler) MediaUpload(c *gin.Context) {
	var req MediaUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ok(c)
		return
	}

	h.tracker.TrackMediaUpload(*req.Success)
	ok(c)
}
