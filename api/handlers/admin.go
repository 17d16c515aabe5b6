package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartsite/sitehealth/pkg/database/queries"
	"github.com/smartsite/sitehealth/pkg/models"
)

// IncidentResolver is the monitor-side surface for admin actions that
// need to flow through the dispatcher rather than straight to storage,
// so resolution and delivery are logged and published as events.
type IncidentResolver interface {
	ResolveIncident(ctx context.Context, incidentID string) error
	MarkDelivered(ctx context.Context, notificationID string) error
}

type AdminHandler struct {
	metricRepo       *queries.HealthMetricRepository
	logRepo          *queries.MetricLogRepository
	incidentRepo     *queries.IncidentRepository
	notificationRepo *queries.NotificationRepository
	resolver         IncidentResolver
	defaultLimit     int
	maxLimit         int
}

func NewAdminHandler(
	metricRepo *queries.HealthMetricRepository,
	logRepo *queries.MetricLogRepository,
	incidentRepo *queries.IncidentRepository,
	notificationRepo *queries.NotificationRepository,
	resolver IncidentResolver,
	defaultLimit, maxLimit int,
) *AdminHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &AdminHandler{
		metricRepo:       metricRepo,
		logRepo:          logRepo,
		incidentRepo:     incidentRepo,
		notificationRepo: notificationRepo,
		resolver:         resolver,
		defaultLimit:     defaultLimit,
		maxLimit:         maxLimit,
	}
}

func (h *AdminHandler) limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", ""))
	if err != nil || limit <= 0 {
		return h.defaultLimit
	}
	if limit > h.maxLimit {
		return h.maxLimit
	}
	return limit
}

// ListIncidents returns stored incidents, newest first, optionally
// filtered by status.
//
// @Summary List incidents
// @Tags admin
// @Produce json
// @Param status query string false "Filter by status (active, acknowledged, resolved)"
// @Param limit query int false "Maximum rows to return"
// @Success 200 {array} models.HealthIncident
// @Security BearerAuth
// @Router /api/admin/health/incidents [get]
func (h *AdminHandler) ListIncidents(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", string(models.IncidentActive), string(models.IncidentAcknowledged), string(models.IncidentResolved):
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	incidents, err := h.incidentRepo.List(ctx, status, h.limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list incidents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"incidents": incidents, "count": len(incidents)})
}

func (h *AdminHandler) GetIncident(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	incident, err := h.incidentRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, queries.ErrIncidentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load incident"})
		return
	}

	c.JSON(http.StatusOK, incident)
}

// ResolveIncident closes an incident. Resolution is manual only; the
// monitor never resolves incidents on its own.
//
// @Summary Resolve an incident
// @Tags admin
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} map[string]bool
// @Security BearerAuth
// @Router /api/admin/health/incidents/{id}/resolve [post]
func (h *AdminHandler) ResolveIncident(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.resolver.ResolveIncident(ctx, c.Param("id")); err != nil {
		if errors.Is(err, queries.ErrIncidentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve incident"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListPendingNotifications returns queued notifications of one type.
func (h *AdminHandler) ListPendingNotifications(c *gin.Context) {
	notifType := c.DefaultQuery("type", string(models.NotificationAdmin))
	if notifType != string(models.NotificationAdmin) && notifType != string(models.NotificationUser) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification type"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	notifications, err := h.notificationRepo.ListPending(ctx, notifType, h.limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "count": len(notifications)})
}

// DeliverNotification marks a notification delivered. Safe to repeat.
func (h *AdminHandler) DeliverNotification(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.resolver.MarkDelivered(ctx, c.Param("id")); err != nil {
		if errors.Is(err, queries.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notification delivered"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) ListMetrics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	metrics, err := h.metricRepo.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"metrics": metrics, "count": len(metrics)})
}

func (h *AdminHandler) GetMetric(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	metric, err := h.metricRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, queries.ErrMetricNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "metric not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metric"})
		return
	}

	c.JSON(http.StatusOK, metric)
}

type MetricRequest struct {
	Name        string          `json:"name" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
	Threshold   json.RawMessage `json:"threshold" binding:"required"`
	Enabled     *bool           `json:"enabled"`
}

// CreateMetric stores a new metric definition. The threshold shape must
// decode for the metric's name, otherwise the evaluator could never run
// it.
func (h *AdminHandler) CreateMetric(c *gin.Context) {
	var req MetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if _, err := models.ParseThreshold(req.Name, req.Threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	metric := &models.HealthMetric{
		Name:        req.Name,
		Category:    models.MetricCategory(req.Category),
		Description: req.Description,
		Threshold:   req.Threshold,
		Enabled:     enabled,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.metricRepo.Create(ctx, metric); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create metric"})
		return
	}

	c.JSON(http.StatusCreated, metric)
}

func (h *AdminHandler) UpdateMetric(c *gin.Context) {
	var req MetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	metric, err := h.metricRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, queries.ErrMetricNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "metric not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metric"})
		return
	}

	// The name is immutable; the threshold must stay decodable for it.
	if _, err := models.ParseThreshold(metric.Name, req.Threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metric.Category = models.MetricCategory(req.Category)
	metric.Description = req.Description
	metric.Threshold = req.Threshold
	if req.Enabled != nil {
		metric.Enabled = *req.Enabled
	}

	if err := h.metricRepo.Update(ctx, metric); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update metric"})
		return
	}

	c.JSON(http.StatusOK, metric)
}

// MetricHistory returns the persisted evaluation log for one metric.
func (h *AdminHandler) MetricHistory(c *gin.Context) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		to = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	logs, err := h.logRepo.GetByMetric(ctx, c.Param("id"), from, to, h.limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metric history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}
