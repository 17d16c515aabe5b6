package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/smartsite/sitehealth/internal/logger"
	"github.com/smartsite/sitehealth/pkg/models"
)

// affectedAreas maps metric names to the human label shown on incident
// cards.
var affectedAreas = map[string]string{
	models.MetricAPIErrorRate:       "API Services",
	models.MetricDashboardLoadTime:  "Dashboard Performance",
	models.MetricLoginFailureRate:   "User Authentication",
	models.MetricMediaUploadFailure: "Media Upload System",
}

const defaultAffectedArea = "General System"

// IncidentManager converts an exceeded evaluation into at most one
// incident per metric: while an active incident exists for a metric, no
// further ones are opened.
type IncidentManager struct {
	incidents IncidentStore
	now       func() time.Time
	// estimateAffectedUsers is a coarse placeholder until real session
	// attribution exists. Always positive.
	estimateAffectedUsers func() int
}

func NewIncidentManager(incidents IncidentStore) *IncidentManager {
	return &IncidentManager{
		incidents:             incidents,
		now:                   time.Now,
		estimateAffectedUsers: func() int { return rand.Intn(10) + 1 },
	}
}

// CreateIncidentIfAbsent opens an incident for the exceeded evaluation
// unless the metric already has an active one. Returns the new incident
// or nil when deduped.
func (m *IncidentManager) CreateIncidentIfAbsent(ctx context.Context, metric *models.HealthMetric, eval *models.Evaluation) (*models.HealthIncident, error) {
	existing, err := m.incidents.FindActiveByMetric(ctx, metric.ID)
	if err != nil {
		return nil, fmt.Errorf("active incident lookup failed: %w", err)
	}
	if existing != nil {
		logger.WithMetric(metric.Name).Debugf("Active incident %s already open, skipping", existing.ID)
		return nil, nil
	}

	severity, err := classifySeverity(metric, eval.Value)
	if err != nil {
		return nil, err
	}

	details, err := incidentDetails(metric, eval)
	if err != nil {
		return nil, err
	}

	incident := &models.HealthIncident{
		MetricID:      metric.ID,
		Status:        models.IncidentActive,
		Severity:      severity,
		AffectedArea:  affectedAreaFor(metric.Name),
		AffectedUsers: m.estimateAffectedUsers(),
		Details:       details,
		DetectedAt:    m.now(),
	}

	if err := m.incidents.Insert(ctx, incident); err != nil {
		return nil, fmt.Errorf("failed to persist incident: %w", err)
	}

	logger.WithMetric(metric.Name).Infof(
		"Incident %s opened: %s (%s, value=%.2f)",
		incident.ID, incident.AffectedArea, incident.Severity, eval.Value,
	)

	return incident, nil
}

// classifySeverity applies the doubling heuristic against the metric
// kind's own primary threshold: more than double is critical, anything
// else that tripped the check is a warning.
func classifySeverity(metric *models.HealthMetric, value float64) (models.IncidentSeverity, error) {
	threshold, err := models.ParseThreshold(metric.Name, metric.Threshold)
	if err != nil {
		return "", err
	}

	if value > threshold.Primary()*2 {
		return models.SeverityCritical, nil
	}
	return models.SeverityWarning, nil
}

func affectedAreaFor(metricName string) string {
	if area, ok := affectedAreas[metricName]; ok {
		return area
	}
	return defaultAffectedArea
}

func incidentDetails(metric *models.HealthMetric, eval *models.Evaluation) (json.RawMessage, error) {
	merged := make(map[string]interface{}, len(eval.Details)+3)
	for k, v := range eval.Details {
		merged[k] = v
	}
	merged["metric_id"] = metric.ID
	merged["metric_name"] = metric.Name
	merged["value"] = eval.Value

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode incident details: %w", err)
	}
	return data, nil
}
