package models

import (
	"encoding/json"
	"time"
)

type IncidentStatus string

const (
	IncidentActive       IncidentStatus = "active"
	IncidentAcknowledged IncidentStatus = "acknowledged"
	IncidentResolved     IncidentStatus = "resolved"
)

type IncidentSeverity string

const (
	SeverityInfo     IncidentSeverity = "info"
	SeverityWarning  IncidentSeverity = "warning"
	SeverityCritical IncidentSeverity = "critical"
)

// HealthIncident records one episode where a metric exceeded its
// threshold. At most one active incident exists per metric at any time;
// resolution is an explicit administrator action.
type HealthIncident struct {
	ID            string           `json:"id"`
	MetricID      string           `json:"metric_id"`
	Status        IncidentStatus   `json:"status"`
	Severity      IncidentSeverity `json:"severity"`
	AffectedArea  string           `json:"affected_area"`
	AffectedUsers int              `json:"affected_users"`
	Details       json.RawMessage  `json:"details,omitempty"`
	DetectedAt    time.Time        `json:"detected_at"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     *time.Time       `json:"updated_at,omitempty"`
}

func (i *HealthIncident) IsActive() bool {
	return i.Status == IncidentActive
}
