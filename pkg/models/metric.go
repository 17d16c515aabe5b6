package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known metric names. The evaluator dispatches on these; a
// definition with an unknown name fails its own evaluation without
// affecting the rest of the batch.
const (
	MetricAPIErrorRate       = "api_error_rate"
	MetricDashboardLoadTime  = "dashboard_load_time"
	MetricLoginFailureRate   = "login_failure_rate"
	MetricMediaUploadFailure = "media_upload_failure"
)

type MetricCategory string

const (
	CategoryAPI         MetricCategory = "api"
	CategoryPerformance MetricCategory = "performance"
	CategorySecurity    MetricCategory = "security"
	CategoryStorage     MetricCategory = "storage"
)

// HealthMetric is a named, categorized threshold definition. Definitions
// are created and edited by administrators; the monitoring engine only
// reads them.
type HealthMetric struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    MetricCategory  `json:"category"`
	Description string          `json:"description"`
	Threshold   json.RawMessage `json:"threshold"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// Threshold is the decoded form of a metric's threshold configuration.
// The JSON shape differs per metric name, so each kind gets its own
// struct; Primary returns the kind's main numeric bound, which severity
// classification uses as its doubling basis.
type Threshold interface {
	Primary() float64
}

// APIErrorThreshold configures api_error_rate: an absolute error count
// across a set of routes within a window.
type APIErrorThreshold struct {
	Routes     []string `json:"routes"`
	ErrorCount int      `json:"error_count"`
	TimeWindow int      `json:"time_window"` // seconds
}

func (t APIErrorThreshold) Primary() float64 { return float64(t.ErrorCount) }

func (t APIErrorThreshold) Window() time.Duration {
	return time.Duration(t.TimeWindow) * time.Second
}

// LoadTimeThreshold configures dashboard_load_time: a mean load time
// bound over the most recent samples.
type LoadTimeThreshold struct {
	MaxLoadTime float64 `json:"max_load_time"` // milliseconds
	SampleSize  int     `json:"sample_size"`
}

func (t LoadTimeThreshold) Primary() float64 { return t.MaxLoadTime }

// FailureRateThreshold configures login_failure_rate and
// media_upload_failure: a failure fraction within a window.
type FailureRateThreshold struct {
	FailureRate float64 `json:"failure_rate"`
	TimeWindow  int     `json:"time_window"` // seconds
}

func (t FailureRateThreshold) Primary() float64 { return t.FailureRate }

func (t FailureRateThreshold) Window() time.Duration {
	return time.Duration(t.TimeWindow) * time.Second
}

// ParseThreshold decodes the raw threshold configuration for the given
// metric name into its typed form.
func ParseThreshold(name string, raw json.RawMessage) (Threshold, error) {
	switch name {
	case MetricAPIErrorRate:
		var t APIErrorThreshold
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("invalid api_error_rate threshold: %w", err)
		}
		return t, nil
	case MetricDashboardLoadTime:
		var t LoadTimeThreshold
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("invalid dashboard_load_time threshold: %w", err)
		}
		return t, nil
	case MetricLoginFailureRate, MetricMediaUploadFailure:
		var t FailureRateThreshold
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("invalid failure rate threshold for %s: %w", name, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown metric name: %s", name)
	}
}

// MetricLog is a persisted snapshot of one evaluation. Append-only.
type MetricLog struct {
	ID        string          `json:"id"`
	MetricID  string          `json:"metric_id"`
	Value     float64         `json:"value"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
