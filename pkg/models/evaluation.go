package models

import "time"

// Evaluation is the outcome of running one metric's threshold check
// against its buffered samples.
type Evaluation struct {
	MetricID   string                 `json:"metric_id"`
	MetricName string                 `json:"metric_name"`
	Value      float64                `json:"value"`
	Exceeded   bool                   `json:"exceeded"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}
