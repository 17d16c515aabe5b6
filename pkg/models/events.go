package models

import "time"

type EventType string

const (
	EventTypeMetricEvaluated    EventType = "metric_evaluated"
	EventTypeThresholdExceeded  EventType = "threshold_exceeded"
	EventTypeIncidentCreated    EventType = "incident_created"
	EventTypeIncidentResolved   EventType = "incident_resolved"
	EventTypeNotificationQueued EventType = "notification_queued"
	EventTypeError              EventType = "error"
)

// Event represents an internal system event
type Event struct {
	ID         string           `json:"id"`
	Type       EventType        `json:"type"`
	Severity   IncidentSeverity `json:"severity"`
	MetricName string           `json:"metric_name,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	Message    string           `json:"message"`
	Data       interface{}      `json:"data,omitempty"`
	TraceID    string           `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, metricName, message string) *Event {
	return &Event{
		ID:         NewUUID(),
		Type:       eventType,
		Severity:   SeverityInfo,
		MetricName: metricName,
		Timestamp:  time.Now(),
		Message:    message,
	}
}

func (e *Event) WithSeverity(severity IncidentSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
