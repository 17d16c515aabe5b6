package events

import (
	"github.com/smartsite/sitehealth/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) MetricEvaluated(eval *models.Evaluation) {
	event := models.NewEvent(models.EventTypeMetricEvaluated, eval.MetricName, "Metric evaluated").
		WithData(eval)
	p.publish(event)
}

func (p *Publisher) ThresholdExceeded(eval *models.Evaluation) {
	event := models.NewEvent(models.EventTypeThresholdExceeded, eval.MetricName, "Threshold exceeded").
		WithSeverity(models.SeverityWarning).
		WithData(eval)
	p.publish(event)
}

func (p *Publisher) IncidentCreated(metricName string, incident *models.HealthIncident) {
	msg := "Incident opened: " + incident.AffectedArea
	event := models.NewEvent(models.EventTypeIncidentCreated, metricName, msg).
		WithSeverity(incident.Severity).
		WithData(incident)
	p.publish(event)
}

func (p *Publisher) IncidentResolved(incident *models.HealthIncident) {
	event := models.NewEvent(models.EventTypeIncidentResolved, "", "Incident resolved: "+incident.AffectedArea).
		WithData(incident)
	p.publish(event)
}

func (p *Publisher) NotificationQueued(metricName string, notification *models.HealthNotification) {
	event := models.NewEvent(models.EventTypeNotificationQueued, metricName, "Notification queued").
		WithData(notification)
	p.publish(event)
}

func (p *Publisher) Error(metricName string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, metricName, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
