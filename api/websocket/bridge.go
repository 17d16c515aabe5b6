package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smartsite/sitehealth/internal/logger"
	"github.com/smartsite/sitehealth/pkg/models"
)

// EventBridge forwards monitor events onto the WebSocket hub so admin
// dashboards see incidents and threshold breaches as they happen.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	wsMessage := convertEvent(event)
	if wsMessage == nil {
		return
	}

	data, err := json.Marshal(wsMessage)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	// Events not tied to a metric concern every dashboard; they go
	// through the hub's broadcast queue instead of the filtered path.
	if event.MetricName == "" {
		b.hub.Broadcast(data)
		return
	}
	b.hub.Publish(event.MetricName, data)
}

// StreamEvent is the message format sent to dashboard clients.
type StreamEvent struct {
	Type      string      `json:"type"`
	Metric    string      `json:"metric,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func convertEvent(event *models.Event) *StreamEvent {
	wsType := mapEventType(event.Type)
	if wsType == "" {
		return nil
	}

	return &StreamEvent{
		Type:      wsType,
		Metric:    event.MetricName,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}
}

func mapEventType(eventType models.EventType) string {
	switch eventType {
	case models.EventTypeThresholdExceeded:
		return "threshold_exceeded"
	case models.EventTypeIncidentCreated:
		return "incident"
	case models.EventTypeIncidentResolved:
		return "incident_resolved"
	case models.EventTypeNotificationQueued:
		return "notification"
	case models.EventTypeError:
		return "error"
	default:
		// metric_evaluated fires every tick for every metric; too chatty
		// to push to browsers.
		return ""
	}
}
