package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsite/sitehealth/pkg/models"
)

func TestSubscribeReceivesMatchingType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	incidents := bus.Subscribe(models.EventTypeIncidentCreated)

	bus.Publish(models.NewEvent(models.EventTypeMetricEvaluated, "api_error_rate", "evaluated"))
	bus.Publish(models.NewEvent(models.EventTypeIncidentCreated, "api_error_rate", "opened"))

	select {
	case event := <-incidents:
		assert.Equal(t, models.EventTypeIncidentCreated, event.Type)
	default:
		t.Fatal("expected an incident event")
	}

	select {
	case event := <-incidents:
		t.Fatalf("unexpected extra event: %s", event.Type)
	default:
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()

	bus.Publish(models.NewEvent(models.EventTypeMetricEvaluated, "m", "a"))
	bus.Publish(models.NewEvent(models.EventTypeError, "m", "b"))

	require.Len(t, all, 2)
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeError)

	bus.Publish(models.NewEvent(models.EventTypeError, "m", "first"))
	bus.Publish(models.NewEvent(models.EventTypeError, "m", "second"))

	require.Len(t, ch, 1)
	event := <-ch
	assert.Equal(t, "first", event.Message)
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.SubscribeAll()
	bus.Close()

	bus.Publish(models.NewEvent(models.EventTypeError, "m", "late"))

	_, open := <-ch
	assert.False(t, open)
}
