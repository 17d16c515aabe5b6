package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsite/sitehealth/pkg/models"
)

func newTestDispatcher(notifications *fakeNotificationStore, incidents *fakeIncidentStore) *NotificationDispatcher {
	dispatcher := NewNotificationDispatcher(notifications, incidents, nil)
	dispatcher.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return dispatcher
}

func warningIncident() *models.HealthIncident {
	return &models.HealthIncident{
		ID:            "incident-1",
		MetricID:      "m1",
		Status:        models.IncidentActive,
		Severity:      models.SeverityWarning,
		AffectedArea:  "API Services",
		AffectedUsers: 5,
		DetectedAt:    time.Now(),
	}
}

func TestDispatchWarningNotifiesAdminsOnly(t *testing.T) {
	notifications := &fakeNotificationStore{}
	incidents := &fakeIncidentStore{}
	dispatcher := newTestDispatcher(notifications, incidents)

	incident := warningIncident()
	require.NoError(t, dispatcher.DispatchForIncident(context.Background(), models.MetricAPIErrorRate, incident))

	admins := notifications.byType(models.NotificationAdmin)
	require.Len(t, admins, 1)
	assert.Equal(t, incident.ID, admins[0].IncidentID)
	assert.Equal(t, models.NotificationPending, admins[0].Status)
	assert.Contains(t, admins[0].Message, "Warning")
	assert.Contains(t, admins[0].Message, "API Services")

	assert.Empty(t, notifications.byType(models.NotificationUser))
}

func TestDispatchCriticalNotifiesUsersToo(t *testing.T) {
	notifications := &fakeNotificationStore{}
	incidents := &fakeIncidentStore{}
	dispatcher := newTestDispatcher(notifications, incidents)

	incident := warningIncident()
	incident.Severity = models.SeverityCritical
	require.NoError(t, dispatcher.DispatchForIncident(context.Background(), models.MetricAPIErrorRate, incident))

	admins := notifications.byType(models.NotificationAdmin)
	require.Len(t, admins, 1)
	assert.Contains(t, admins[0].Message, "Critical")

	users := notifications.byType(models.NotificationUser)
	require.Len(t, users, 1)
	assert.Equal(t, userNotificationMessage, users[0].Message)
	assert.NotContains(t, users[0].Message, "incident")
}

func TestMarkDeliveredIsIdempotent(t *testing.T) {
	notifications := &fakeNotificationStore{}
	incidents := &fakeIncidentStore{}
	dispatcher := newTestDispatcher(notifications, incidents)

	require.NoError(t, dispatcher.DispatchForIncident(context.Background(), models.MetricAPIErrorRate, warningIncident()))
	id := notifications.notifications[0].ID

	require.NoError(t, dispatcher.MarkDelivered(context.Background(), id))
	firstDeliveredAt := notifications.notifications[0].DeliveredAt
	require.NotNil(t, firstDeliveredAt)

	require.NoError(t, dispatcher.MarkDelivered(context.Background(), id))
	assert.Equal(t, firstDeliveredAt, notifications.notifications[0].DeliveredAt)
	assert.Equal(t, models.NotificationDelivered, notifications.notifications[0].Status)
}

func TestResolveIncidentLeavesNotificationsAlone(t *testing.T) {
	notifications := &fakeNotificationStore{}
	incidents := &fakeIncidentStore{}
	dispatcher := newTestDispatcher(notifications, incidents)

	incident := warningIncident()
	require.NoError(t, incidents.Insert(context.Background(), incident))
	require.NoError(t, dispatcher.DispatchForIncident(context.Background(), models.MetricAPIErrorRate, incident))

	require.NoError(t, dispatcher.ResolveIncident(context.Background(), incident.ID))

	resolved, err := incidents.GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	// Pending notifications survive resolution.
	assert.Equal(t, models.NotificationPending, notifications.notifications[0].Status)
}
