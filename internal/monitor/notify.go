package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/smartsite/sitehealth/internal/events"
	"github.com/smartsite/sitehealth/internal/logger"
	"github.com/smartsite/sitehealth/pkg/models"
)

const userNotificationMessage = "We're currently tuning a part of the site, so a few things may feel slower than usual. Your data is safe and everything should be back to normal shortly."

// NotificationDispatcher turns a newly opened incident into queued
// notification rows. Admins always get one; end users are only told
// about critical incidents, in softened wording.
type NotificationDispatcher struct {
	notifications NotificationStore
	incidents     IncidentStore
	publisher     *events.Publisher
	now           func() time.Time
}

func NewNotificationDispatcher(notifications NotificationStore, incidents IncidentStore, publisher *events.Publisher) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifications: notifications,
		incidents:     incidents,
		publisher:     publisher,
		now:           time.Now,
	}
}

func (d *NotificationDispatcher) DispatchForIncident(ctx context.Context, metricName string, incident *models.HealthIncident) error {
	admin := &models.HealthNotification{
		IncidentID: incident.ID,
		Type:       models.NotificationAdmin,
		Status:     models.NotificationPending,
		Message:    adminMessage(incident),
	}

	if err := d.notifications.Insert(ctx, admin); err != nil {
		return fmt.Errorf("failed to queue admin notification: %w", err)
	}
	if d.publisher != nil {
		d.publisher.NotificationQueued(metricName, admin)
	}

	if incident.Severity != models.SeverityCritical {
		return nil
	}

	user := &models.HealthNotification{
		IncidentID: incident.ID,
		Type:       models.NotificationUser,
		Status:     models.NotificationPending,
		Message:    userNotificationMessage,
	}

	if err := d.notifications.Insert(ctx, user); err != nil {
		return fmt.Errorf("failed to queue user notification: %w", err)
	}
	if d.publisher != nil {
		d.publisher.NotificationQueued(metricName, user)
	}

	return nil
}

// MarkDelivered is idempotent; repeating it on a delivered notification
// is a no-op.
func (d *NotificationDispatcher) MarkDelivered(ctx context.Context, notificationID string) error {
	return d.notifications.MarkDelivered(ctx, notificationID, d.now())
}

// ResolveIncident closes an incident. Its notifications keep their own
// lifecycle and are not touched.
func (d *NotificationDispatcher) ResolveIncident(ctx context.Context, incidentID string) error {
	if err := d.incidents.Resolve(ctx, incidentID, d.now()); err != nil {
		return err
	}

	logger.WithIncident(incidentID).Info("Incident resolved")

	if d.publisher != nil {
		if incident, err := d.incidents.GetByID(ctx, incidentID); err == nil {
			d.publisher.IncidentResolved(incident)
		}
	}
	return nil
}

func adminMessage(incident *models.HealthIncident) string {
	glyph := "⚠️"
	label := "Warning"
	if incident.Severity == models.SeverityCritical {
		glyph = "🚨"
		label = "Critical"
	}

	return fmt.Sprintf(
		"%s %s: %s is degraded. Approximately %d users affected. Monitoring has opened an incident and will keep collecting data.",
		glyph, label, incident.AffectedArea, incident.AffectedUsers,
	)
}
