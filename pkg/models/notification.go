package models

import "time"

type NotificationType string

const (
	NotificationAdmin NotificationType = "admin"
	NotificationUser  NotificationType = "user"
)

type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationDismissed NotificationStatus = "dismissed"
)

// HealthNotification is a message queued for delivery to administrators
// or end users. Notifications keep their own lifecycle independent of
// the owning incident.
type HealthNotification struct {
	ID          string             `json:"id"`
	IncidentID  string             `json:"incident_id"`
	UserID      *string            `json:"user_id,omitempty"` // nil for broadcast notices
	Type        NotificationType   `json:"type"`
	Status      NotificationStatus `json:"status"`
	Message     string             `json:"message"`
	CreatedAt   time.Time          `json:"created_at"`
	DeliveredAt *time.Time         `json:"delivered_at,omitempty"`
	DismissedAt *time.Time         `json:"dismissed_at,omitempty"`
}
