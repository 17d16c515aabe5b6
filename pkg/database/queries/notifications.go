package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/smartsite/sitehealth/pkg/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *models.HealthNotification) error {
	query := `
		INSERT INTO health_notifications (incident_id, user_id, type, status, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		n.IncidentID, n.UserID, n.Type, n.Status, n.Message,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepository) ListPending(ctx context.Context, notifType string, limit int) ([]models.HealthNotification, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, incident_id, user_id, type, status, message, created_at, delivered_at, dismissed_at
		FROM health_notifications
		WHERE status = 'pending' AND type = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, notifType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.HealthNotification
	for rows.Next() {
		var n models.HealthNotification
		err := rows.Scan(&n.ID, &n.IncidentID, &n.UserID, &n.Type, &n.Status, &n.Message, &n.CreatedAt, &n.DeliveredAt, &n.DismissedAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.HealthNotification, error) {
	query := `
		SELECT id, incident_id, user_id, type, status, message, created_at, delivered_at, dismissed_at
		FROM health_notifications
		WHERE id = $1`

	var n models.HealthNotification
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.IncidentID, &n.UserID, &n.Type, &n.Status, &n.Message, &n.CreatedAt, &n.DeliveredAt, &n.DismissedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}

	return &n, nil
}

// MarkDelivered transitions a pending notification to delivered. Already-
// delivered notifications are left untouched, which makes repeated calls
// from the delivery surface safe.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	query := `
		UPDATE health_notifications
		SET status = 'delivered', delivered_at = $2
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id, deliveredAt)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM health_notifications WHERE id = $1)`
		if err := r.db.QueryRowContext(ctx, checkQuery, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotificationNotFound
		}
	}
	return nil
}

func (r *NotificationRepository) CountByIncident(ctx context.Context, incidentID, notifType string) (int, error) {
	query := `SELECT COUNT(*) FROM health_notifications WHERE incident_id = $1 AND type = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, incidentID, notifType).Scan(&count)
	return count, err
}
