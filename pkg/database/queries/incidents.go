package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/smartsite/sitehealth/pkg/models"
)

var ErrIncidentNotFound = errors.New("incident not found")

type IncidentRepository struct {
	db *sql.DB
}

func NewIncidentRepository(db *sql.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

func (r *IncidentRepository) Insert(ctx context.Context, incident *models.HealthIncident) error {
	query := `
		INSERT INTO health_incidents (metric_id, status, severity, affected_area, affected_users, details, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	details := []byte(incident.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}

	return r.db.QueryRowContext(ctx, query,
		incident.MetricID,
		incident.Status,
		incident.Severity,
		incident.AffectedArea,
		incident.AffectedUsers,
		details,
		incident.DetectedAt,
	).Scan(&incident.ID, &incident.CreatedAt)
}

// FindActiveByMetric returns the active incident for a metric, or nil
// when none exists. The monitor relies on this for the one-active-
// incident-per-metric dedup check.
func (r *IncidentRepository) FindActiveByMetric(ctx context.Context, metricID string) (*models.HealthIncident, error) {
	query := `
		SELECT id, metric_id, status, severity, affected_area, affected_users, details, detected_at, resolved_at, created_at, updated_at
		FROM health_incidents
		WHERE metric_id = $1 AND status = 'active'
		ORDER BY detected_at DESC
		LIMIT 1`

	incident, err := r.scanOne(r.db.QueryRowContext(ctx, query, metricID))
	if err == ErrIncidentNotFound {
		return nil, nil
	}
	return incident, err
}

func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*models.HealthIncident, error) {
	query := `
		SELECT id, metric_id, status, severity, affected_area, affected_users, details, detected_at, resolved_at, created_at, updated_at
		FROM health_incidents
		WHERE id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *IncidentRepository) List(ctx context.Context, status string, limit int) ([]models.HealthIncident, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error

	if status != "" {
		query := `
			SELECT id, metric_id, status, severity, affected_area, affected_users, details, detected_at, resolved_at, created_at, updated_at
			FROM health_incidents
			WHERE status = $1
			ORDER BY detected_at DESC
			LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, status, limit)
	} else {
		query := `
			SELECT id, metric_id, status, severity, affected_area, affected_users, details, detected_at, resolved_at, created_at, updated_at
			FROM health_incidents
			ORDER BY detected_at DESC
			LIMIT $1`
		rows, err = r.db.QueryContext(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []models.HealthIncident
	for rows.Next() {
		var i models.HealthIncident
		var details []byte
		err := rows.Scan(&i.ID, &i.MetricID, &i.Status, &i.Severity, &i.AffectedArea, &i.AffectedUsers, &details, &i.DetectedAt, &i.ResolvedAt, &i.CreatedAt, &i.UpdatedAt)
		if err != nil {
			return nil, err
		}
		i.Details = json.RawMessage(details)
		incidents = append(incidents, i)
	}

	return incidents, rows.Err()
}

func (r *IncidentRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time) error {
	query := `
		UPDATE health_incidents
		SET status = 'resolved', resolved_at = $2, updated_at = NOW()
		WHERE id = $1 AND status != 'resolved'`

	result, err := r.db.ExecContext(ctx, query, id, resolvedAt)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either missing or already resolved; distinguish for the caller.
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM health_incidents WHERE id = $1)`
		if err := r.db.QueryRowContext(ctx, checkQuery, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrIncidentNotFound
		}
	}
	return nil
}

func (r *IncidentRepository) scanOne(row *sql.Row) (*models.HealthIncident, error) {
	var i models.HealthIncident
	var details []byte
	err := row.Scan(&i.ID, &i.MetricID, &i.Status, &i.Severity, &i.AffectedArea, &i.AffectedUsers, &details, &i.DetectedAt, &i.ResolvedAt, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrIncidentNotFound
	}
	if err != nil {
		return nil, err
	}
	i.Details = json.RawMessage(details)
	return &i, nil
}
