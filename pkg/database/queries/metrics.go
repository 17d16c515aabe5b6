package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/smartsite/sitehealth/pkg/models"
)

var ErrMetricNotFound = errors.New("health metric not found")

type HealthMetricRepository struct {
	db *sql.DB
}

func NewHealthMetricRepository(db *sql.DB) *HealthMetricRepository {
	return &HealthMetricRepository{db: db}
}

func (r *HealthMetricRepository) ListEnabled(ctx context.Context) ([]models.HealthMetric, error) {
	query := `
		SELECT id, name, category, description, threshold, enabled, created_at, updated_at
		FROM health_metrics
		WHERE enabled = TRUE
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMetrics(rows)
}

func (r *HealthMetricRepository) List(ctx context.Context) ([]models.HealthMetric, error) {
	query := `
		SELECT id, name, category, description, threshold, enabled, created_at, updated_at
		FROM health_metrics
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMetrics(rows)
}

func (r *HealthMetricRepository) GetByID(ctx context.Context, id string) (*models.HealthMetric, error) {
	query := `
		SELECT id, name, category, description, threshold, enabled, created_at, updated_at
		FROM health_metrics
		WHERE id = $1`

	var m models.HealthMetric
	var threshold []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.Category, &m.Description, &threshold, &m.Enabled, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrMetricNotFound
	}
	if err != nil {
		return nil, err
	}

	m.Threshold = json.RawMessage(threshold)
	return &m, nil
}

func (r *HealthMetricRepository) Create(ctx context.Context, m *models.HealthMetric) error {
	query := `
		INSERT INTO health_metrics (name, category, description, threshold, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		m.Name, m.Category, m.Description, []byte(m.Threshold), m.Enabled,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *HealthMetricRepository) Update(ctx context.Context, m *models.HealthMetric) error {
	query := `
		UPDATE health_metrics
		SET category = $2, description = $3, threshold = $4, enabled = $5, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		m.ID, m.Category, m.Description, []byte(m.Threshold), m.Enabled,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMetricNotFound
	}
	return nil
}

func scanMetrics(rows *sql.Rows) ([]models.HealthMetric, error) {
	var metrics []models.HealthMetric
	for rows.Next() {
		var m models.HealthMetric
		var threshold []byte
		err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.Description, &threshold, &m.Enabled, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		m.Threshold = json.RawMessage(threshold)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

type MetricLogRepository struct {
	db *sql.DB
}

func NewMetricLogRepository(db *sql.DB) *MetricLogRepository {
	return &MetricLogRepository{db: db}
}

func (r *MetricLogRepository) Insert(ctx context.Context, log *models.MetricLog) error {
	query := `
		INSERT INTO metric_logs (metric_id, value, detail, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	detail := []byte(log.Detail)
	if len(detail) == 0 {
		detail = []byte("{}")
	}

	return r.db.QueryRowContext(ctx, query,
		log.MetricID, log.Value, detail, log.Timestamp,
	).Scan(&log.ID)
}

func (r *MetricLogRepository) GetByMetric(ctx context.Context, metricID string, from, to time.Time, limit int) ([]models.MetricLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, metric_id, value, detail, timestamp
		FROM metric_logs
		WHERE metric_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, metricID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.MetricLog
	for rows.Next() {
		var l models.MetricLog
		var detail []byte
		err := rows.Scan(&l.ID, &l.MetricID, &l.Value, &detail, &l.Timestamp)
		if err != nil {
			return nil, err
		}
		l.Detail = json.RawMessage(detail)
		logs = append(logs, l)
	}

	return logs, rows.Err()
}
