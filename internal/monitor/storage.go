package monitor

import (
	"context"
	"time"

	"github.com/smartsite/sitehealth/pkg/models"
)

// Narrow views of the persistence layer, declared where they are
// consumed so tests can run on in-memory fakes. pkg/database/queries
// provides the Postgres implementations.

type MetricStore interface {
	ListEnabled(ctx context.Context) ([]models.HealthMetric, error)
}

type MetricLogStore interface {
	Insert(ctx context.Context, log *models.MetricLog) error
}

type IncidentStore interface {
	Insert(ctx context.Context, incident *models.HealthIncident) error
	FindActiveByMetric(ctx context.Context, metricID string) (*models.HealthIncident, error)
	GetByID(ctx context.Context, id string) (*models.HealthIncident, error)
	Resolve(ctx context.Context, id string, resolvedAt time.Time) error
}

type NotificationStore interface {
	Insert(ctx context.Context, notification *models.HealthNotification) error
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
}

// ReadinessProber answers whether the metric-definition table exists
// yet. Start uses it to wait out unfinished migrations instead of
// failing fatally.
type ReadinessProber interface {
	TableExists(ctx context.Context, tableName string) (bool, error)
}
