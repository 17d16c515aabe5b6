package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smartsite/sitehealth/pkg/models"
)

type fakeMetricStore struct {
	metrics []models.HealthMetric
	err     error
}

func (f *fakeMetricStore) ListEnabled(ctx context.Context) ([]models.HealthMetric, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.metrics, nil
}

type fakeLogStore struct {
	mu   sync.Mutex
	logs []*models.MetricLog
	err  error
}

func (f *fakeLogStore) Insert(ctx context.Context, log *models.MetricLog) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

type fakeIncidentStore struct {
	mu        sync.Mutex
	incidents []*models.HealthIncident
	insertErr error
}

func (f *fakeIncidentStore) Insert(ctx context.Context, incident *models.HealthIncident) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if incident.ID == "" {
		incident.ID = fmt.Sprintf("incident-%d", len(f.incidents)+1)
	}
	incident.CreatedAt = time.Now()
	f.incidents = append(f.incidents, incident)
	return nil
}

func (f *fakeIncidentStore) FindActiveByMetric(ctx context.Context, metricID string) (*models.HealthIncident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, incident := range f.incidents {
		if incident.MetricID == metricID && incident.IsActive() {
			return incident, nil
		}
	}
	return nil, nil
}

func (f *fakeIncidentStore) GetByID(ctx context.Context, id string) (*models.HealthIncident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, incident := range f.incidents {
		if incident.ID == id {
			return incident, nil
		}
	}
	return nil, fmt.Errorf("incident %s not found", id)
}

func (f *fakeIncidentStore) Resolve(ctx context.Context, id string, resolvedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, incident := range f.incidents {
		if incident.ID == id {
			if incident.Status == models.IncidentResolved {
				return nil
			}
			incident.Status = models.IncidentResolved
			incident.ResolvedAt = &resolvedAt
			return nil
		}
	}
	return fmt.Errorf("incident %s not found", id)
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []*models.HealthNotification
	insertErr     error
}

func (f *fakeNotificationStore) Insert(ctx context.Context, notification *models.HealthNotification) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if notification.ID == "" {
		notification.ID = fmt.Sprintf("notification-%d", len(f.notifications)+1)
	}
	notification.CreatedAt = time.Now()
	f.notifications = append(f.notifications, notification)
	return nil
}

func (f *fakeNotificationStore) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, notification := range f.notifications {
		if notification.ID == id {
			if notification.Status != models.NotificationPending {
				return nil
			}
			notification.Status = models.NotificationDelivered
			notification.DeliveredAt = &deliveredAt
			return nil
		}
	}
	return fmt.Errorf("notification %s not found", id)
}

func (f *fakeNotificationStore) byType(t models.NotificationType) []*models.HealthNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.HealthNotification
	for _, n := range f.notifications {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type fakeProber struct {
	mu      sync.Mutex
	ready   bool
	err     error
	probes  int
	onProbe func()
}

func (f *fakeProber) TableExists(ctx context.Context, tableName string) (bool, error) {
	f.mu.Lock()
	f.probes++
	ready, err, hook := f.ready, f.err, f.onProbe
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ready, err
}

func (f *fakeProber) setReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
	f.err = nil
}

// manualScheduler collects scheduled callbacks so tests fire ticks and
// delayed retries explicitly.
type manualScheduler struct {
	mu      sync.Mutex
	ticks   []func()
	delayed []func()
}

func (m *manualScheduler) Schedule(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, fn)
	return func() {}
}

func (m *manualScheduler) After(delay time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delayed = append(m.delayed, fn)
	return func() {}
}

func (m *manualScheduler) fireDelayed() {
	m.mu.Lock()
	fns := m.delayed
	m.delayed = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func metricFixture(id, name, threshold string) models.HealthMetric {
	return models.HealthMetric{
		ID:        id,
		Name:      name,
		Category:  models.CategoryAPI,
		Threshold: []byte(threshold),
		Enabled:   true,
	}
}
