package monitor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsite/sitehealth/pkg/models"
)

func newTestIncidentManager(store *fakeIncidentStore) *IncidentManager {
	manager := NewIncidentManager(store)
	manager.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	manager.estimateAffectedUsers = func() int { return 5 }
	return manager
}

func apiErrorEvaluation(value float64) *models.Evaluation {
	return &models.Evaluation{
		MetricID:   "m1",
		MetricName: models.MetricAPIErrorRate,
		Value:      value,
		Exceeded:   true,
		Details:    map[string]interface{}{"error_count": 3},
	}
}

func TestCreateIncidentIfAbsent(t *testing.T) {
	store := &fakeIncidentStore{}
	manager := newTestIncidentManager(store)
	metric := metricFixture("m1", models.MetricAPIErrorRate,
		`{"routes":["/api/upload"],"error_count":3,"time_window":60}`)

	incident, err := manager.CreateIncidentIfAbsent(context.Background(), &metric, apiErrorEvaluation(4))
	require.NoError(t, err)
	require.NotNil(t, incident)

	assert.Equal(t, models.IncidentActive, incident.Status)
	assert.Equal(t, models.SeverityWarning, incident.Severity)
	assert.Equal(t, "API Services", incident.AffectedArea)
	assert.Equal(t, 5, incident.AffectedUsers)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(incident.Details, &details))
	assert.Equal(t, "api_error_rate", details["metric_name"])
	assert.Equal(t, 4.0, details["value"])
}

func TestCreateIncidentDedupesWhileActive(t *testing.T) {
	store := &fakeIncidentStore{}
	manager := newTestIncidentManager(store)
	metric := metricFixture("m1", models.MetricAPIErrorRate,
		`{"routes":["/api/upload"],"error_count":3,"time_window":60}`)

	first, err := manager.CreateIncidentIfAbsent(context.Background(), &metric, apiErrorEvaluation(4))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := manager.CreateIncidentIfAbsent(context.Background(), &metric, apiErrorEvaluation(9))
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, store.incidents, 1)

	// Resolving the first clears the way for a new one.
	require.NoError(t, store.Resolve(context.Background(), first.ID, time.Now()))

	third, err := manager.CreateIncidentIfAbsent(context.Background(), &metric, apiErrorEvaluation(4))
	require.NoError(t, err)
	assert.NotNil(t, third)
	assert.Len(t, store.incidents, 2)
}

func TestSeverityDoublingRule(t *testing.T) {
	store := &fakeIncidentStore{}
	manager := newTestIncidentManager(store)
	metric := metricFixture("m1", models.MetricAPIErrorRate,
		`{"routes":["/api/upload"],"error_count":3,"time_window":60}`)

	// Exactly double the bound stays a warning.
	incident, err := manager.CreateIncidentIfAbsent(context.Background(), &metric, apiErrorEvaluation(6))
	require.NoError(t, err)
	require.NotNil(t, incident)
	assert.Equal(t, models.SeverityWarning, incident.Severity)

	require.NoError(t, store.Resolve(context.Background(), incident.ID, time.Now()))

	incident, err = manager.CreateIncidentIfAbsent(context.Background(), &metric, apiErrorEvaluation(7))
	require.NoError(t, err)
	require.NotNil(t, incident)
	assert.Equal(t, models.SeverityCritical, incident.Severity)
}

func TestUnknownMetricGetsDefaultArea(t *testing.T) {
	store := &fakeIncidentStore{}
	manager := newTestIncidentManager(store)
	metric := metricFixture("m9", models.MetricLoginFailureRate,
		`{"failure_rate":0.3,"time_window":300}`)
	metric.Name = models.MetricLoginFailureRate

	eval := &models.Evaluation{
		MetricID:   "m9",
		MetricName: metric.Name,
		Value:      0.4,
		Exceeded:   true,
	}

	incident, err := manager.CreateIncidentIfAbsent(context.Background(), &metric, eval)
	require.NoError(t, err)
	require.NotNil(t, incident)
	assert.Equal(t, "User Authentication", incident.AffectedArea)

	assert.Equal(t, defaultAffectedArea, affectedAreaFor("disk_pressure"))
}
