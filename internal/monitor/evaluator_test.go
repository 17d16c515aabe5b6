package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsite/sitehealth/pkg/models"
)

func newTestEvaluator(t *testing.T) (*Evaluator, *SampleStore) {
	t.Helper()
	store, _ := newTestSampleStore(t)
	evaluator := NewEvaluator(store, 10*time.Minute)
	evaluator.now = store.now
	return evaluator, store
}

func TestEvaluateAPIErrorRateExactCountExceeds(t *testing.T) {
	evaluator, store := newTestEvaluator(t)
	metric := metricFixture("m1", models.MetricAPIErrorRate,
		`{"routes":["/api/posts","/api/upload"],"error_count":3,"time_window":60}`)

	store.TrackAPIError("/api/posts", 500)
	store.TrackAPIError("/api/upload", 503)

	eval, err := evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.Equal(t, 2.0, eval.Value)
	assert.False(t, eval.Exceeded)

	// Hitting the configured count exactly trips the check.
	store.TrackAPIError("/api/upload", 502)

	eval, err = evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.Equal(t, 3.0, eval.Value)
	assert.True(t, eval.Exceeded)
}

func TestEvaluateDashboardLoadTimeNoSamples(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)
	metric := metricFixture("m2", models.MetricDashboardLoadTime,
		`{"max_load_time":3000,"sample_size":10}`)

	eval, err := evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.Equal(t, 0.0, eval.Value)
	assert.False(t, eval.Exceeded)
	assert.Equal(t, 0, eval.Details["sample_count"])
}

func TestEvaluateDashboardLoadTimeMeanAtThresholdNotExceeded(t *testing.T) {
	evaluator, store := newTestEvaluator(t)
	metric := metricFixture("m2", models.MetricDashboardLoadTime,
		`{"max_load_time":3000,"sample_size":10}`)

	store.TrackPageLoadTime("/dashboard", 2000)
	store.TrackPageLoadTime("/dashboard", 4000)

	eval, err := evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, eval.Value)
	assert.False(t, eval.Exceeded)

	store.TrackPageLoadTime("/dashboard", 4000)

	eval, err = evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.True(t, eval.Exceeded)
}

func TestEvaluateLoginFailureRate(t *testing.T) {
	evaluator, store := newTestEvaluator(t)
	metric := metricFixture("m3", models.MetricLoginFailureRate,
		`{"failure_rate":0.3,"time_window":300}`)

	for i := 0; i < 3; i++ {
		store.TrackSessionFailure()
	}

	// 3 failures over the assumed 10 attempts is exactly the bound.
	eval, err := evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, eval.Value, 1e-9)
	assert.False(t, eval.Exceeded)

	store.TrackSessionFailure()

	eval, err = evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, eval.Value, 1e-9)
	assert.True(t, eval.Exceeded)
}

func TestEvaluateMediaUploadFailureNoUploads(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)
	metric := metricFixture("m4", models.MetricMediaUploadFailure,
		`{"failure_rate":0.2,"time_window":600}`)

	eval, err := evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.Equal(t, 0.0, eval.Value)
	assert.False(t, eval.Exceeded)
}

func TestEvaluateMediaUploadFailureRate(t *testing.T) {
	evaluator, store := newTestEvaluator(t)
	metric := metricFixture("m4", models.MetricMediaUploadFailure,
		`{"failure_rate":0.2,"time_window":600}`)

	store.TrackMediaUpload(true)
	store.TrackMediaUpload(true)
	store.TrackMediaUpload(true)
	store.TrackMediaUpload(false)

	eval, err := evaluator.Evaluate(&metric)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, eval.Value, 1e-9)
	assert.True(t, eval.Exceeded)
}

func TestEvaluateUnknownMetric(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)
	metric := metricFixture("m5", "disk_pressure", `{"limit":1}`)

	_, err := evaluator.Evaluate(&metric)
	assert.Error(t, err)
}
