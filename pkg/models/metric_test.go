package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThresholdPerMetricKind(t *testing.T) {
	threshold, err := ParseThreshold(MetricAPIErrorRate,
		[]byte(`{"routes":["/api/upload"],"error_count":3,"time_window":60}`))
	require.NoError(t, err)

	apiThreshold, ok := threshold.(APIErrorThreshold)
	require.True(t, ok)
	assert.Equal(t, []string{"/api/upload"}, apiThreshold.Routes)
	assert.Equal(t, 3.0, apiThreshold.Primary())
	assert.Equal(t, int64(60), int64(apiThreshold.Window().Seconds()))

	threshold, err = ParseThreshold(MetricDashboardLoadTime,
		[]byte(`{"max_load_time":3000,"sample_size":10}`))
	require.NoError(t, err)

	loadThreshold, ok := threshold.(LoadTimeThreshold)
	require.True(t, ok)
	assert.Equal(t, 3000.0, loadThreshold.Primary())
	assert.Equal(t, 10, loadThreshold.SampleSize)

	threshold, err = ParseThreshold(MetricLoginFailureRate,
		[]byte(`{"failure_rate":0.3,"time_window":300}`))
	require.NoError(t, err)
	assert.Equal(t, 0.3, threshold.Primary())

	threshold, err = ParseThreshold(MetricMediaUploadFailure,
		[]byte(`{"failure_rate":0.2,"time_window":600}`))
	require.NoError(t, err)
	assert.Equal(t, 0.2, threshold.Primary())
}

func TestParseThresholdRejectsUnknownMetric(t *testing.T) {
	_, err := ParseThreshold("disk_pressure", []byte(`{}`))
	assert.Error(t, err)
}

func TestParseThresholdRejectsMalformedJSON(t *testing.T) {
	_, err := ParseThreshold(MetricAPIErrorRate, []byte(`{not json`))
	assert.Error(t, err)
}
