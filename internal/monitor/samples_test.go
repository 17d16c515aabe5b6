package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestSampleStore(t *testing.T) (*SampleStore, *time.Time) {
	t.Helper()
	store := NewSampleStore(time.Hour)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	return store, &current
}

func TestSampleStoreIgnoresClientErrors(t *testing.T) {
	store, _ := newTestSampleStore(t)

	store.TrackAPIError("/api/posts", 404)
	store.TrackAPIError("/api/posts", 400)
	store.TrackAPIError("/api/posts", 500)
	store.TrackAPIError("/api/posts", 503)

	counts := store.APIErrorCounts([]string{"/api/posts"}, time.Minute)
	assert.Equal(t, 2, counts["/api/posts"])
}

func TestSampleStoreAPIErrorWindow(t *testing.T) {
	store, current := newTestSampleStore(t)

	store.TrackAPIError("/api/upload", 500)
	*current = current.Add(90 * time.Second)
	store.TrackAPIError("/api/upload", 502)

	counts := store.APIErrorCounts([]string{"/api/upload", "/api/other"}, time.Minute)
	assert.Equal(t, 1, counts["/api/upload"])
	assert.Equal(t, 0, counts["/api/other"])
}

func TestSampleStoreOnlyDashboardPagesRecorded(t *testing.T) {
	store, _ := newTestSampleStore(t)

	store.TrackPageLoadTime("/dashboard", 1200)
	store.TrackPageLoadTime("/dashboard/analytics", 1800)
	store.TrackPageLoadTime("/settings", 4000)
	store.TrackPageLoadTime("/profile", 5000)

	recent := store.RecentLoadTimes(time.Minute, 10)
	assert.Equal(t, []float64{1200, 1800}, recent)
}

func TestSampleStoreRecentLoadTimesKeepsNewest(t *testing.T) {
	store, _ := newTestSampleStore(t)

	for i := 0; i < 5; i++ {
		store.TrackPageLoadTime("/dashboard", float64(1000+i))
	}

	recent := store.RecentLoadTimes(time.Minute, 3)
	assert.Equal(t, []float64{1002, 1003, 1004}, recent)
}

func TestSampleStoreUploadOutcomes(t *testing.T) {
	store, _ := newTestSampleStore(t)

	store.TrackMediaUpload(true)
	store.TrackMediaUpload(false)
	store.TrackMediaUpload(false)

	failed, total := store.UploadOutcomes(time.Minute)
	assert.Equal(t, 2, failed)
	assert.Equal(t, 3, total)
}

func TestSampleStoreSessionFailureWindow(t *testing.T) {
	store, current := newTestSampleStore(t)

	store.TrackSessionFailure()
	store.TrackSessionFailure()
	*current = current.Add(10 * time.Minute)
	store.TrackSessionFailure()

	assert.Equal(t, 1, store.SessionFailureCount(5*time.Minute))
	assert.Equal(t, 3, store.SessionFailureCount(time.Hour))
}

func TestSampleStoreCleanupEvictsOldSamples(t *testing.T) {
	store, current := newTestSampleStore(t)

	store.TrackAPIError("/api/posts", 500)
	store.TrackPageLoadTime("/dashboard", 1000)
	store.TrackSessionFailure()
	store.TrackMediaUpload(false)
	store.TrackPerformanceMetric("memory_mb", 512)

	*current = current.Add(2 * time.Hour)
	store.TrackMediaUpload(true)
	store.Cleanup()

	sizes := store.BufferSizes()
	assert.Equal(t, 0, sizes["api_errors"])
	assert.Equal(t, 0, sizes["load_times"])
	assert.Equal(t, 0, sizes["session_failures"])
	assert.Equal(t, 1, sizes["uploads"])
	assert.Equal(t, 0, sizes["performance"])
}
