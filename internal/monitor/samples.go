package monitor

import (
	"strings"
	"sync"
	"time"
)

const defaultSampleRetention = time.Hour

type loadSample struct {
	timestamp time.Time
	loadTime  float64
}

type uploadSample struct {
	timestamp time.Time
	success   bool
}

type performanceSample struct {
	timestamp time.Time
	value     float64
}

// SampleStore holds bounded per-kind rolling buffers of raw
// observations. Nothing here is persisted; the evaluated aggregates end
// up in metric_logs, so losing the buffers on restart only costs the
// current window.
//
// Producers are the tracking entry points called from request handlers;
// the consumer is the evaluation tick. A single mutex guards all
// buffers since appends and windowed reads are both cheap.
type SampleStore struct {
	mu              sync.Mutex
	apiErrors       map[string][]time.Time
	loadTimes       []loadSample
	sessionFailures []time.Time
	uploads         []uploadSample
	performance     map[string][]performanceSample
	retention       time.Duration
	now             func() time.Time
}

func NewSampleStore(retention time.Duration) *SampleStore {
	if retention <= 0 {
		retention = defaultSampleRetention
	}
	return &SampleStore{
		apiErrors:   make(map[string][]time.Time),
		performance: make(map[string][]performanceSample),
		retention:   retention,
		now:         time.Now,
	}
}

// TrackAPIError records a server error for a route. Client errors are
// not health-impacting and are dropped here.
func (s *SampleStore) TrackAPIError(route string, statusCode int) {
	if statusCode < 500 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiErrors[route] = append(s.apiErrors[route], s.now())
}

// TrackPageLoadTime records a load time sample. Only dashboard pages
// feed the dashboard_load_time metric; everything else is ignored.
func (s *SampleStore) TrackPageLoadTime(page string, loadTimeMs float64) {
	if !strings.Contains(page, "dashboard") {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadTimes = append(s.loadTimes, loadSample{timestamp: s.now(), loadTime: loadTimeMs})
}

func (s *SampleStore) TrackSessionFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionFailures = append(s.sessionFailures, s.now())
}

func (s *SampleStore) TrackMediaUpload(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, uploadSample{timestamp: s.now(), success: success})
}

// TrackPerformanceMetric records an arbitrary named gauge sample
// (memory usage, generic page timings). Nothing evaluates these against
// thresholds; they feed the live status payload.
func (s *SampleStore) TrackPerformanceMetric(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.performance[name] = append(s.performance[name], performanceSample{timestamp: s.now(), value: value})
}

// APIErrorCounts returns the number of buffered errors per requested
// route within the window.
func (s *SampleStore) APIErrorCounts(routes []string, window time.Duration) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	counts := make(map[string]int, len(routes))
	for _, route := range routes {
		n := 0
		for _, ts := range s.apiErrors[route] {
			if ts.After(cutoff) {
				n++
			}
		}
		counts[route] = n
	}
	return counts
}

// RecentLoadTimes returns up to sampleSize of the most recent load-time
// samples recorded within the window, newest last.
func (s *SampleStore) RecentLoadTimes(window time.Duration, sampleSize int) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	var recent []float64
	for _, sample := range s.loadTimes {
		if sample.timestamp.After(cutoff) {
			recent = append(recent, sample.loadTime)
		}
	}

	if sampleSize > 0 && len(recent) > sampleSize {
		recent = recent[len(recent)-sampleSize:]
	}
	return recent
}

func (s *SampleStore) SessionFailureCount(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	n := 0
	for _, ts := range s.sessionFailures {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// UploadOutcomes returns the failed and total upload counts within the
// window.
func (s *SampleStore) UploadOutcomes(window time.Duration) (failed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	for _, sample := range s.uploads {
		if !sample.timestamp.After(cutoff) {
			continue
		}
		total++
		if !sample.success {
			failed++
		}
	}
	return failed, total
}

// BufferSizes reports how many samples each buffer currently holds.
func (s *SampleStore) BufferSizes() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	apiErrors := 0
	for _, timestamps := range s.apiErrors {
		apiErrors += len(timestamps)
	}
	performance := 0
	for _, samples := range s.performance {
		performance += len(samples)
	}

	return map[string]int{
		"api_errors":       apiErrors,
		"load_times":       len(s.loadTimes),
		"session_failures": len(s.sessionFailures),
		"uploads":          len(s.uploads),
		"performance":      performance,
	}
}

// Cleanup evicts samples older than the retention horizon across every
// buffer. The horizon is a coarse memory bound, deliberately larger
// than any metric's own evaluation window.
func (s *SampleStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.retention)

	for route, timestamps := range s.apiErrors {
		kept := pruneTimes(timestamps, cutoff)
		if len(kept) == 0 {
			delete(s.apiErrors, route)
		} else {
			s.apiErrors[route] = kept
		}
	}

	keptLoads := s.loadTimes[:0]
	for _, sample := range s.loadTimes {
		if sample.timestamp.After(cutoff) {
			keptLoads = append(keptLoads, sample)
		}
	}
	s.loadTimes = keptLoads

	s.sessionFailures = pruneTimes(s.sessionFailures, cutoff)

	keptUploads := s.uploads[:0]
	for _, sample := range s.uploads {
		if sample.timestamp.After(cutoff) {
			keptUploads = append(keptUploads, sample)
		}
	}
	s.uploads = keptUploads

	for name, samples := range s.performance {
		kept := samples[:0]
		for _, sample := range samples {
			if sample.timestamp.After(cutoff) {
				kept = append(kept, sample)
			}
		}
		if len(kept) == 0 {
			delete(s.performance, name)
		} else {
			s.performance[name] = kept
		}
	}
}

func pruneTimes(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
