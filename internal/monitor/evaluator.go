package monitor

import (
	"fmt"
	"time"

	"github.com/smartsite/sitehealth/pkg/models"
)

const defaultLoadTimeWindow = 10 * time.Minute

// loginAttemptBaseline is the assumed number of login attempts the
// failure count is divided by. A real attempts counter should replace
// this once session tracking reports successes too.
// TODO: wire a total-attempts counter from the session layer.
const loginAttemptBaseline = 10

// Evaluator runs a metric definition's threshold check against the
// buffered samples. Each metric kind has its own evaluation function;
// Evaluate dispatches on the metric name.
type Evaluator struct {
	samples        *SampleStore
	loadTimeWindow time.Duration
	now            func() time.Time
}

func NewEvaluator(samples *SampleStore, loadTimeWindow time.Duration) *Evaluator {
	if loadTimeWindow <= 0 {
		loadTimeWindow = defaultLoadTimeWindow
	}
	return &Evaluator{
		samples:        samples,
		loadTimeWindow: loadTimeWindow,
		now:            time.Now,
	}
}

func (e *Evaluator) Evaluate(metric *models.HealthMetric) (*models.Evaluation, error) {
	threshold, err := models.ParseThreshold(metric.Name, metric.Threshold)
	if err != nil {
		return nil, err
	}

	eval := &models.Evaluation{
		MetricID:   metric.ID,
		MetricName: metric.Name,
		Timestamp:  e.now(),
	}

	switch t := threshold.(type) {
	case models.APIErrorThreshold:
		e.evaluateAPIErrorRate(eval, t)
	case models.LoadTimeThreshold:
		e.evaluateDashboardLoadTime(eval, t)
	case models.FailureRateThreshold:
		if metric.Name == models.MetricLoginFailureRate {
			e.evaluateLoginFailureRate(eval, t)
		} else {
			e.evaluateMediaUploadFailure(eval, t)
		}
	default:
		return nil, fmt.Errorf("no evaluator for metric %s", metric.Name)
	}

	return eval, nil
}

// evaluateAPIErrorRate sums buffered server errors across the
// configured routes. The count check is inclusive: hitting the
// configured error_count exactly counts as exceeded.
func (e *Evaluator) evaluateAPIErrorRate(eval *models.Evaluation, t models.APIErrorThreshold) {
	counts := e.samples.APIErrorCounts(t.Routes, t.Window())

	total := 0
	perRoute := make(map[string]interface{}, len(counts))
	for route, n := range counts {
		total += n
		perRoute[route] = n
	}

	eval.Value = float64(total)
	eval.Exceeded = total >= t.ErrorCount
	eval.Details = map[string]interface{}{
		"routes":      perRoute,
		"error_count": t.ErrorCount,
		"time_window": t.TimeWindow,
	}
}

// evaluateDashboardLoadTime averages the most recent samples inside the
// load-time window. No samples means a clean zero, never a false
// positive.
func (e *Evaluator) evaluateDashboardLoadTime(eval *models.Evaluation, t models.LoadTimeThreshold) {
	samples := e.samples.RecentLoadTimes(e.loadTimeWindow, t.SampleSize)

	if len(samples) == 0 {
		eval.Value = 0
		eval.Exceeded = false
		eval.Details = map[string]interface{}{
			"sample_count":  0,
			"max_load_time": t.MaxLoadTime,
		}
		return
	}

	var sum float64
	for _, loadTime := range samples {
		sum += loadTime
	}
	mean := sum / float64(len(samples))

	eval.Value = mean
	eval.Exceeded = mean > t.MaxLoadTime
	eval.Details = map[string]interface{}{
		"sample_count":  len(samples),
		"max_load_time": t.MaxLoadTime,
	}
}

func (e *Evaluator) evaluateLoginFailureRate(eval *models.Evaluation, t models.FailureRateThreshold) {
	failures := e.samples.SessionFailureCount(t.Window())

	rate := float64(failures) / loginAttemptBaseline

	eval.Value = rate
	eval.Exceeded = rate > t.FailureRate
	eval.Details = map[string]interface{}{
		"failures":         failures,
		"assumed_attempts": loginAttemptBaseline,
		"failure_rate":     t.FailureRate,
		"time_window":      t.TimeWindow,
	}
}

func (e *Evaluator) evaluateMediaUploadFailure(eval *models.Evaluation, t models.FailureRateThreshold) {
	failed, total := e.samples.UploadOutcomes(t.Window())

	var rate float64
	if total > 0 {
		rate = float64(failed) / float64(total)
	}

	eval.Value = rate
	eval.Exceeded = rate > t.FailureRate
	eval.Details = map[string]interface{}{
		"failed":       failed,
		"total":        total,
		"failure_rate": t.FailureRate,
		"time_window":  t.TimeWindow,
	}
}
