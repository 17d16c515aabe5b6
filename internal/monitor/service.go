package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartsite/sitehealth/internal/events"
	"github.com/smartsite/sitehealth/internal/logger"
	"github.com/smartsite/sitehealth/pkg/models"
)

type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
)

const metricTableName = "health_metrics"

type Config struct {
	StatusCheckInterval time.Duration
	StartRetryDelay     time.Duration
	SampleRetention     time.Duration
	LoadTimeWindow      time.Duration
}

// Service drives the evaluation loop: load enabled metric definitions,
// evaluate each against the sample buffers, persist the evaluation log,
// open incidents for exceeded metrics and fan out notifications.
type Service struct {
	config     Config
	metrics    MetricStore
	logs       MetricLogStore
	samples    *SampleStore
	evaluator  *Evaluator
	incidents  *IncidentManager
	dispatcher *NotificationDispatcher
	prober     ReadinessProber
	scheduler  Scheduler
	publisher  *events.Publisher

	mu          sync.Mutex
	state       State
	stopTick    func()
	stopRetry   func()
	tickRunning atomic.Bool
}

type Deps struct {
	Metrics       MetricStore
	Logs          MetricLogStore
	Incidents     IncidentStore
	Notifications NotificationStore
	Prober        ReadinessProber
	Scheduler     Scheduler
	Publisher     *events.Publisher
}

func NewService(cfg Config, deps Deps) *Service {
	if cfg.StatusCheckInterval <= 0 {
		cfg.StatusCheckInterval = time.Minute
	}
	if cfg.StartRetryDelay <= 0 {
		cfg.StartRetryDelay = 10 * time.Second
	}

	samples := NewSampleStore(cfg.SampleRetention)
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = NewTickerScheduler()
	}

	return &Service{
		config:     cfg,
		metrics:    deps.Metrics,
		logs:       deps.Logs,
		samples:    samples,
		evaluator:  NewEvaluator(samples, cfg.LoadTimeWindow),
		incidents:  NewIncidentManager(deps.Incidents),
		dispatcher: NewNotificationDispatcher(deps.Notifications, deps.Incidents, deps.Publisher),
		prober:     deps.Prober,
		scheduler:  scheduler,
		publisher:  deps.Publisher,
		state:      StateStopped,
	}
}

// Start brings the evaluation loop up. If the metric-definition table
// is not reachable yet (migrations still running), a retry is scheduled
// instead of failing, and the service stays stopped until a retry
// succeeds. Calling Start while running is a logged no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		logger.Info("Health monitor already running")
		return
	}
	s.state = StateStarting
	s.mu.Unlock()

	ready, err := s.prober.TableExists(ctx, metricTableName)
	if err != nil || !ready {
		if err != nil {
			logger.Warnf("Health monitor storage probe failed: %v, retrying in %s", err, s.config.StartRetryDelay)
		} else {
			logger.Warnf("Health metric table missing, retrying in %s", s.config.StartRetryDelay)
		}

		s.mu.Lock()
		// Stop during the probe wins; leave things as it left them.
		if s.state != StateStarting {
			s.mu.Unlock()
			return
		}
		s.state = StateStopped
		s.stopRetry = s.scheduler.After(s.config.StartRetryDelay, func() {
			s.Start(context.Background())
		})
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.state != StateStarting {
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	s.stopTick = s.scheduler.Schedule(s.config.StatusCheckInterval, s.Tick)
	s.mu.Unlock()

	logger.Infof("Health monitor started, evaluating every %s", s.config.StatusCheckInterval)

	// First pass right away rather than waiting a full interval.
	s.Tick()
}

// Stop cancels the timers. Safe to call when already stopped and safe
// concurrently with an in-flight tick; the tick finishes but schedules
// nothing further.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
	if s.stopRetry != nil {
		s.stopRetry()
		s.stopRetry = nil
	}

	if s.state != StateStopped {
		s.state = StateStopped
		logger.Info("Health monitor stopped")
	}
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tick runs one full evaluation pass. Ticks never overlap: if the
// previous pass is still in flight when the timer fires again, the new
// tick is skipped.
func (s *Service) Tick() {
	if !s.tickRunning.CompareAndSwap(false, true) {
		logger.Debug("Evaluation tick still in flight, skipping")
		return
	}
	defer s.tickRunning.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.StatusCheckInterval)
	defer cancel()

	metrics, err := s.metrics.ListEnabled(ctx)
	if err != nil {
		logger.Errorf("Failed to load metric definitions: %v", err)
		if s.publisher != nil {
			s.publisher.Error("", "Failed to load metric definitions", err)
		}
		return
	}

	for i := range metrics {
		s.evaluateMetric(ctx, &metrics[i])
	}

	s.samples.Cleanup()
}

// evaluateMetric isolates one metric's failures so a bad definition
// cannot abort the rest of the batch.
func (s *Service) evaluateMetric(ctx context.Context, metric *models.HealthMetric) {
	eval, err := s.evaluator.Evaluate(metric)
	if err != nil {
		logger.WithMetric(metric.Name).Errorf("Evaluation failed: %v", err)
		if s.publisher != nil {
			s.publisher.Error(metric.Name, "Metric evaluation failed", err)
		}
		return
	}

	if s.publisher != nil {
		s.publisher.MetricEvaluated(eval)
	}

	// Log before the incident decision so the audit trail exists even
	// when incident creation is skipped or fails.
	s.persistLog(ctx, metric, eval)

	if !eval.Exceeded {
		return
	}

	logger.WithMetric(metric.Name).Warnf("Threshold exceeded: value=%.2f", eval.Value)
	if s.publisher != nil {
		s.publisher.ThresholdExceeded(eval)
	}

	incident, err := s.incidents.CreateIncidentIfAbsent(ctx, metric, eval)
	if err != nil {
		logger.WithMetric(metric.Name).Errorf("Incident creation failed: %v", err)
		if s.publisher != nil {
			s.publisher.Error(metric.Name, "Incident creation failed", err)
		}
		return
	}
	if incident == nil {
		return
	}

	if s.publisher != nil {
		s.publisher.IncidentCreated(metric.Name, incident)
	}

	if err := s.dispatcher.DispatchForIncident(ctx, metric.Name, incident); err != nil {
		logger.WithIncident(incident.ID).Errorf("Notification dispatch failed: %v", err)
		if s.publisher != nil {
			s.publisher.Error(metric.Name, "Notification dispatch failed", err)
		}
	}
}

func (s *Service) persistLog(ctx context.Context, metric *models.HealthMetric, eval *models.Evaluation) {
	detail, err := json.Marshal(eval.Details)
	if err != nil {
		logger.WithMetric(metric.Name).Errorf("Failed to encode evaluation detail: %v", err)
		detail = []byte("{}")
	}

	log := &models.MetricLog{
		MetricID:  metric.ID,
		Value:     eval.Value,
		Detail:    detail,
		Timestamp: eval.Timestamp,
	}

	if err := s.logs.Insert(ctx, log); err != nil {
		// The sample buffers still hold the raw data; only this
		// snapshot is lost for audit purposes.
		logger.WithMetric(metric.Name).Errorf("Failed to persist metric log: %v", err)
	}
}

// Tracking entry points. Callable at any time, including while the
// service is stopped; they only touch the in-memory buffers.

func (s *Service) TrackAPIError(route string, statusCode int) {
	s.samples.TrackAPIError(route, statusCode)
}

func (s *Service) TrackPageLoadTime(page string, loadTimeMs float64) {
	s.samples.TrackPageLoadTime(page, loadTimeMs)
}

func (s *Service) TrackSessionFailure() {
	s.samples.TrackSessionFailure()
}

func (s *Service) TrackMediaUpload(success bool) {
	s.samples.TrackMediaUpload(success)
}

func (s *Service) TrackPerformanceMetric(name string, value float64) {
	s.samples.TrackPerformanceMetric(name, value)
}

// Dispatcher exposes delivery and resolution for the admin surface.
func (s *Service) Dispatcher() *NotificationDispatcher {
	return s.dispatcher
}

// Status reports the live state for the health endpoint.
func (s *Service) Status() map[string]interface{} {
	return map[string]interface{}{
		"state":   string(s.State()),
		"buffers": s.samples.BufferSizes(),
	}
}
