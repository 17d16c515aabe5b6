package ratelimit

import (
	"sync"
	"time"

	"github.com/smartsite/sitehealth/internal/logger"
)

const defaultCleanupInterval = 5 * time.Minute

type Config struct {
	MaxRequestsPerInterval int
	Interval               time.Duration
	// AllowAllRequests fails open: over-capacity requests are still
	// admitted, they just stop being recorded against the window.
	AllowAllRequests bool
	// SamplingRate N admits only every Nth call per key into window
	// accounting; the rest are rejected before the window is touched.
	// Values below 2 disable sampling.
	SamplingRate    int
	CleanupInterval time.Duration
}

type keyState struct {
	requestCount uint64
	admitted     []time.Time
}

// RateLimiter admits or rejects units of work identified by a string key
// using a sliding time window. It never returns an error; admission is
// the only signal.
type RateLimiter struct {
	config  Config
	entries map[string]*keyState
	mu      sync.Mutex
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func New(cfg Config) *RateLimiter {
	if cfg.MaxRequestsPerInterval <= 0 {
		cfg.MaxRequestsPerInterval = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}

	rl := &RateLimiter{
		config:  cfg,
		entries: make(map[string]*keyState),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go rl.cleanupLoop()
	return rl
}

// ShouldAllowRequest reports whether the unit of work for key may
// proceed. A false from sampling or an exhausted window is deliberate
// silence, not an error.
func (rl *RateLimiter) ShouldAllowRequest(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok {
		entry = &keyState{}
		rl.entries[key] = entry
	}

	entry.requestCount++

	// Sampling pre-filter runs before any window accounting.
	if rl.config.SamplingRate > 1 && entry.requestCount%uint64(rl.config.SamplingRate) != 0 {
		return false
	}

	now := rl.now()
	entry.admitted = pruneOlderThan(entry.admitted, now.Add(-rl.config.Interval))

	if len(entry.admitted) < rl.config.MaxRequestsPerInterval {
		entry.admitted = append(entry.admitted, now)
		return true
	}

	return rl.config.AllowAllRequests
}

// GetRemainingRequests returns how many more requests the key can make
// in the current window. Never negative.
func (rl *RateLimiter) GetRemainingRequests(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok {
		return rl.config.MaxRequestsPerInterval
	}

	entry.admitted = pruneOlderThan(entry.admitted, rl.now().Add(-rl.config.Interval))

	remaining := rl.config.MaxRequestsPerInterval - len(entry.admitted)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

func (rl *RateLimiter) ResetAll() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.entries = make(map[string]*keyState)
}

// Stop halts the background key sweep. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() {
		close(rl.stop)
	})
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.removeStaleKeys()
		}
	}
}

// removeStaleKeys drops keys with no admitted request inside twice the
// window, so one-off clients do not grow the map forever.
func (rl *RateLimiter) removeStaleKeys() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.config.Interval)
	removed := 0

	for key, entry := range rl.entries {
		stale := true
		for _, ts := range entry.admitted {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(rl.entries, key)
			removed++
		}
	}

	if removed > 0 {
		logger.Debugf("Rate limiter cleanup removed %d stale keys", removed)
	}
}

func pruneOlderThan(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
