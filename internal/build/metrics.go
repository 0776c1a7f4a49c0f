package build

import (
	"sync"
	"time"
)

// Stats is a point-in-time copy of the build counters.
type Stats struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	LastDuration     time.Duration
}

// Metrics tracks builds across a dev session.
type Metrics struct {
	stats Stats
	mutex sync.RWMutex
}

// NewMetrics creates an empty tracker.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record adds one build.
func (m *Metrics) Record(duration time.Duration, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := &m.stats
	s.TotalBuilds++
	s.TotalDuration += duration
	s.LastDuration = duration

	if err != nil {
		s.FailedBuilds++
	} else {
		s.SuccessfulBuilds++
	}

	s.AverageDuration = s.TotalDuration / time.Duration(s.TotalBuilds)
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Stats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.stats
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats = Stats{}
}

// SuccessRate returns the share of successful builds as a percentage.
func (m *Metrics) SuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.stats.TotalBuilds == 0 {
		return 0.0
	}

	return float64(m.stats.SuccessfulBuilds) / float64(m.stats.TotalBuilds) * 100.0
}
