package service

import (
	"sort"
	"sync"
	"time"
)

const (
	defaultMetricSamples = 1000
	slowRequestThreshold = 250 * time.Millisecond
)

// PortfolioMetrics tracks portfolio request latency, cache effectiveness and
// record anomalies over a rolling window of samples
type PortfolioMetrics struct {
	mu             sync.RWMutex
	cachedTimes    []time.Duration
	computedTimes  []time.Duration
	cacheHits      int64
	cacheMisses    int64
	sourceFailures int64
	slowRequests   int64
	diagnostics    int64
	maxSamples     int
}

// NewPortfolioMetrics creates an empty metrics window
func NewPortfolioMetrics() *PortfolioMetrics {
	return &PortfolioMetrics{
		cachedTimes:   make([]time.Duration, 0, defaultMetricSamples),
		computedTimes: make([]time.Duration, 0, defaultMetricSamples),
		maxSamples:    defaultMetricSamples,
	}
}

// RecordRequest records one served portfolio and whether it came from cache
func (m *PortfolioMetrics) RecordRequest(duration time.Duration, cached bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cached {
		m.cacheHits++
		m.cachedTimes = appendSample(m.cachedTimes, duration, m.maxSamples)
	} else {
		m.cacheMisses++
		m.computedTimes = appendSample(m.computedTimes, duration, m.maxSamples)
	}

	if duration > slowRequestThreshold {
		m.slowRequests++
	}
}

// RecordSourceFailure counts a request that failed to load its records
func (m *PortfolioMetrics) RecordSourceFailure() {
	m.mu.Lock()
	m.sourceFailures++
	m.mu.Unlock()
}

// RecordDiagnostics adds the diagnostics produced by one computation
func (m *PortfolioMetrics) RecordDiagnostics(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.diagnostics += int64(n)
	m.mu.Unlock()
}

func appendSample(samples []time.Duration, d time.Duration, limit int) []time.Duration {
	samples = append(samples, d)
	if len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	return samples
}

// MetricsSnapshot is a point-in-time view of PortfolioMetrics
type MetricsSnapshot struct {
	Requests       int64   `json:"requests"`
	CacheHits      int64   `json:"cacheHits"`
	CacheMisses    int64   `json:"cacheMisses"`
	CacheHitRate   float64 `json:"cacheHitRate"` // Percentage
	SourceFailures int64   `json:"sourceFailures"`
	SlowRequests   int64   `json:"slowRequests"`
	Diagnostics    int64   `json:"diagnostics"`
	AvgCachedMs    float64 `json:"avgCachedMs"`
	AvgComputedMs  float64 `json:"avgComputedMs"`
	P95ComputedMs  float64 `json:"p95ComputedMs"`
	P99ComputedMs  float64 `json:"p99ComputedMs"`
}

// Snapshot returns the current statistics
func (m *PortfolioMetrics) Snapshot() *MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &MetricsSnapshot{
		Requests:       m.cacheHits + m.cacheMisses,
		CacheHits:      m.cacheHits,
		CacheMisses:    m.cacheMisses,
		SourceFailures: m.sourceFailures,
		SlowRequests:   m.slowRequests,
		Diagnostics:    m.diagnostics,
		AvgCachedMs:    averageMs(m.cachedTimes),
		AvgComputedMs:  averageMs(m.computedTimes),
	}

	if s.Requests > 0 {
		s.CacheHitRate = float64(m.cacheHits) / float64(s.Requests) * 100
	}

	if len(m.computedTimes) > 0 {
		sorted := make([]time.Duration, len(m.computedTimes))
		copy(sorted, m.computedTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		s.P95ComputedMs = durationMs(sorted[percentileIndex(len(sorted), 0.95)])
		s.P99ComputedMs = durationMs(sorted[percentileIndex(len(sorted), 0.99)])
	}

	return s
}

// Reset clears all samples and counters
func (m *PortfolioMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cachedTimes = make([]time.Duration, 0, m.maxSamples)
	m.computedTimes = make([]time.Duration, 0, m.maxSamples)
	m.cacheHits = 0
	m.cacheMisses = 0
	m.sourceFailures = 0
	m.slowRequests = 0
	m.diagnostics = 0
}

func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func averageMs(samples []time.Duration) float64 {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range samples {
		total += d
	}
	return durationMs(total) / float64(len(samples))
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
