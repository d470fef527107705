package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount int64
	ErrorCount   int64
	CacheHits    int64
	CacheMisses  int64

	// Analysis pipeline metrics
	AnalysesRun         int64
	ParseErrorsObserved int64
	RowsAnalyzed        int64

	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		RequestCountByStatus: make(map[int]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// RecordAnalysis records a completed analysis run and its data-quality
// signals so /health can expose them.
func (m *Metrics) RecordAnalysis(rows, parseErrors int) {
	atomic.AddInt64(&m.AnalysesRun, 1)
	atomic.AddInt64(&m.RowsAnalyzed, int64(rows))
	atomic.AddInt64(&m.ParseErrorsObserved, int64(parseErrors))
}

// RecordResponseTime records response time for averaging
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// GetStats returns a snapshot of the current metrics
func (m *Metrics) GetStats() map[string]interface{} {
	m.StatusMutex.RLock()
	byStatus := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		byStatus[code] = count
	}
	m.StatusMutex.RUnlock()

	return map[string]interface{}{
		"request_count":         atomic.LoadInt64(&m.RequestCount),
		"error_count":           atomic.LoadInt64(&m.ErrorCount),
		"cache_hits":            atomic.LoadInt64(&m.CacheHits),
		"cache_misses":          atomic.LoadInt64(&m.CacheMisses),
		"analyses_run":          atomic.LoadInt64(&m.AnalysesRun),
		"rows_analyzed":         atomic.LoadInt64(&m.RowsAnalyzed),
		"parse_errors_observed": atomic.LoadInt64(&m.ParseErrorsObserved),
		"avg_response_time_ms":  time.Duration(atomic.LoadInt64(&m.AverageResponseTime)).Milliseconds(),
		"requests_by_status":    byStatus,
		"uptime_seconds":        int64(time.Since(m.StartTime).Seconds()),
	}
}
