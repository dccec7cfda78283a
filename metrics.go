package querygo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    queryCounter   prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordQuery(duration time.Duration, results int, err error) {
//	    p.queryCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordQuery is called after each query evaluation.
	// results is the number of records returned, duration is the total
	// time taken, err is nil if successful.
	RecordQuery(duration time.Duration, results int, err error)

	// RecordFetch is called after each source fetch the engine triggers.
	// records is the number of records fetched, stale marks a degraded
	// serve from fallback material.
	RecordFetch(duration time.Duration, records int, stale bool, err error)

	// RecordRefresh is called after each forced refresh.
	RecordRefresh(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordQuery(time.Duration, int, error)       {}
func (NoopMetricsCollector) RecordFetch(time.Duration, int, bool, error) {}
func (NoopMetricsCollector) RecordRefresh(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryResults    atomic.Int64
	QueryTotalNanos atomic.Int64
	FetchCount      atomic.Int64
	FetchErrors     atomic.Int64
	FetchRecords    atomic.Int64
	FetchTotalNanos atomic.Int64
	StaleServes     atomic.Int64
	RefreshCount    atomic.Int64
	RefreshErrors   atomic.Int64
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(duration time.Duration, results int, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
		return
	}
	b.QueryResults.Add(int64(results))
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(duration time.Duration, records int, stale bool, err error) {
	b.FetchCount.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
		return
	}
	b.FetchRecords.Add(int64(records))
	if stale {
		b.StaleServes.Add(1)
	}
}

// RecordRefresh implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefresh(duration time.Duration, err error) {
	b.RefreshCount.Add(1)
	if err != nil {
		b.RefreshErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		QueryResults:  b.QueryResults.Load(),
		QueryAvgNanos: b.getAvgQueryNanos(),
		FetchCount:    b.FetchCount.Load(),
		FetchErrors:   b.FetchErrors.Load(),
		FetchRecords:  b.FetchRecords.Load(),
		FetchAvgNanos: b.getAvgFetchNanos(),
		StaleServes:   b.StaleServes.Load(),
		RefreshCount:  b.RefreshCount.Load(),
		RefreshErrors: b.RefreshErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgFetchNanos() int64 {
	count := b.FetchCount.Load()
	if count == 0 {
		return 0
	}
	return b.FetchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	QueryCount    int64
	QueryErrors   int64
	QueryResults  int64
	QueryAvgNanos int64
	FetchCount    int64
	FetchErrors   int64
	FetchRecords  int64
	FetchAvgNanos int64
	StaleServes   int64
	RefreshCount  int64
	RefreshErrors int64
}
