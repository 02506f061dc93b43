package analytics

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	defaultLatencyWindow = 10000
	topQueriesLimit      = 10
)

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	SearchesByDomain  map[string]int64 `json:"searches_by_domain"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	MissingDataCount  int64            `json:"missing_data_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over search events. Latency percentiles
// are computed over the most recent window of events.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	byDomain          map[string]int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	missingData       int64
	latencies         []int64
	latencyNext       int
	window            int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	now               func() time.Time

	logger *slog.Logger
}

// NewAggregator creates an aggregator keeping latencies for the last window
// events. window <= 0 selects the default.
func NewAggregator(window int) *Aggregator {
	if window <= 0 {
		window = defaultLatencyWindow
	}
	return &Aggregator{
		byDomain:          make(map[string]int64),
		latencies:         make([]int64, 0, window),
		window:            window,
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds one event into the totals.
func (a *Aggregator) Record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	a.byDomain[event.Domain]++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.queryCounts[event.Query]++

	switch {
	case event.Error != "":
		a.missingData++
	case event.Returned == 0:
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}

	if len(a.latencies) < a.window {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % a.window
	}
}

// Stats returns a snapshot of the aggregated totals.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		SearchesByDomain: make(map[string]int64, len(a.byDomain)),
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		ZeroResultCount:  a.zeroResults,
		MissingDataCount: a.missingData,
	}
	for domain, n := range a.byDomain {
		stats.SearchesByDomain[domain] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topQueriesLimit)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topQueriesLimit)
	elapsed := a.now().Sub(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
