package analytics

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/metrics"
)

// Collector records search events into the in-process aggregator and, when
// a batch collector is attached, forwards them to Kafka.
type Collector struct {
	aggregator *Aggregator
	batch      *collector.BatchCollector
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewCollector creates a collector. batch and m may be nil.
func NewCollector(aggregator *Aggregator, batch *collector.BatchCollector, m *metrics.Metrics) *Collector {
	c := &Collector{
		aggregator: aggregator,
		batch:      batch,
		metrics:    m,
		logger:     slog.Default().With("component", "analytics-collector"),
	}
	if batch != nil && m != nil {
		batch.OnFlush(func(published, failed int) {
			m.AnalyticsEvents.WithLabelValues("published").Add(float64(published))
			m.AnalyticsEvents.WithLabelValues("publish_failed").Add(float64(failed))
		})
	}
	return c
}

// Start launches the Kafka flush loop when publishing is enabled.
func (c *Collector) Start(ctx context.Context) {
	if c.batch != nil {
		c.batch.Start(ctx)
	}
	c.logger.Info("analytics collector started", "publishing", c.batch != nil)
}

// Track records one event. It never blocks on the network.
func (c *Collector) Track(event SearchEvent) {
	c.aggregator.Record(event)
	if c.batch != nil {
		c.batch.Track(event.Domain, event)
	}
	if c.metrics != nil {
		c.metrics.AnalyticsEvents.WithLabelValues("tracked").Inc()
	}
}

// Aggregator returns the in-process aggregator.
func (c *Collector) Aggregator() *Aggregator {
	return c.aggregator
}

// Close waits for the final Kafka flush after the Start context is done.
func (c *Collector) Close() {
	if c.batch != nil {
		c.batch.Close()
	}
}
