package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/middleware"
)

func newAnalyticsCmd(g *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Aggregate search events published to Kafka by serve replicas",
		Long: `Analytics consumes the search-event topic that serve publishes to
when kafka.enabled is set, aggregates totals, top queries, zero-result
queries and latency percentiles across every replica, snapshots them to
PostgreSQL when enabled and serves them at GET /api/v1/analytics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalytics(cmd.Context(), g.cfg, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8081, "HTTP listen port")
	return cmd
}

func runAnalytics(ctx context.Context, cfg *config.Config, port int) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("analytics requires kafka.brokers")
	}
	topic := cfg.Kafka.Topics.SearchEvents
	slog.Info("starting analytics service", "port", port, "topic", topic)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New(newRegistry())
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	agg := analytics.NewAggregator(0)
	consumer := kafka.NewConsumer(cfg.Kafka, topic, countingHandler(analytics.HandleEvent(agg), m))
	defer consumer.Close()
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()

	snapshots, stopSnapshots := startSnapshots(ctx, cfg.Postgres, agg)
	defer stopSnapshots()
	defer cancel()

	checker := health.NewChecker()
	checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}))
	if cfg.Postgres.Enabled {
		checker.Register("postgres", health.PingCheck(snapshots.ping))
	}

	var snapshotSource analytics.SnapshotSource
	if snapshots.store != nil {
		snapshotSource = snapshots.store
	}
	analyticsH := analytics.NewHandler(agg, snapshotSource)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return listenUntilDone(ctx, server, cfg.Server.ShutdownTimeout, "analytics service")
}

// countingHandler counts consumed events by outcome.
func countingHandler(next kafka.MessageHandler, m *metrics.Metrics) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		err := next(ctx, key, value)
		outcome := "consumed"
		if err != nil {
			outcome = "consume_failed"
		}
		m.AnalyticsEvents.WithLabelValues(outcome).Inc()
		return err
	}
}
