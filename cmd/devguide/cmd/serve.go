package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/analytics"
	snapshot "github.com/Adithya-Monish-Kumar-K/devguide-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/resilience"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP with preloaded corpora",
		Long: `Serve loads every corpus once, fits its statistics and answers
queries over HTTP until interrupted.

Redis, Kafka and PostgreSQL are optional: when enabled in the config but
unreachable, the service logs a warning and runs without them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				g.cfg.Server.Port = port
			}
			return runServe(cmd.Context(), g.cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port (overrides server.port)")
	return cmd
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Data.Dir)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New(newRegistry())
	searcher := executor.New(cfg, m)
	if err := searcher.Warm(ctx); err != nil {
		return fmt.Errorf("warming corpora: %w", err)
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		var c *pkgredis.Client
		err := resilience.Retry(ctx, "redis connect", resilience.DefaultBackoff, func(context.Context) error {
			var err error
			c, err = pkgredis.NewClient(cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, using local query cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			redisClient = c
			defer redisClient.Close()
		}
	}
	queryCache := cache.New(redisClient, cfg.Redis, m)
	slog.Info("query cache enabled", "backend", queryCache.Backend(), "ttl", cfg.Redis.CacheTTL)

	var producer *kafka.Producer
	var batch *collector.BatchCollector
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		batch = collector.NewBatchCollector(producer, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
	}
	agg := analytics.NewAggregator(0)
	events := analytics.NewCollector(agg, batch, m)
	events.Start(ctx)
	defer events.Close()

	snapshots, stopSnapshots := startSnapshots(ctx, cfg.Postgres, agg)
	defer stopSnapshots()
	// Background loops stop before the deferred waits above run.
	defer cancel()

	checker := health.NewChecker()
	registerDataChecks(checker, cfg, searcher)
	if cfg.Redis.Enabled {
		checker.Register("redis", health.PingCheck(pingOf(redisClient)))
	}
	if producer != nil {
		checker.Register("kafka", health.PingCheck(producer.Ping))
	}
	if cfg.Postgres.Enabled {
		checker.Register("postgres", health.PingCheck(snapshots.ping))
	}

	h := handler.New(searcher, queryCache, events, handler.Limits{
		Default: cfg.Search.DefaultLimit,
		Content: cfg.Search.ContentLimit,
		Max:     cfg.Search.MaxResults,
	})
	var snapshotSource analytics.SnapshotSource
	if snapshots.store != nil {
		snapshotSource = snapshots.store
	}
	analyticsH := analytics.NewHandler(agg, snapshotSource)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", m.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.RunCleanup(ctx, time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return listenUntilDone(ctx, server, cfg.Server.ShutdownTimeout, "search service")
}

// registerDataChecks reports each tabular file and the content index.
// Missing data degrades rather than fails readiness since queries against
// it still answer with an error field.
func registerDataChecks(checker *health.Checker, cfg *config.Config, searcher *executor.Searcher) {
	for _, name := range searcher.Domains().Names() {
		d := searcher.Domains()[name]
		checker.Register("data_"+name, health.FileCheck(filepath.Join(cfg.Data.Dir, d.File), health.StatusDegraded))
	}
	checker.Register("content_index", health.FileCheck(cfg.Data.ContentIndex, health.StatusDegraded))
	checker.Register("corpora", func(ctx context.Context) health.ComponentHealth {
		if !searcher.Warmed() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "not loaded"}
		}
		domains, content := searcher.Loaded()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d domains preloaded, content preloaded: %t", len(domains), content),
		}
	})
}

type snapshotBackend struct {
	store *snapshot.Store
	db    *postgres.Client
}

func (b snapshotBackend) ping(ctx context.Context) error {
	if b.db == nil {
		return errors.New("postgres not connected")
	}
	return b.db.Ping(ctx)
}

// startSnapshots connects to PostgreSQL when enabled and snapshots src
// periodically. The returned stop function waits for the final snapshot
// after ctx is done and closes the connection.
func startSnapshots(ctx context.Context, cfg config.PostgresConfig, src snapshot.StatsSource) (snapshotBackend, func()) {
	if !cfg.Enabled {
		return snapshotBackend{}, func() {}
	}
	var db *postgres.Client
	err := resilience.Retry(ctx, "postgres connect", resilience.DefaultBackoff, func(context.Context) error {
		var err error
		db, err = postgres.New(cfg)
		return err
	})
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "host", cfg.Host, "error", err)
		return snapshotBackend{}, func() {}
	}
	store := snapshot.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Warn("analytics snapshot schema unavailable", "error", err)
		db.Close()
		return snapshotBackend{}, func() {}
	}
	done := store.StartPeriodicSave(ctx, src, cfg.SnapshotInterval)
	return snapshotBackend{store: store, db: db}, func() {
		<-done
		db.Close()
	}
}

func pingOf(c *pkgredis.Client) func(context.Context) error {
	if c == nil {
		return nil
	}
	return c.Ping
}

// listenUntilDone serves until ctx is cancelled, then shuts down gracefully.
func listenUntilDone(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown: %w", name, err)
	}
	slog.Info(name + " stopped")
	return nil
}
