// Command api starts the election-results HTTP service.
//
// The service ingests CSV exports into PostgreSQL (POST
// /api/v1/elections/import), serves aggregated per-party totals from either
// the relational store or the search index, rebuilds the search index on
// demand, and answers municipality autocomplete backed by a Redis popularity
// ledger.
//
// Usage:
//
//	go run ./cmd/api [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shkelqim22/zgjedhjet/internal/api"
	"github.com/shkelqim22/zgjedhjet/internal/events"
	"github.com/shkelqim22/zgjedhjet/internal/ingest"
	"github.com/shkelqim22/zgjedhjet/internal/query"
	"github.com/shkelqim22/zgjedhjet/internal/search"
	"github.com/shkelqim22/zgjedhjet/internal/store"
	"github.com/shkelqim22/zgjedhjet/internal/suggest"
	"github.com/shkelqim22/zgjedhjet/pkg/config"
	"github.com/shkelqim22/zgjedhjet/pkg/elastic"
	"github.com/shkelqim22/zgjedhjet/pkg/health"
	"github.com/shkelqim22/zgjedhjet/pkg/kafka"
	"github.com/shkelqim22/zgjedhjet/pkg/logger"
	"github.com/shkelqim22/zgjedhjet/pkg/metrics"
	"github.com/shkelqim22/zgjedhjet/pkg/postgres"
	"github.com/shkelqim22/zgjedhjet/pkg/redis"
)

// main loads configuration, connects to PostgreSQL, Elasticsearch, and
// Redis, wires the ingestion, query, sync, and suggestion services, and
// starts the HTTP server. Graceful shutdown is triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting api service", "port", cfg.Server.Port)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	es, err := elastic.New(cfg.Elasticsearch)
	if err != nil {
		slog.Error("failed to connect to elasticsearch", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to elasticsearch", "index", cfg.Elasticsearch.Index)

	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("connected to redis")

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	var notifier *events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic)
		defer producer.Close()
		notifier = events.New(producer)
		slog.Info("kafka event publisher initialized", "topic", cfg.Kafka.EventsTopic)
	}

	recordStore := store.New(db)
	cache := query.New(rdb, cfg.Redis.CacheTTL, m)
	searchBackend := search.NewBackend(es)

	importSvc := ingest.New(recordStore, cache, notifier, m)
	syncer := search.NewSyncer(es, recordStore, cache, notifier, cfg.Sync, m)
	suggester := search.NewSuggester(es, cfg.Suggest.MaxSuggestions)
	ledger := suggest.NewRedisLedger(rdb, cfg.Redis.LeaderboardKey)
	suggestSvc := suggest.New(suggester, ledger, cfg.Suggest.DefaultStatsTop, m)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db.Ping))
	checker.Register("redis", health.PingCheck(rdb.Ping))
	checker.Register("elasticsearch", health.PingCheck(es.Ping))

	h := api.New(
		importSvc,
		cache.Wrap(recordStore),
		cache.Wrap(searchBackend),
		syncer,
		suggestSvc,
		cfg.Server.MaxUploadBytes,
		m,
	)
	router := api.NewRouter(h, checker, m, cfg.Server.RequestTimeout)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()
	slog.Info("api service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("api service stopped")
}
