// Command analytics runs the prediction analytics service.
//
// It consumes prediction events published by retriever replicas, aggregates
// them in memory (volume, hallucination rate, latency percentiles, cache hit
// rate, most flagged questions) and serves them at GET /api/v1/analytics.
// With Postgres enabled it also snapshots the aggregate periodically and
// lists persisted evaluation runs at GET /api/v1/evaluations. Ports default to
// one above the retriever service and its metrics endpoint.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/postgres"
)

const (
	defaultEvaluationLimit = 20
	snapshotInterval       = time.Minute
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "listen port (default server.port + 1)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port == 0 {
		*port = cfg.Server.Port + 1
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg, *port); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(cfg *config.Config, port int) error {
	if !cfg.Kafka.Enabled {
		return errors.New("kafka.enabled is false; the analytics service has no event source")
	}
	slog.Info("starting analytics service", "port", port, "topic", cfg.Kafka.Topics.Predictions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port + 1)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	aggregator := analytics.NewAggregator()
	aggregator.Consume(cfg.Kafka, cfg.Kafka.Topics.Predictions)
	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", health.ValueCheck(func() bool { return len(cfg.Kafka.Brokers) > 0 }, "no brokers configured"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		runs := store.New(db)
		if err := runs.Migrate(ctx); err != nil {
			return err
		}
		runs.StartPeriodicSave(ctx, aggregator, snapshotInterval)
		checker.Register("postgres", health.PingCheck(db, false))
		mux.HandleFunc("GET /api/v1/evaluations", evaluationsHandler(runs))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.Metrics(m), middleware.Timeout(cfg.Server.RequestTimeout)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func evaluationsHandler(runs *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultEvaluationLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, `{"error":"limit must be a positive integer"}`, http.StatusBadRequest)
				return
			}
			limit = n
		}
		list, err := runs.ListEvaluations(r.Context(), limit)
		if err != nil {
			logger.FromContext(r.Context()).Error("listing evaluations failed", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}
