package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/calibration"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/retriever"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/jsonl"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/postgres"
)

const (
	eventBufferSize  = 10000
	eventBatchSize   = 100
	eventFlushPeriod = time.Second
	snapshotInterval = time.Minute
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("retriever service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("retriever service stopped")
}

func run(cfg *config.Config) error {
	slog.Info("starting retriever service", "port", cfg.Server.Port, "corpus", cfg.Retrieval.CorpusPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	docs, err := retriever.LoadCorpus(cfg.Retrieval.CorpusPath, cfg.Retrieval.TextField)
	if err != nil {
		return err
	}
	r, err := retriever.New(docs, retriever.WithParams(ranker.Params{K1: cfg.Retrieval.K1, B: cfg.Retrieval.B}))
	if err != nil {
		return fmt.Errorf("building retriever: %w", err)
	}
	m.CorpusDocuments.Set(float64(r.Size()))
	slog.Info("retriever ready", "documents", r.Size(), "version", r.Version())

	checker := health.NewChecker()
	checker.Register("corpus", health.ValueCheck(func() bool { return r.Size() > 0 }, "corpus is empty"))

	resultCache, err := cache.New(cfg.Cache, cfg.Redis, r.Version())
	if err != nil {
		slog.Warn("cache backend unavailable, retrieval caching disabled", "backend", cfg.Cache.Backend, "error", err)
		resultCache = cache.Noop{}
	} else {
		slog.Info("retrieval cache enabled", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)
	}
	if c, ok := resultCache.(io.Closer); ok {
		defer c.Close()
	}
	if p, ok := resultCache.(health.Pinger); ok {
		checker.Register("redis", health.PingCheck(p, true))
	}

	var runStore *store.Store
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		runStore = store.New(db)
		if err := runStore.Migrate(ctx); err != nil {
			return err
		}
		checker.Register("postgres", health.PingCheck(db, false))
	}

	pol, err := classifier.ParsePolarity(cfg.Classifier.Polarity)
	if err != nil {
		return err
	}
	clf, err := loadClassifier(ctx, cfg.Classifier, pol, runStore)
	if err != nil {
		return err
	}

	aggregator := analytics.NewAggregator()
	var tracker analytics.Tracker = aggregator
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.Predictions
		producer := kafka.NewProducer(cfg.Kafka, topic)
		collector := analytics.NewCollector(producer, eventBufferSize, eventBatchSize, eventFlushPeriod)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		aggregator.Consume(cfg.Kafka, topic)
		slog.Info("prediction events streaming", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}
	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()
	if runStore != nil {
		runStore.StartPeriodicSave(ctx, aggregator, snapshotInterval)
	}

	opts := []handler.Option{
		handler.WithCache(resultCache),
		handler.WithTracker(tracker),
		handler.WithMetrics(m),
	}
	if clf != nil {
		opts = append(opts, handler.WithClassifier(clf))
	}
	if runStore != nil {
		opts = append(opts, handler.WithCalibrationSaver(runStore))
	}
	h := handler.New(r, handler.Config{
		DefaultTopN: cfg.Retrieval.DefaultTopN,
		MaxTopN:     cfg.Retrieval.MaxTopN,
		Polarity:    pol,
	}, opts...)

	checker.Register("threshold", health.ValueCheck(h.Calibrated, "no threshold loaded, classify is unavailable until calibration"))

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
		limiter.StartEviction(ctx, 5*time.Minute, 10*time.Minute)
		chain = append(chain, middleware.RateLimit(limiter))
	}
	chain = append(chain, middleware.Timeout(cfg.Server.RequestTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
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

	slog.Info("retriever service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadClassifier resolves the decision threshold: an explicit config value
// wins, then the latest persisted calibration, then a fit over the scored
// calibration file. A nil classifier with a nil error means none was found.
func loadClassifier(ctx context.Context, cfg config.ClassifierConfig, pol classifier.Polarity, runs *store.Store) (*classifier.Classifier, error) {
	if cfg.Threshold != nil {
		slog.Info("using configured threshold", "threshold", *cfg.Threshold)
		return classifier.FromRawThreshold(*cfg.Threshold, pol)
	}
	if runs != nil {
		run, err := runs.LatestCalibration(ctx, classifier.SourceRetrieval)
		switch {
		case err == nil:
			slog.Info("using persisted calibration", "threshold", run.Threshold, "f1", run.F1, "created_at", run.CreatedAt)
			return classifier.FromRawThreshold(run.Threshold, pol)
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, err
		}
	}
	if cfg.CalibrationPath == "" {
		slog.Warn("no threshold configured")
		return nil, nil
	}
	records, err := jsonl.Read[record.Record](cfg.CalibrationPath)
	if err != nil {
		return nil, err
	}
	samples, err := pipeline.CalibrationSet(records, pol)
	if err != nil {
		return nil, err
	}
	res, err := calibration.Optimize(calibration.Split(samples))
	if err != nil {
		return nil, err
	}
	clf, err := classifier.New(res.Threshold, pol)
	if err != nil {
		return nil, err
	}
	slog.Info("threshold fitted from calibration file",
		"path", cfg.CalibrationPath,
		"threshold", clf.RawThreshold(),
		"f1", res.F1,
	)
	return clf, nil
}
