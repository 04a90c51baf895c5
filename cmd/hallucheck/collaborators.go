package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/llm"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/jsonl"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/tracing"
)

// collaboratorRun bundles what the generate and label commands share: an
// LLM client, a batch runner and, when enabled, a metrics endpoint that can
// be scraped while a long run is in progress.
type collaboratorRun struct {
	client   *llm.Client
	metrics  *metrics.Metrics
	shutdown func(context.Context) error
}

func newCollaboratorRun() *collaboratorRun {
	if appConfig.LLM.APIKey == "" {
		slog.Warn("llm.apiKey is empty; set HC_LLM_API_KEY unless the endpoint needs no key")
	}
	run := &collaboratorRun{}
	var opts []llm.Option
	if appConfig.Metrics.Enabled {
		run.metrics = metrics.New(nil)
		run.shutdown = metrics.StartServer(appConfig.Metrics.Port)
	}
	opts = append(opts, llm.WithBreakerListener(func(name string, from, to resilience.State) {
		slog.Warn("circuit breaker state changed", "name", name, "from", from, "to", to)
		if run.metrics != nil {
			run.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}))
	run.client = llm.NewClient(appConfig.LLM, appConfig.Pipeline, opts...)
	return run
}

func (c *collaboratorRun) close() {
	if c.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.shutdown(ctx)
}

// run streams task results to outPath and, when errPath is set, rejected
// records to errPath.
func (c *collaboratorRun) run(ctx context.Context, stage string, records []record.Record, task pipeline.Task, outPath, errPath string) (pipeline.Summary, error) {
	out, err := jsonl.Create(outPath)
	if err != nil {
		return pipeline.Summary{}, err
	}
	// Close is idempotent; the deferred calls only matter on error paths.
	defer out.Close()

	opts := []pipeline.RunnerOption{}
	var errs *jsonl.Writer
	if c.metrics != nil {
		opts = append(opts, pipeline.WithObserver(c.metrics))
	}
	if errPath != "" {
		errs, err = jsonl.Create(errPath)
		if err != nil {
			return pipeline.Summary{}, err
		}
		defer errs.Close()
		opts = append(opts, pipeline.WithFailureSink(pipeline.NewJSONLSink(errs)))
	}

	ctx, span := tracing.Start(ctx, "hallucheck."+stage)
	runner := pipeline.NewRunner(appConfig.Pipeline, opts...)
	summary, err := runner.Run(ctx, stage, records, task, func(rec record.Record) error {
		return out.Write(rec)
	})
	span.SetAttr("records", len(records))
	span.End()
	span.Log(slog.Default())
	if err != nil {
		return summary, err
	}
	if err := out.Close(); err != nil {
		return summary, err
	}
	if errs != nil {
		return summary, errs.Close()
	}
	return summary, nil
}
