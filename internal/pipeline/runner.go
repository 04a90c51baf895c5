// Package pipeline moves JSONL records through enrichment stages. Stages
// that call remote collaborators run through a Runner, which bounds
// concurrency per batch and skips records that fail; pure stages are plain
// functions whose errors abort the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/tracing"
)

// Task enriches one record. It receives a private copy and returns the
// record to emit.
type Task func(ctx context.Context, rec record.Record) (record.Record, error)

// FailureSink receives records that a Task rejected.
type FailureSink interface {
	Fail(rec record.Record, err error) error
}

// Observer is notified once per processed record. *metrics.Metrics
// implements it.
type Observer interface {
	ObserveRecord(stage string, ok bool)
}

type Summary struct {
	Batches   int `json:"batches"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func (s *Summary) add(o Summary) {
	s.Batches += o.Batches
	s.Processed += o.Processed
	s.Succeeded += o.Succeeded
	s.Failed += o.Failed
}

type RunnerOption func(*Runner)

func WithObserver(o Observer) RunnerOption { return func(r *Runner) { r.observer = o } }

func WithFailureSink(s FailureSink) RunnerOption { return func(r *Runner) { r.sink = s } }

func WithLogger(l *slog.Logger) RunnerOption { return func(r *Runner) { r.logger = l } }

// Runner executes a Task over records in synchronous batches: at most
// BatchSize records are in flight and a batch starts only when the previous
// one has finished. Output order matches input order.
type Runner struct {
	batchSize int
	limiter   *rate.Limiter
	observer  Observer
	sink      FailureSink
	logger    *slog.Logger
}

func NewRunner(cfg config.PipelineConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		batchSize: cfg.BatchSize,
		logger:    slog.Default().With("component", "pipeline"),
	}
	if r.batchSize <= 0 {
		r.batchSize = 1
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run applies task to every record and passes each successful result to
// emit in input order. A failing record is logged, sent to the failure sink
// and skipped. Run itself fails only when ctx ends, emit fails or the sink
// fails.
func (r *Runner) Run(ctx context.Context, stage string, records []record.Record, task Task, emit func(record.Record) error) (Summary, error) {
	ctx, span := tracing.Start(ctx, stage)
	defer span.End()
	log := r.logger.With("stage", stage)
	start := time.Now()

	var total Summary
	for offset := 0; offset < len(records); offset += r.batchSize {
		end := min(offset+r.batchSize, len(records))
		batch, err := r.runBatch(ctx, stage, records[offset:end], task, emit)
		total.add(batch)
		if err != nil {
			span.SetAttr("error", err.Error())
			return total, err
		}
		log.Debug("batch finished",
			"batch", total.Batches,
			"processed", total.Processed,
			"of", len(records),
		)
	}
	span.SetAttr("processed", total.Processed)
	span.SetAttr("failed", total.Failed)
	log.Info("stage finished",
		"batches", total.Batches,
		"succeeded", total.Succeeded,
		"failed", total.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return total, nil
}

func (r *Runner) runBatch(ctx context.Context, stage string, batch []record.Record, task Task, emit func(record.Record) error) (Summary, error) {
	out := make([]*record.Record, len(batch))
	errs := make([]error, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(batch))
	for i := range batch {
		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			res, err := task(gctx, batch[i].Clone())
			if err != nil {
				errs[i] = err
				return nil
			}
			out[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("stage %s interrupted: %w", stage, err)
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, fmt.Errorf("stage %s interrupted: %w", stage, err)
	}

	s := Summary{Batches: 1, Processed: len(batch)}
	for i := range batch {
		ok := errs[i] == nil
		if r.observer != nil {
			r.observer.ObserveRecord(stage, ok)
		}
		if !ok {
			s.Failed++
			r.logger.Warn("record skipped", "stage", stage, "id", batch[i].ID.String(), "error", errs[i])
			if r.sink != nil {
				if err := r.sink.Fail(batch[i], errs[i]); err != nil {
					return s, fmt.Errorf("recording failure of %s: %w", batch[i].ID, err)
				}
			}
			continue
		}
		s.Succeeded++
		if err := emit(*out[i]); err != nil {
			return s, fmt.Errorf("emitting %s: %w", batch[i].ID, err)
		}
	}
	return s, nil
}
