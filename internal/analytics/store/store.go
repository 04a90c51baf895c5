// Package store persists calibration runs, evaluation runs and analytics
// snapshots in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/evaluator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/postgres"
)

// Schema is applied by Migrate. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS calibration_runs (
		id          UUID PRIMARY KEY,
		source      TEXT NOT NULL,
		polarity    TEXT NOT NULL,
		threshold   DOUBLE PRECISION NOT NULL,
		f1          DOUBLE PRECISION NOT NULL,
		covered     INTEGER NOT NULL,
		uncovered   INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS calibration_runs_source_created
		ON calibration_runs (source, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS evaluation_runs (
		id         UUID PRIMARY KEY,
		source     TEXT NOT NULL,
		threshold  DOUBLE PRECISION NOT NULL,
		report     JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// CalibrationRun is a persisted threshold. Threshold is in the raw units of
// the scorer named by Source.
type CalibrationRun struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source"`
	Polarity    string    `json:"polarity"`
	Threshold   float64   `json:"threshold"`
	F1          float64   `json:"f1"`
	Covered     int       `json:"covered"`
	Uncovered   int       `json:"uncovered"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

type EvaluationRun struct {
	ID        uuid.UUID        `json:"id"`
	Source    string           `json:"source"`
	Threshold float64          `json:"threshold"`
	Report    evaluator.Report `json:"report"`
	CreatedAt time.Time        `json:"created_at"`
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.Migrate(ctx, Schema...); err != nil {
		return fmt.Errorf("migrating store schema: %w", err)
	}
	return nil
}

// SaveCalibration assigns an ID and timestamp when unset.
func (s *Store) SaveCalibration(ctx context.Context, run *CalibrationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO calibration_runs
			(id, source, polarity, threshold, f1, covered, uncovered, fingerprint, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Source, run.Polarity, run.Threshold, run.F1,
		run.Covered, run.Uncovered, run.Fingerprint, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving calibration run: %w", err)
	}
	s.logger.Info("calibration run saved",
		"id", run.ID,
		"source", run.Source,
		"threshold", run.Threshold,
		"f1", run.F1,
	)
	return nil
}

// LatestCalibration returns the newest run for source, or ErrNotFound.
func (s *Store) LatestCalibration(ctx context.Context, source string) (*CalibrationRun, error) {
	var run CalibrationRun
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, source, polarity, threshold, f1, covered, uncovered, fingerprint, created_at
		 FROM calibration_runs WHERE source = $1
		 ORDER BY created_at DESC LIMIT 1`,
		source,
	).Scan(&run.ID, &run.Source, &run.Polarity, &run.Threshold, &run.F1,
		&run.Covered, &run.Uncovered, &run.Fingerprint, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no calibration for source %s", apperrors.ErrNotFound, source)
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest calibration: %w", err)
	}
	return &run, nil
}

func (s *Store) SaveEvaluation(ctx context.Context, run *EvaluationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshaling evaluation report: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO evaluation_runs (id, source, threshold, report, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Source, run.Threshold, report, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving evaluation run: %w", err)
	}
	s.logger.Info("evaluation run saved",
		"id", run.ID,
		"source", run.Source,
		"accuracy", run.Report.Accuracy,
		"roc_auc", run.Report.ROCAUC,
	)
	return nil
}

// ListEvaluations returns up to limit runs, newest first.
func (s *Store) ListEvaluations(ctx context.Context, limit int) ([]EvaluationRun, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, source, threshold, report, created_at
		 FROM evaluation_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	defer rows.Close()

	var runs []EvaluationRun
	for rows.Next() {
		var (
			run    EvaluationRun
			report []byte
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Threshold, &report, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning evaluation row: %w", err)
		}
		if err := json.Unmarshal(report, &run.Report); err != nil {
			s.logger.Warn("skipping corrupt evaluation report", "id", run.ID, "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_events", stats.TotalEvents)
	return nil
}

// StartPeriodicSave snapshots the aggregator every interval and once more
// on shutdown.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
