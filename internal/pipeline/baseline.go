package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/evaluator"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/labels"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/stats"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// Fields written by the external scoring services.
const (
	FieldFactScore = "init_score"
	FieldSelfCheck = "avg_score"
	FieldTime      = "time"
)

// selfCheckSampleShare is the part of the generation time spent producing
// the reference samples: three of the four generations.
const selfCheckSampleShare = 3.0 / 4.0

func ScoreField(source string) (string, error) {
	switch source {
	case classifier.SourceFactScore:
		return FieldFactScore, nil
	case classifier.SourceSelfCheck:
		return FieldSelfCheck, nil
	default:
		return "", fmt.Errorf("%w: no baseline score field for source %q", apperrors.ErrInvalidInput, source)
	}
}

type BaselineResult struct {
	Source   string  `json:"source"`
	Samples  int     `json:"samples"`
	ROCAUC   float64 `json:"roc_auc"`
	MeanTime float64 `json:"mean_time"`
}

// EvaluateBaseline scores an external detector against ground truth. The
// two streams are aligned by position. sampleTimes, when non-nil, is added
// to each record's response time.
func EvaluateBaseline(truth, preds []record.Record, source string, sampleTimes []float64) (*BaselineResult, error) {
	if len(truth) != len(preds) {
		return nil, fmt.Errorf("%w: %d ground-truth records but %d predictions",
			apperrors.ErrIDMismatch, len(truth), len(preds))
	}
	if sampleTimes != nil && len(sampleTimes) != len(preds) {
		return nil, fmt.Errorf("%w: %d sample times for %d predictions",
			apperrors.ErrInvalidInput, len(sampleTimes), len(preds))
	}
	field, err := ScoreField(source)
	if err != nil {
		return nil, err
	}
	pol, err := classifier.PolarityOf(source)
	if err != nil {
		return nil, err
	}

	samples := make([]evaluator.Sample, len(preds))
	times := make([]float64, len(preds))
	for i, p := range preds {
		score, err := extraFloat(p, field)
		if err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
		elapsed, err := extraFloat(p, FieldTime)
		if err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
		label, err := labels.Consolidate(truth[i])
		if err != nil {
			return nil, err
		}
		samples[i] = evaluator.Sample{ID: truth[i].ID.String(), Label: label, Score: pol.Normalize(score)}
		times[i] = elapsed
		if sampleTimes != nil {
			times[i] += sampleTimes[i]
		}
	}

	auc, err := evaluator.ROCAUC(samples)
	if err != nil {
		return nil, err
	}
	meanTime, err := stats.Mean(times)
	if err != nil {
		return nil, err
	}
	return &BaselineResult{Source: source, Samples: len(samples), ROCAUC: auc, MeanTime: meanTime}, nil
}

// SelfCheckSampleTimes attributes to each record the share of its
// generation time spent on reference samples.
func SelfCheckSampleTimes(records []record.Record) ([]float64, error) {
	out := make([]float64, len(records))
	for i, rec := range records {
		if rec.GenerationTime == nil {
			return nil, fmt.Errorf("%w: record %s has no generation_time", apperrors.ErrInvalidInput, rec.ID)
		}
		out[i] = *rec.GenerationTime * selfCheckSampleShare
	}
	return out, nil
}

func extraFloat(rec record.Record, field string) (float64, error) {
	raw, ok := rec.Extra(field)
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", apperrors.ErrInvalidInput, field)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || string(raw) == "null" {
		return 0, fmt.Errorf("%w: field %q is %s", apperrors.ErrInvalidScore, field, raw)
	}
	return v, nil
}
