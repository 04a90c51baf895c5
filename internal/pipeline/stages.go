package pipeline

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/calibration"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/evaluator"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/labels"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/retriever"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// Retriever is satisfied by *retriever.Retriever.
type Retriever interface {
	Retrieve(question string) (retriever.Result, error)
}

// EnrichWithRetrieval sets score and doc_chunk on a copy of every record
// from the best document for its question. Any error aborts the run.
func EnrichWithRetrieval(records []record.Record, r Retriever) ([]record.Record, error) {
	out := make([]record.Record, len(records))
	for i, rec := range records {
		res, err := r.Retrieve(rec.Question)
		if err != nil {
			return nil, fmt.Errorf("retrieving for record %s: %w", rec.ID, err)
		}
		c := rec.Clone()
		c.Score = record.Float(res.Score)
		c.DocChunk = res.Document
		out[i] = c
	}
	return out, nil
}

// Align checks that two streams hold the same IDs in the same order.
func Align(left, right []record.Record) error {
	if len(left) != len(right) {
		return fmt.Errorf("%w: streams have %d and %d records", apperrors.ErrIDMismatch, len(left), len(right))
	}
	for i := range left {
		if left[i].ID != right[i].ID {
			return fmt.Errorf("%w: position %d has %s and %s",
				apperrors.ErrIDMismatch, i, describeID(left[i].ID), describeID(right[i].ID))
		}
	}
	return nil
}

func describeID(id record.ID) string {
	if id.Numeric {
		return id.Value
	}
	return fmt.Sprintf("%q", id.Value)
}

// Tag copies each retrieval score onto the matching generation record and
// adds the prediction from clf.
func Tag(scored, generated []record.Record, clf *classifier.Classifier) ([]record.Record, error) {
	if err := Align(scored, generated); err != nil {
		return nil, err
	}
	out := make([]record.Record, len(generated))
	for i := range generated {
		if scored[i].Score == nil {
			return nil, fmt.Errorf("%w: record %s has no score", apperrors.ErrInvalidScore, scored[i].ID)
		}
		score := *scored[i].Score
		pred, _, err := clf.Predict(score)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", scored[i].ID, err)
		}
		c := generated[i].Clone()
		c.Score = record.Float(score)
		c.Prediction = record.Bool(pred)
		out[i] = c
	}
	return out, nil
}

// EvaluationSamples pairs predictions with consolidated ground truth.
// Scores are converted to canonical polarity.
func EvaluationSamples(predictions, truth []record.Record, pol classifier.Polarity) ([]evaluator.Sample, error) {
	if err := Align(predictions, truth); err != nil {
		return nil, err
	}
	samples := make([]evaluator.Sample, len(predictions))
	for i, p := range predictions {
		if p.Prediction == nil {
			return nil, fmt.Errorf("%w: record %s has no prediction", apperrors.ErrInvalidInput, p.ID)
		}
		if p.Score == nil {
			return nil, fmt.Errorf("%w: record %s has no score", apperrors.ErrInvalidScore, p.ID)
		}
		label, err := labels.Consolidate(truth[i])
		if err != nil {
			return nil, err
		}
		samples[i] = evaluator.Sample{
			ID:         p.ID.String(),
			Label:      label,
			Prediction: *p.Prediction,
			Score:      pol.Normalize(*p.Score),
		}
	}
	return samples, nil
}

// CalibrationSet extracts canonical scores split by the covered flag.
func CalibrationSet(records []record.Record, pol classifier.Polarity) ([]calibration.LabeledScore, error) {
	out := make([]calibration.LabeledScore, len(records))
	for i, rec := range records {
		if rec.Covered == nil {
			return nil, fmt.Errorf("%w: record %s has no covered flag", apperrors.ErrInvalidInput, rec.ID)
		}
		if rec.Score == nil || math.IsNaN(*rec.Score) {
			return nil, fmt.Errorf("%w: record %s has no usable score", apperrors.ErrInvalidScore, rec.ID)
		}
		out[i] = calibration.LabeledScore{Score: pol.Normalize(*rec.Score), Covered: *rec.Covered}
	}
	return out, nil
}
