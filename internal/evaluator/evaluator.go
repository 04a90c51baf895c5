// Package evaluator summarises hallucination predictions against ground
// truth: confusion matrix, per-class report, ROC-AUC and diagnostics for
// the misclassified samples.
package evaluator

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// Sample is one evaluated record. Label is the consolidated ground truth
// (true = hallucination) and Score is in canonical polarity.
type Sample struct {
	ID         string  `json:"id"`
	Label      bool    `json:"label"`
	Prediction bool    `json:"prediction"`
	Score      float64 `json:"score"`
}

type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Matrix returns the counts laid out as [[TN FP] [FN TP]], rows being the
// true class and columns the predicted class.
func (c Confusion) Matrix() [2][2]int {
	return [2][2]int{{c.TN, c.FP}, {c.FN, c.TP}}
}

func (c Confusion) Total() int { return c.TP + c.FP + c.TN + c.FN }

type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type Report struct {
	Confusion   Confusion    `json:"confusion"`
	Negative    ClassMetrics `json:"negative"`
	Positive    ClassMetrics `json:"positive"`
	Accuracy    float64      `json:"accuracy"`
	MacroAvg    ClassMetrics `json:"macro_avg"`
	WeightedAvg ClassMetrics `json:"weighted_avg"`
	ROCAUC      float64      `json:"roc_auc"`
}

// Evaluate builds the full report. It fails on empty input, on NaN scores
// and when only one ground-truth class is present.
func Evaluate(samples []Sample) (*Report, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples to evaluate", apperrors.ErrInvalidInput)
	}
	for _, s := range samples {
		if math.IsNaN(s.Score) {
			return nil, fmt.Errorf("%w: sample %s has NaN score", apperrors.ErrInvalidScore, s.ID)
		}
	}

	c := Count(samples)
	r := &Report{Confusion: c}
	r.Positive = classMetrics(c.TP, c.FP, c.FN)
	r.Negative = classMetrics(c.TN, c.FN, c.FP)
	r.Accuracy = float64(c.TP+c.TN) / float64(c.Total())
	r.MacroAvg = average(r.Negative, r.Positive, 0.5, 0.5)
	total := float64(c.Total())
	r.WeightedAvg = average(r.Negative, r.Positive,
		float64(r.Negative.Support)/total, float64(r.Positive.Support)/total)

	auc, err := ROCAUC(samples)
	if err != nil {
		return nil, err
	}
	r.ROCAUC = auc
	return r, nil
}

// Count tallies the confusion matrix, treating true as the positive class.
func Count(samples []Sample) Confusion {
	var c Confusion
	for _, s := range samples {
		switch {
		case s.Label && s.Prediction:
			c.TP++
		case s.Label && !s.Prediction:
			c.FN++
		case !s.Label && s.Prediction:
			c.FP++
		default:
			c.TN++
		}
	}
	return c
}

// classMetrics scores one class from its own point of view. Undefined
// ratios are reported as 0.
func classMetrics(tp, fp, fn int) ClassMetrics {
	m := ClassMetrics{
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
		Support:   tp + fn,
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func average(neg, pos ClassMetrics, wNeg, wPos float64) ClassMetrics {
	return ClassMetrics{
		Precision: wNeg*neg.Precision + wPos*pos.Precision,
		Recall:    wNeg*neg.Recall + wPos*pos.Recall,
		F1:        wNeg*neg.F1 + wPos*pos.F1,
		Support:   neg.Support + pos.Support,
	}
}

func ratio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
