// Package calibration finds the score threshold that best separates
// covered from uncovered questions.
//
// Scores are expected in canonical polarity: higher means more likely to
// be uncovered (hallucinated). The positive class is "uncovered" and a
// sample is predicted positive when its score is strictly greater than the
// threshold.
package calibration

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// Result is the outcome of one threshold search.
type Result struct {
	Threshold float64 `json:"threshold"`
	F1        float64 `json:"f1"`
	Covered   int     `json:"covered"`
	Uncovered int     `json:"uncovered"`
}

type sample struct {
	score   float64
	covered bool
}

// Optimize sweeps every observed score once, in ascending order, moving the
// cutoff to just above each sample and keeping the first cutoff with the
// highest F1 for the uncovered class.
//
// Covered samples are merged before uncovered ones and the sort is stable,
// so at equal scores covered samples are always passed first. The returned
// threshold is always one of the input scores. Neither input is modified.
func Optimize(covered, uncovered []float64) (Result, error) {
	if len(covered) == 0 {
		return Result{}, fmt.Errorf("%w: no covered scores", apperrors.ErrEmptyPopulation)
	}
	if len(uncovered) == 0 {
		return Result{}, fmt.Errorf("%w: no uncovered scores", apperrors.ErrEmptyPopulation)
	}

	merged := make([]sample, 0, len(covered)+len(uncovered))
	for i, s := range covered {
		if math.IsNaN(s) {
			return Result{}, fmt.Errorf("%w: covered score %d is NaN", apperrors.ErrInvalidScore, i)
		}
		merged = append(merged, sample{score: s, covered: true})
	}
	for i, s := range uncovered {
		if math.IsNaN(s) {
			return Result{}, fmt.Errorf("%w: uncovered score %d is NaN", apperrors.ErrInvalidScore, i)
		}
		merged = append(merged, sample{score: s})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].score < merged[j].score
	})

	tp, fp, fn := len(uncovered), len(covered), 0
	best := Result{F1: -1, Covered: len(covered), Uncovered: len(uncovered)}
	for _, s := range merged {
		if s.covered {
			fp--
		} else {
			tp--
			fn++
		}
		if f1 := F1(tp, fp, fn); f1 > best.F1 {
			best.F1 = f1
			best.Threshold = s.score
		}
	}
	return best, nil
}

// F1 is TP / (TP + (FP+FN)/2), or 0 when that denominator is 0.
func F1(tp, fp, fn int) float64 {
	denom := float64(tp) + float64(fp+fn)/2
	if denom == 0 {
		return 0
	}
	return float64(tp) / denom
}
