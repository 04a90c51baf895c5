package evaluator

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// ROCAUC is the probability that a random positive sample scores higher
// than a random negative one, computed from rank sums with tied scores
// sharing their average rank. It uses the scores, not the predictions.
func ROCAUC(samples []Sample) (float64, error) {
	var nPos, nNeg int
	for _, s := range samples {
		if math.IsNaN(s.Score) {
			return 0, fmt.Errorf("%w: sample %s has NaN score", apperrors.ErrInvalidScore, s.ID)
		}
		if s.Label {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, fmt.Errorf("%w: ROC-AUC needs both classes (positives=%d negatives=%d)",
			apperrors.ErrSingleClass, nPos, nNeg)
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return samples[order[a]].Score < samples[order[b]].Score
	})

	var posRankSum float64
	for i := 0; i < len(order); {
		j := i
		for j < len(order) && samples[order[j]].Score == samples[order[i]].Score {
			j++
		}
		// ranks i+1..j share their mean
		avgRank := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			if samples[order[k]].Label {
				posRankSum += avgRank
			}
		}
		i = j
	}
	u := posRankSum - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}
