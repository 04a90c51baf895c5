package evaluator

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/stats"
)

type Outcome int

const (
	FalseNegative Outcome = iota
	FalsePositive
)

func (o Outcome) String() string {
	switch o {
	case FalseNegative:
		return "false_negative"
	case FalsePositive:
		return "false_positive"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) matches(s Sample) bool {
	switch o {
	case FalseNegative:
		return s.Label && !s.Prediction
	case FalsePositive:
		return !s.Label && s.Prediction
	default:
		return false
	}
}

// Diagnostics describes the scores of one kind of misclassification.
type Diagnostics struct {
	Outcome    string   `json:"outcome"`
	Count      int      `json:"count"`
	Mean       float64  `json:"mean"`
	StdDev     float64  `json:"stddev"`
	SampledIDs []string `json:"sampled_ids"`
}

// Diagnose summarises the samples matching outcome and draws sampleSize of
// their IDs with the given seed. Fewer than two matching samples, or a
// sampleSize larger than the match count, is an error.
func Diagnose(samples []Sample, outcome Outcome, sampleSize int, seed int64) (*Diagnostics, error) {
	var scores []float64
	var ids []string
	for _, s := range samples {
		if outcome.matches(s) {
			scores = append(scores, s.Score)
			ids = append(ids, s.ID)
		}
	}
	summary, err := stats.Summarize(scores)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", outcome, err)
	}
	sampled, err := stats.Sample(ids, sampleSize, seed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", outcome, err)
	}
	return &Diagnostics{
		Outcome:    outcome.String(),
		Count:      summary.Count,
		Mean:       summary.Mean,
		StdDev:     summary.StdDev,
		SampledIDs: sampled,
	}, nil
}
