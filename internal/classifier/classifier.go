// Package classifier turns a continuous score into a hallucination
// prediction.
//
// Every component downstream of the scorers works in one canonical
// polarity: a higher score means a higher likelihood of hallucination.
// Scores from sources that grow with confidence (BM25 relevance, FactScore)
// are negated at the boundary by Polarity.Normalize.
package classifier

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

type Polarity string

const (
	HigherIsHallucination Polarity = "higher_is_hallucination"
	HigherIsConfident     Polarity = "higher_is_confident"
)

// Scoring sources and the polarity of the scores they emit.
const (
	SourceRetrieval = "retrieval"
	SourceFactScore = "factscore"
	SourceSelfCheck = "selfcheck"
)

var sourcePolarity = map[string]Polarity{
	SourceRetrieval: HigherIsConfident,
	SourceFactScore: HigherIsConfident,
	SourceSelfCheck: HigherIsHallucination,
}

// PolarityOf returns the declared polarity of a scoring source.
func PolarityOf(source string) (Polarity, error) {
	p, ok := sourcePolarity[source]
	if !ok {
		return "", fmt.Errorf("%w: unknown scoring source %q", apperrors.ErrInvalidInput, source)
	}
	return p, nil
}

func ParsePolarity(s string) (Polarity, error) {
	switch p := Polarity(s); p {
	case HigherIsHallucination, HigherIsConfident:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown polarity %q", apperrors.ErrInvalidInput, s)
	}
}

// Normalize maps a raw score into canonical polarity. Negation is its own
// inverse, so Normalize also maps canonical values back to raw units.
func (p Polarity) Normalize(score float64) float64 {
	if p == HigherIsConfident {
		return -score
	}
	return score
}

// NormalizeAll returns a canonical copy of scores.
func (p Polarity) NormalizeAll(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = p.Normalize(s)
	}
	return out
}

// Classify reports whether a canonical score predicts hallucination. The
// comparison is strict: a score equal to the threshold is negative.
func Classify(score, threshold float64) (bool, error) {
	if math.IsNaN(score) {
		return false, fmt.Errorf("%w: score is NaN", apperrors.ErrInvalidScore)
	}
	if math.IsNaN(threshold) {
		return false, fmt.Errorf("%w: threshold is NaN", apperrors.ErrInvalidScore)
	}
	return score > threshold, nil
}

// Classifier applies a fitted canonical threshold to raw scores of a
// single polarity.
type Classifier struct {
	Threshold float64  `json:"threshold"`
	Polarity  Polarity `json:"polarity"`
}

func New(threshold float64, polarity Polarity) (*Classifier, error) {
	if _, err := ParsePolarity(string(polarity)); err != nil {
		return nil, err
	}
	if math.IsNaN(threshold) {
		return nil, fmt.Errorf("%w: threshold is NaN", apperrors.ErrInvalidScore)
	}
	return &Classifier{Threshold: threshold, Polarity: polarity}, nil
}

// FromRawThreshold builds a Classifier from a cutoff expressed in the
// scorer's own units.
func FromRawThreshold(raw float64, polarity Polarity) (*Classifier, error) {
	return New(polarity.Normalize(raw), polarity)
}

// Predict normalizes a raw score and classifies it. It returns the
// canonical score alongside the prediction.
func (c *Classifier) Predict(raw float64) (bool, float64, error) {
	canonical := c.Polarity.Normalize(raw)
	pred, err := Classify(canonical, c.Threshold)
	return pred, canonical, err
}

// RawThreshold reports the threshold in the scorer's units. For
// higher_is_confident sources a raw score strictly below it is positive.
func (c *Classifier) RawThreshold() float64 {
	return c.Polarity.Normalize(c.Threshold)
}
