// Package stats holds the small descriptive statistics used by calibration
// reports and evaluation diagnostics.
package stats

import (
	"fmt"
	"math"
	"math/rand"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, fmt.Errorf("%w: mean of no values", apperrors.ErrInsufficientSamples)
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), nil
}

// StdDev is the sample standard deviation (n-1 denominator). It is
// undefined for fewer than two values.
func StdDev(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, fmt.Errorf("%w: standard deviation needs at least 2 values, got %d",
			apperrors.ErrInsufficientSamples, len(xs))
	}
	mean, _ := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1)), nil
}

// Sample draws k distinct elements without replacement using a seeded
// source. Asking for more elements than exist is an error, not a
// truncation. The input is not modified.
func Sample[T any](items []T, k int, seed int64) ([]T, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: negative sample size %d", apperrors.ErrInvalidInput, k)
	}
	if k > len(items) {
		return nil, fmt.Errorf("%w: requested %d of %d", apperrors.ErrSampleTooLarge, k, len(items))
	}
	pool := make([]T, len(items))
	copy(pool, items)
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k], nil
}

// Summary describes one group of scores.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

func Summarize(xs []float64) (Summary, error) {
	mean, err := Mean(xs)
	if err != nil {
		return Summary{}, err
	}
	sd, err := StdDev(xs)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Count: len(xs), Mean: mean, StdDev: sd}, nil
}
