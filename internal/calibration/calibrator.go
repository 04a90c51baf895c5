package calibration

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"math"
	"sync"
)

// LabeledScore is one calibration sample in canonical polarity.
type LabeledScore struct {
	Score   float64 `json:"score"`
	Covered bool    `json:"covered"`
}

// Split partitions samples into covered and uncovered score populations,
// preserving input order.
func Split(samples []LabeledScore) (covered, uncovered []float64) {
	for _, s := range samples {
		if s.Covered {
			covered = append(covered, s.Score)
		} else {
			uncovered = append(uncovered, s.Score)
		}
	}
	return covered, uncovered
}

// Fingerprint identifies a calibration set by the exact bits of its scores.
// Population sizes are hashed too, so moving a score between populations
// changes the fingerprint.
func Fingerprint(covered, uncovered []float64) string {
	h := sha256.New()
	var buf [8]byte
	for _, population := range [][]float64{covered, uncovered} {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(population)))
		h.Write(buf[:])
		for _, s := range population {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Calibrator caches the threshold for the most recent calibration set and
// only reruns Optimize when the set changes.
type Calibrator struct {
	mu          sync.Mutex
	fingerprint string
	result      Result
	fitted      bool
	logger      *slog.Logger
}

func NewCalibrator() *Calibrator {
	return &Calibrator{
		logger: slog.Default().With("component", "calibrator"),
	}
}

// Fit returns the threshold for the given populations. The boolean reports
// whether the search actually ran.
func (c *Calibrator) Fit(covered, uncovered []float64) (Result, bool, error) {
	res, _, ran, err := c.FitAndApply(covered, uncovered, nil)
	return res, ran, err
}

// FitAndApply is Fit followed by apply, with both under the calibrator's
// lock, so concurrent refits install their results in the order the
// calibrator accepted them. apply receives the result and the fingerprint
// of the set it was fitted on. A failing apply leaves the cache untouched.
func (c *Calibrator) FitAndApply(covered, uncovered []float64, apply func(Result, string) error) (Result, string, bool, error) {
	fp := Fingerprint(covered, uncovered)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fitted && c.fingerprint == fp {
		if apply != nil {
			if err := apply(c.result, fp); err != nil {
				return Result{}, "", false, err
			}
		}
		return c.result, fp, false, nil
	}
	res, err := Optimize(covered, uncovered)
	if err != nil {
		return Result{}, "", false, err
	}
	if apply != nil {
		if err := apply(res, fp); err != nil {
			return Result{}, "", false, err
		}
	}
	c.fingerprint = fp
	c.result = res
	c.fitted = true
	c.logger.Info("threshold calibrated",
		"threshold", res.Threshold,
		"f1", res.F1,
		"covered", res.Covered,
		"uncovered", res.Uncovered,
		"fingerprint", fp[:12],
	)
	return res, fp, true, nil
}

// Current returns the cached result, if any.
func (c *Calibrator) Current() (Result, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.fingerprint, c.fitted
}
