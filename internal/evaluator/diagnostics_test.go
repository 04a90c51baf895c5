package evaluator

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

func diagnosticSamples() []Sample {
	return []Sample{
		{ID: "fn1", Label: true, Prediction: false, Score: 1},
		{ID: "fn2", Label: true, Prediction: false, Score: 3},
		{ID: "fn3", Label: true, Prediction: false, Score: 5},
		{ID: "fp1", Label: false, Prediction: true, Score: 8},
		{ID: "tp", Label: true, Prediction: true, Score: 9},
		{ID: "tn", Label: false, Prediction: false, Score: 0},
	}
}

func TestDiagnoseFalseNegatives(t *testing.T) {
	d, err := Diagnose(diagnosticSamples(), FalseNegative, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != "false_negative" || d.Count != 3 || d.Mean != 3 || d.StdDev != 2 {
		t.Errorf("Diagnose = %+v", d)
	}
	if len(d.SampledIDs) != 2 {
		t.Fatalf("SampledIDs = %v, want 2 ids", d.SampledIDs)
	}
	for _, id := range d.SampledIDs {
		if id != "fn1" && id != "fn2" && id != "fn3" {
			t.Errorf("sampled id %q is not a false negative", id)
		}
	}
	again, err := Diagnose(diagnosticSamples(), FalseNegative, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(d, again); diff != "" {
		t.Errorf("same seed, different diagnostics:\n%s", diff)
	}
}

func TestDiagnoseErrors(t *testing.T) {
	if _, err := Diagnose(diagnosticSamples(), FalsePositive, 0, 1); !errors.Is(err, apperrors.ErrInsufficientSamples) {
		t.Errorf("single false positive error = %v, want ErrInsufficientSamples", err)
	}
	if _, err := Diagnose(diagnosticSamples(), FalseNegative, 4, 1); !errors.Is(err, apperrors.ErrSampleTooLarge) {
		t.Errorf("oversized sample error = %v, want ErrSampleTooLarge", err)
	}
}

func TestDiagnoseZeroSampleSize(t *testing.T) {
	d, err := Diagnose(diagnosticSamples(), FalseNegative, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.SampledIDs) != 0 {
		t.Errorf("SampledIDs = %v, want none", d.SampledIDs)
	}
	if math.IsNaN(d.StdDev) {
		t.Error("StdDev is NaN")
	}
}
