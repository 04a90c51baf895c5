package evaluator

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

func scenario() []Sample {
	return []Sample{
		{ID: "q1", Label: true, Prediction: true, Score: 0.9},
		{ID: "q2", Label: false, Prediction: false, Score: 0.1},
		{ID: "q3", Label: true, Prediction: false, Score: 0.4},
		{ID: "q4", Label: false, Prediction: false, Score: 0.2},
	}
}

func TestEvaluateScenario(t *testing.T) {
	r, err := Evaluate(scenario())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if diff := cmp.Diff(Confusion{TP: 1, FP: 0, TN: 2, FN: 1}, r.Confusion); diff != "" {
		t.Errorf("confusion (-want +got):\n%s", diff)
	}
	approx := cmpopts.EquateApprox(0, 1e-12)
	wantPos := ClassMetrics{Precision: 1, Recall: 0.5, F1: 2.0 / 3.0, Support: 2}
	if diff := cmp.Diff(wantPos, r.Positive, approx); diff != "" {
		t.Errorf("positive class (-want +got):\n%s", diff)
	}
	wantNeg := ClassMetrics{Precision: 2.0 / 3.0, Recall: 1, F1: 0.8, Support: 2}
	if diff := cmp.Diff(wantNeg, r.Negative, approx); diff != "" {
		t.Errorf("negative class (-want +got):\n%s", diff)
	}
	if r.Accuracy != 0.75 {
		t.Errorf("Accuracy = %v, want 0.75", r.Accuracy)
	}
	if r.ROCAUC != 1 {
		t.Errorf("ROCAUC = %v, want 1", r.ROCAUC)
	}
	if r.Confusion.Matrix() != [2][2]int{{2, 0}, {1, 1}} {
		t.Errorf("Matrix() = %v", r.Confusion.Matrix())
	}
}

func TestEvaluateConsistentWithConfusion(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	samples := make([]Sample, 300)
	for i := range samples {
		label := rng.Intn(2) == 0
		score := rng.NormFloat64()
		if label {
			score += 0.8
		}
		samples[i] = Sample{ID: "s", Label: label, Prediction: score > 0.4, Score: score}
	}
	r, err := Evaluate(samples)
	if err != nil {
		t.Fatal(err)
	}
	c := r.Confusion
	precision := float64(c.TP) / float64(c.TP+c.FP)
	recall := float64(c.TP) / float64(c.TP+c.FN)
	if math.Abs(precision-r.Positive.Precision) > 1e-12 || math.Abs(recall-r.Positive.Recall) > 1e-12 {
		t.Errorf("report P/R %v/%v, recomputed %v/%v", r.Positive.Precision, r.Positive.Recall, precision, recall)
	}
	if c.Total() != len(samples) {
		t.Errorf("Total() = %d, want %d", c.Total(), len(samples))
	}
	wantMacro := (r.Positive.F1 + r.Negative.F1) / 2
	if math.Abs(r.MacroAvg.F1-wantMacro) > 1e-12 {
		t.Errorf("macro F1 = %v, want %v", r.MacroAvg.F1, wantMacro)
	}
}

func TestEvaluateZeroDivision(t *testing.T) {
	r, err := Evaluate([]Sample{
		{ID: "a", Label: true, Prediction: false, Score: 1},
		{ID: "b", Label: false, Prediction: false, Score: 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Positive.Precision != 0 || r.Positive.F1 != 0 {
		t.Errorf("positive class with no predictions = %+v, want zeros", r.Positive)
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    error
	}{
		{"empty", nil, apperrors.ErrInvalidInput},
		{"nan", []Sample{{ID: "a", Label: true, Score: math.NaN()}, {ID: "b"}}, apperrors.ErrInvalidScore},
		{"single class", []Sample{{ID: "a", Label: true}, {ID: "b", Label: true}}, apperrors.ErrSingleClass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Evaluate(tt.samples); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		labels []bool
		scores []float64
		want   float64
	}{
		{"sklearn example", []bool{false, false, true, true}, []float64{0.1, 0.4, 0.35, 0.8}, 0.75},
		{"perfect", []bool{false, true}, []float64{0, 1}, 1},
		{"inverted", []bool{false, true}, []float64{1, 0}, 0},
		{"all tied", []bool{false, true, false, true}, []float64{2, 2, 2, 2}, 0.5},
		{"partial tie", []bool{false, true, true}, []float64{1, 1, 2}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]Sample, len(tt.labels))
			for i := range samples {
				samples[i] = Sample{Label: tt.labels[i], Score: tt.scores[i]}
			}
			got, err := ROCAUC(samples)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ROCAUC = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestROCAUCMatchesPairCount(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	samples := make([]Sample, 120)
	for i := range samples {
		samples[i] = Sample{Label: rng.Intn(3) == 0, Score: float64(rng.Intn(10))}
	}
	var wins float64
	var pairs int
	for _, p := range samples {
		if !p.Label {
			continue
		}
		for _, n := range samples {
			if n.Label {
				continue
			}
			pairs++
			switch {
			case p.Score > n.Score:
				wins++
			case p.Score == n.Score:
				wins += 0.5
			}
		}
	}
	got, err := ROCAUC(samples)
	if err != nil {
		t.Fatal(err)
	}
	if want := wins / float64(pairs); math.Abs(got-want) > 1e-12 {
		t.Errorf("ROCAUC = %v, pair count = %v", got, want)
	}
}

func TestReportString(t *testing.T) {
	r, err := Evaluate(scenario())
	if err != nil {
		t.Fatal(err)
	}
	out := r.String()
	for _, want := range []string{"[[2 0]\n [1 1]]", "precision", "macro avg", "weighted avg", "ROC-AUC: 1.0000"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
