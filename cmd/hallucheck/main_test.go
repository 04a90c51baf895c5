package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/jsonl"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("hallucheck %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

// TestOfflinePipeline drives retrieve, calibrate, tag and evaluate over a
// corpus where covered questions share a term with a document and
// uncovered ones share none.
func TestOfflinePipeline(t *testing.T) {
	dir := t.TempDir()
	corpus := writeFile(t, dir, "corpus.jsonl", `{"text": "aspirin relieves headaches"}
{"text": "insulin regulates blood sugar"}
{"text": "penicillin treats infections"}
`)
	questions := writeFile(t, dir, "questions.jsonl", `{"id": "q1", "question": "How does aspirin work?", "covered": true}
{"id": "q2", "question": "What is insulin for?", "covered": true}
{"id": "q3", "question": "Who painted the moon?", "covered": false}
{"id": "q4", "question": "Why are zebras striped?", "covered": false}
`)
	truth := writeFile(t, dir, "truth.jsonl", `{"id": "q1", "ground_truth": false}
{"id": "q2", "ground_truth": false}
{"id": "q3", "ground_truth": true}
{"id": "q4", "tag": "do not know"}
`)
	scored := filepath.Join(dir, "scored.jsonl")
	tagged := filepath.Join(dir, "tagged.jsonl")

	execute(t, "retrieve", corpus, questions, scored)
	records, err := jsonl.Read[record.Record](scored)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("scored records = %d, want 4", len(records))
	}
	if records[0].DocChunk != "aspirin relieves headaches" || *records[0].Score <= 0 {
		t.Errorf("q1 = doc %q score %v", records[0].DocChunk, *records[0].Score)
	}
	if *records[2].Score != 0 {
		t.Errorf("q3 score = %v, want 0", *records[2].Score)
	}

	out := execute(t, "calibrate", scored)
	if !strings.Contains(out, "f1=1.0000") {
		t.Errorf("calibrate output should report a perfect split:\n%s", out)
	}

	execute(t, "tag", scored, questions, tagged, "--threshold", "0.5")
	records, err = jsonl.Read[record.Record](tagged)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []bool{false, false, true, true} {
		if records[i].Prediction == nil || *records[i].Prediction != want {
			t.Errorf("record %s prediction = %v, want %v", records[i].ID, records[i].Prediction, want)
		}
	}

	out = execute(t, "evaluate", tagged, truth)
	if !strings.Contains(out, "ROC-AUC: 1.0000") {
		t.Errorf("evaluate output:\n%s", out)
	}
}

func TestBaseline(t *testing.T) {
	dir := t.TempDir()
	truth := writeFile(t, dir, "truth.jsonl", `{"id": "a", "ground_truth": false}
{"id": "b", "ground_truth": false}
{"id": "c", "ground_truth": true}
{"id": "d", "ground_truth": true}
`)
	preds := writeFile(t, dir, "factscore.jsonl", `{"init_score": 0.9, "time": 1}
{"init_score": 0.8, "time": 2}
{"init_score": 0.2, "time": 3}
{"init_score": 0.1, "time": 4}
`)
	out := execute(t, "baseline", truth, preds, "--service", "factscore")
	want := "factscore: samples=4 roc_auc=1.0000 mean_time=2.5000s"
	if !strings.Contains(out, want) {
		t.Errorf("baseline output = %q, want %q", out, want)
	}
}

func TestEvaluateDiagnosticsInRawUnits(t *testing.T) {
	dir := t.TempDir()
	predictions := writeFile(t, dir, "predictions.jsonl", `{"id": "p1", "score": 2.0, "prediction": false}
{"id": "p2", "score": 3.0, "prediction": false}
{"id": "p3", "score": 4.0, "prediction": false}
{"id": "p4", "score": 0.5, "prediction": true}
`)
	truth := writeFile(t, dir, "truth.jsonl", `{"id": "p1", "ground_truth": true}
{"id": "p2", "ground_truth": true}
{"id": "p3", "ground_truth": false}
{"id": "p4", "ground_truth": true}
`)
	out := execute(t, "evaluate", predictions, truth, "--sample-size", "1")
	want := "false_negative: count=2 mean=2.5000 stddev=0.7071"
	if !strings.Contains(out, want) {
		t.Errorf("evaluate output lacks %q:\n%s", want, out)
	}
}
