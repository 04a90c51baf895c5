package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/evaluator"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
)

var evaluateFlags struct {
	sampleSize int
	seed       int64
	threshold  float64
	persist    bool
	jsonOutput bool
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <predictions> <truth>",
	Short: "Score predictions against consolidated ground truth",
	Long: `Evaluate aligns prediction records with ground-truth records, consolidates
labels ("do not know" counts as hallucinated) and prints the confusion
matrix, per-class report and ROC-AUC, followed by score statistics and a
seeded sample of false negatives and false positives.`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.IntVar(&evaluateFlags.sampleSize, "sample-size", -1, "Misclassified IDs to sample per outcome (default evaluation.sampleSize)")
	f.Int64Var(&evaluateFlags.seed, "seed", 0, "Sampling seed (default evaluation.seed)")
	f.Float64Var(&evaluateFlags.threshold, "threshold", 0, "Raw threshold the predictions were made with (recorded with --persist)")
	f.BoolVar(&evaluateFlags.persist, "persist", false, "Store the report in Postgres")
	f.BoolVar(&evaluateFlags.jsonOutput, "json", false, "Print the report as JSON")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evaluateFlags.persist && !cmd.Flags().Changed("threshold") {
		return fmt.Errorf("--persist requires --threshold")
	}
	sampleSize := appConfig.Evaluation.SampleSize
	if evaluateFlags.sampleSize >= 0 {
		sampleSize = evaluateFlags.sampleSize
	}
	seed := appConfig.Evaluation.Seed
	if cmd.Flags().Changed("seed") {
		seed = evaluateFlags.seed
	}

	pol, err := retrievalPolarity()
	if err != nil {
		return err
	}
	predictions, err := readRecords(args[0])
	if err != nil {
		return err
	}
	truth, err := readRecords(args[1])
	if err != nil {
		return err
	}
	samples, err := pipeline.EvaluationSamples(predictions, truth, pol)
	if err != nil {
		return err
	}
	report, err := evaluator.Evaluate(samples)
	if err != nil {
		return err
	}

	var diagnostics []*evaluator.Diagnostics
	for _, outcome := range []evaluator.Outcome{evaluator.FalseNegative, evaluator.FalsePositive} {
		d, err := evaluator.Diagnose(samples, outcome, sampleSize, seed)
		if err != nil {
			slog.Warn("diagnostics unavailable", "outcome", outcome, "error", err)
			continue
		}
		// Report in raw score units, like calibrate. Normalize is its own
		// inverse and leaves the stddev unchanged.
		d.Mean = pol.Normalize(d.Mean)
		diagnostics = append(diagnostics, d)
	}

	out := cmd.OutOrStdout()
	if evaluateFlags.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Report      *evaluator.Report        `json:"report"`
			Diagnostics []*evaluator.Diagnostics `json:"diagnostics"`
		}{report, diagnostics}); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, report)
		for _, d := range diagnostics {
			fmt.Fprintln(out, d)
		}
	}

	if !evaluateFlags.persist {
		return nil
	}
	s, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()
	run := &store.EvaluationRun{
		Source:    classifier.SourceRetrieval,
		Threshold: evaluateFlags.threshold,
		Report:    *report,
	}
	if err := s.SaveEvaluation(cmd.Context(), run); err != nil {
		return err
	}
	fmt.Fprintf(out, "persisted evaluation %s\n", run.ID)
	return nil
}
