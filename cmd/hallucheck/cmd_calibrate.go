package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/calibration"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/stats"
)

var calibrateFlags struct {
	persist bool
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <scored>",
	Short: "Find the F1-optimal hallucination threshold for scored questions",
	Long: `Calibrate splits scored records by their "covered" flag, reports the score
distribution of each group and searches for the threshold that maximises F1
on the uncovered class. The threshold is printed in raw score units.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().BoolVar(&calibrateFlags.persist, "persist", false, "Store the calibration run in Postgres")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	pol, err := retrievalPolarity()
	if err != nil {
		return err
	}
	records, err := readRecords(args[0])
	if err != nil {
		return err
	}
	samples, err := pipeline.CalibrationSet(records, pol)
	if err != nil {
		return err
	}
	covered, uncovered := calibration.Split(samples)

	out := cmd.OutOrStdout()
	for _, group := range []struct {
		name   string
		scores []float64
	}{{"covered", covered}, {"uncovered", uncovered}} {
		// Group statistics are reported in raw units.
		summary, err := stats.Summarize(pol.NormalizeAll(group.scores))
		if err != nil {
			return fmt.Errorf("%s scores: %w", group.name, err)
		}
		fmt.Fprintf(out, "%-9s n=%d mean=%.4f stddev=%.4f\n", group.name, summary.Count, summary.Mean, summary.StdDev)
	}

	res, err := calibration.Optimize(covered, uncovered)
	if err != nil {
		return err
	}
	clf, err := classifier.New(res.Threshold, pol)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "threshold=%g f1=%.4f polarity=%s\n", clf.RawThreshold(), res.F1, pol)

	if !calibrateFlags.persist {
		return nil
	}
	s, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()
	run := &store.CalibrationRun{
		Source:      classifier.SourceRetrieval,
		Polarity:    string(pol),
		Threshold:   clf.RawThreshold(),
		F1:          res.F1,
		Covered:     res.Covered,
		Uncovered:   res.Uncovered,
		Fingerprint: calibration.Fingerprint(covered, uncovered),
	}
	if err := s.SaveCalibration(cmd.Context(), run); err != nil {
		return err
	}
	fmt.Fprintf(out, "persisted calibration %s\n", run.ID)
	return nil
}
