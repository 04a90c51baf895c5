package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
)

var baselineFlags struct {
	service     string
	sampleTimes string
}

var baselineCmd = &cobra.Command{
	Use:   "baseline <truth> <pred>",
	Short: "ROC-AUC and mean response time of an external hallucination scorer",
	Long: `Baseline compares the scores of an external detector (factscore or
selfcheck) with ground truth after converting them to a common polarity.
For selfcheck, pass the generation file with --sample-times so the time
spent sampling reference answers is included in the response time.`,
	Args: cobra.ExactArgs(2),
	RunE: runBaseline,
}

func init() {
	f := baselineCmd.Flags()
	f.StringVar(&baselineFlags.service, "service", classifier.SourceFactScore, "Scoring service (factscore, selfcheck)")
	f.StringVar(&baselineFlags.sampleTimes, "sample-times", "", "Generation records whose generation_time adds to selfcheck response times")
}

func runBaseline(cmd *cobra.Command, args []string) error {
	truth, err := readRecords(args[0])
	if err != nil {
		return err
	}
	preds, err := readRecords(args[1])
	if err != nil {
		return err
	}

	var sampleTimes []float64
	if baselineFlags.sampleTimes != "" {
		if baselineFlags.service != classifier.SourceSelfCheck {
			return fmt.Errorf("--sample-times only applies to --service %s", classifier.SourceSelfCheck)
		}
		generated, err := readRecords(baselineFlags.sampleTimes)
		if err != nil {
			return err
		}
		sampleTimes, err = pipeline.SelfCheckSampleTimes(generated)
		if err != nil {
			return err
		}
	}

	res, err := pipeline.EvaluateBaseline(truth, preds, baselineFlags.service, sampleTimes)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: samples=%d roc_auc=%.4f mean_time=%.4fs\n",
		res.Source, res.Samples, res.ROCAUC, res.MeanTime)
	return nil
}
