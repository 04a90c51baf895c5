package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
)

var tagFlags struct {
	threshold float64
}

var tagCmd = &cobra.Command{
	Use:   "tag <retrieval> <rag> <out>",
	Short: "Predict hallucinations for generated answers from retrieval scores",
	Long: `Tag aligns retrieval output with generation records by id and position,
copies each retrieval score onto its generation record and adds the
"prediction" flag from the raw threshold.`,
	Args: cobra.ExactArgs(3),
	RunE: runTag,
}

func init() {
	tagCmd.Flags().Float64Var(&tagFlags.threshold, "threshold", 0, "Raw score threshold (from calibrate)")
	_ = tagCmd.MarkFlagRequired("threshold")
}

func runTag(_ *cobra.Command, args []string) error {
	pol, err := retrievalPolarity()
	if err != nil {
		return err
	}
	clf, err := classifier.FromRawThreshold(tagFlags.threshold, pol)
	if err != nil {
		return err
	}
	scored, err := readRecords(args[0])
	if err != nil {
		return err
	}
	generated, err := readRecords(args[1])
	if err != nil {
		return err
	}
	tagged, err := pipeline.Tag(scored, generated, clf)
	if err != nil {
		return fmt.Errorf("tagging %s with %s: %w", args[1], args[0], err)
	}
	return writeRecords(args[2], tagged)
}
