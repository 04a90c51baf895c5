package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/llm"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
)

var labelCmd = &cobra.Command{
	Use:   "label <in> <out> <errors>",
	Short: "Tag ground truth for generated answers with the LLM judge",
	Long: `Label asks the judge model whether the first generation of every record
hallucinates, using a prompt that depends on the question's split, and
writes "tag" and "ground_truth". Records whose verdict cannot be obtained
or parsed are written to the errors file with an "error" field.`,
	Args: cobra.ExactArgs(3),
	RunE: runLabel,
}

func runLabel(cmd *cobra.Command, args []string) error {
	records, err := readRecords(args[0])
	if err != nil {
		return err
	}
	c := newCollaboratorRun()
	defer c.close()

	task := pipeline.LabelStage(llm.NewJudge(c.client))
	summary, err := c.run(cmd.Context(), "label", records, task, args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "labeled %d of %d records (%d written to %s)\n",
		summary.Succeeded, summary.Processed, summary.Failed, args[2])
	return nil
}
