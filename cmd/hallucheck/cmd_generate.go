package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/llm"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
)

var generateFlags struct {
	errorsPath string
}

var generateCmd = &cobra.Command{
	Use:   "generate <corpus> <in> <out>",
	Short: "Simulate RAG answers through the LLM collaborator",
	Long: `Generate answers every question from a context passage. Covered questions
keep their own doc_chunk; pubmed and surreal questions get the best
passage retrieved from the corpus. Each record receives the sampled
"generations" and "generation_time". Records the model fails on are
logged and skipped.`,
	Args: cobra.ExactArgs(3),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateFlags.errorsPath, "errors", "", "Write records that failed generation to this file")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	r, err := buildRetriever(args[0])
	if err != nil {
		return err
	}
	records, err := readRecords(args[1])
	if err != nil {
		return err
	}
	c := newCollaboratorRun()
	defer c.close()

	task := pipeline.GenerateStage(llm.NewGenerator(c.client), r)
	summary, err := c.run(cmd.Context(), "generate", records, task, args[2], generateFlags.errorsPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d of %d records (%d failed)\n",
		summary.Succeeded, summary.Processed, summary.Failed)
	return nil
}
