package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/pipeline"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <corpus> <in> <out>",
	Short: "Add the best BM25 score and document to every question",
	Long: `Retrieve indexes the line-delimited corpus, ranks it against the question
of every input record and writes the records back with "score" and
"doc_chunk" set. Other fields pass through unchanged.`,
	Args: cobra.ExactArgs(3),
	RunE: runRetrieve,
}

func runRetrieve(_ *cobra.Command, args []string) error {
	r, err := buildRetriever(args[0])
	if err != nil {
		return err
	}
	records, err := readRecords(args[1])
	if err != nil {
		return err
	}
	enriched, err := pipeline.EnrichWithRetrieval(records, r)
	if err != nil {
		return err
	}
	return writeRecords(args[2], enriched)
}
