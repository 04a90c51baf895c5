// Package ranker scores corpus documents against a query with Okapi BM25.
package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/indexer/index"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type ScoredDoc struct {
	Doc   int     `json:"doc"`
	Score float64 `json:"score"`
}

type Params struct {
	K1 float64
	B  float64
}

func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

// Score returns one BM25 score per corpus document, indexed by document
// ordinal. Terms must already be normalised; repeated terms contribute once
// per occurrence. Documents sharing no term with the query score 0.
func Score(ix *index.Index, terms []string, params Params) []float64 {
	scores := make([]float64, ix.DocCount())
	totalDocs := ix.DocCount()
	avgDocLen := ix.AvgDocLength()
	for _, term := range terms {
		postings := ix.Postings(term)
		if len(postings) == 0 {
			continue
		}
		idf := computeIDF(totalDocs, len(postings))
		for _, posting := range postings {
			tfNorm := computeTFNorm(
				float64(posting.Frequency),
				float64(ix.DocLength(posting.Doc)),
				avgDocLen,
				params,
			)
			scores[posting.Doc] += idf * tfNorm
		}
	}
	return scores
}

// computeIDF is the non-negative BM25 idf variant, so a term present in
// every document still adds a small positive weight.
func computeIDF(totalDocs int, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64, p Params) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + p.K1*(1-p.B+p.B*lengthRatio)
	return (termFreq * (p.K1 + 1)) / denominator
}
