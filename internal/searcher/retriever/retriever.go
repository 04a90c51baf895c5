// Package retriever maps a free-text question to the most lexically
// relevant document of a fixed knowledge corpus.
package retriever

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// Result is one retrieved document and its BM25 relevance score. Higher
// scores mean more relevant.
type Result struct {
	Document string  `json:"document"`
	Score    float64 `json:"score"`
}

type Option func(*Retriever)

func WithParams(p ranker.Params) Option {
	return func(r *Retriever) { r.params = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// Retriever owns a read-only index; it is safe for concurrent use.
type Retriever struct {
	index   *index.Index
	params  ranker.Params
	logger  *slog.Logger
	version string
}

// New deduplicates and indexes docs.
func New(docs []string, opts ...Option) (*Retriever, error) {
	corpus, err := index.NewCorpus(docs)
	if err != nil {
		return nil, fmt.Errorf("building corpus: %w", err)
	}
	r := &Retriever{
		params: ranker.DefaultParams(),
		logger: slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.index = index.Build(corpus)
	r.version = corpusVersion(corpus, r.params)
	r.logger.Info("corpus indexed",
		"input_documents", len(docs),
		"unique_documents", corpus.Len(),
		"terms", r.index.TermCount(),
	)
	return r, nil
}

// Retrieve returns the single best document for question. A question
// sharing no term with the corpus yields the first document with score 0.
func (r *Retriever) Retrieve(question string) (Result, error) {
	results, err := r.TopN(question, 1)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// TopN returns up to n documents ordered by descending score, earlier
// corpus documents first on ties.
func (r *Retriever) TopN(question string, n int) ([]Result, error) {
	if r == nil || r.index == nil {
		return nil, apperrors.ErrIndexNotBuilt
	}
	terms := tokenizer.Normalize(question)
	scores := ranker.Score(r.index, terms, r.params)
	top := merger.TopN(scores, n)
	results := make([]Result, len(top))
	for i, sd := range top {
		results[i] = Result{
			Document: r.index.Corpus().Document(sd.Doc),
			Score:    sd.Score,
		}
	}
	r.logger.Debug("question retrieved",
		"terms", len(terms),
		"results", len(results),
	)
	return results, nil
}

// Size returns the number of unique indexed documents.
func (r *Retriever) Size() int {
	if r == nil || r.index == nil {
		return 0
	}
	return r.index.DocCount()
}

// Version identifies the indexed corpus and scoring parameters. It changes
// whenever a retrieval result could change.
func (r *Retriever) Version() string {
	if r == nil {
		return ""
	}
	return r.version
}

func corpusVersion(c *index.Corpus, p ranker.Params) string {
	h := sha256.New()
	fmt.Fprintf(h, "k1=%g b=%g\n", p.K1, p.B)
	for _, doc := range c.Documents() {
		h.Write([]byte(doc))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
