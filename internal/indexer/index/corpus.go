// Package index holds the deduplicated corpus and the read-only inverted
// index built over it.
package index

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// Corpus is an ordered set of unique documents and their normalised terms.
// docs[i] and tokens[i] always describe the same document.
type Corpus struct {
	docs   []string
	tokens [][]string
}

// NewCorpus deduplicates docs by exact text, keeping the first occurrence
// and the original order, and tokenizes every surviving document.
func NewCorpus(docs []string) (*Corpus, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents supplied", apperrors.ErrEmptyCorpus)
	}
	seen := make(map[string]struct{}, len(docs))
	c := &Corpus{
		docs:   make([]string, 0, len(docs)),
		tokens: make([][]string, 0, len(docs)),
	}
	for _, doc := range docs {
		if _, dup := seen[doc]; dup {
			continue
		}
		seen[doc] = struct{}{}
		c.docs = append(c.docs, doc)
		c.tokens = append(c.tokens, tokenizer.Normalize(doc))
	}
	return c, nil
}

func (c *Corpus) Len() int { return len(c.docs) }

func (c *Corpus) Document(i int) string { return c.docs[i] }

func (c *Corpus) Tokens(i int) []string { return c.tokens[i] }

// Documents returns a copy of the unique documents in insertion order.
func (c *Corpus) Documents() []string {
	out := make([]string, len(c.docs))
	copy(out, c.docs)
	return out
}
