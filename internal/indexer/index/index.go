package index

// Index is an inverted index over a Corpus. It is never modified after
// Build returns, so concurrent readers need no locking.
type Index struct {
	corpus    *Corpus
	postings  map[string]PostingList
	docLens   []int
	avgDocLen float64
}

// Build indexes every document of c. Postings for each term are ordered by
// document ordinal.
func Build(c *Corpus) *Index {
	ix := &Index{
		corpus:   c,
		postings: make(map[string]PostingList),
		docLens:  make([]int, c.Len()),
	}
	var total int
	for doc := 0; doc < c.Len(); doc++ {
		terms := c.Tokens(doc)
		ix.docLens[doc] = len(terms)
		total += len(terms)

		termData := make(map[string]*Posting)
		order := make([]string, 0, len(terms))
		for pos, term := range terms {
			p, exists := termData[term]
			if !exists {
				p = &Posting{Doc: doc, Positions: make([]int, 0, 4)}
				termData[term] = p
				order = append(order, term)
			}
			p.Frequency++
			p.Positions = append(p.Positions, pos)
		}
		for _, term := range order {
			ix.postings[term] = append(ix.postings[term], *termData[term])
		}
	}
	if c.Len() > 0 {
		ix.avgDocLen = float64(total) / float64(c.Len())
	}
	return ix
}

func (ix *Index) Corpus() *Corpus { return ix.corpus }

func (ix *Index) DocCount() int { return len(ix.docLens) }

func (ix *Index) DocLength(doc int) int { return ix.docLens[doc] }

func (ix *Index) AvgDocLength() float64 { return ix.avgDocLen }

func (ix *Index) TermCount() int { return len(ix.postings) }

// Postings returns the posting list for an already normalised term.
// The returned slice must not be modified.
func (ix *Index) Postings(term string) PostingList {
	return ix.postings[term]
}
