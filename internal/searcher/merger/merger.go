// Package merger selects the best-scoring documents from a dense score
// vector without sorting all of it.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/ranker"
)

// TopN returns the n highest scores ordered best first. Equal scores are
// ordered by ascending document ordinal, so the earliest document wins.
// n < 1 is treated as 1.
func TopN(scores []float64, n int) []ranker.ScoredDoc {
	if n < 1 {
		n = 1
	}
	if n > len(scores) {
		n = len(scores)
	}
	w := &window{scores: scores, docs: make([]int, 0, n)}
	for doc := range scores {
		if w.Len() < n {
			heap.Push(w, doc)
			continue
		}
		// Later documents lose ties, so only a strictly higher score
		// displaces the current worst entry.
		if scores[doc] > scores[w.docs[0]] {
			w.docs[0] = doc
			heap.Fix(w, 0)
		}
	}
	out := make([]ranker.ScoredDoc, w.Len())
	for i := len(out) - 1; i >= 0; i-- {
		doc := heap.Pop(w).(int)
		out[i] = ranker.ScoredDoc{Doc: doc, Score: scores[doc]}
	}
	return out
}

// window holds document ordinals in a min-heap keyed on (score, -doc), so
// the root is always the entry that would be dropped next.
type window struct {
	scores []float64
	docs   []int
}

func (w *window) Len() int { return len(w.docs) }

func (w *window) Less(i, j int) bool {
	a, b := w.docs[i], w.docs[j]
	if w.scores[a] != w.scores[b] {
		return w.scores[a] < w.scores[b]
	}
	return a > b
}

func (w *window) Swap(i, j int) { w.docs[i], w.docs[j] = w.docs[j], w.docs[i] }

func (w *window) Push(x any) { w.docs = append(w.docs, x.(int)) }

func (w *window) Pop() any {
	last := w.docs[len(w.docs)-1]
	w.docs = w.docs[:len(w.docs)-1]
	return last
}
