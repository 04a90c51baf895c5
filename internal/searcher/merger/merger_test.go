package merger

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/ranker"
)

func TestTopN(t *testing.T) {
	scores := []float64{0.5, 2.0, 1.0, 2.0, 0}
	tests := []struct {
		n    int
		want []ranker.ScoredDoc
	}{
		{1, []ranker.ScoredDoc{{Doc: 1, Score: 2}}},
		{3, []ranker.ScoredDoc{{Doc: 1, Score: 2}, {Doc: 3, Score: 2}, {Doc: 2, Score: 1}}},
		{10, []ranker.ScoredDoc{
			{Doc: 1, Score: 2}, {Doc: 3, Score: 2}, {Doc: 2, Score: 1},
			{Doc: 0, Score: 0.5}, {Doc: 4, Score: 0},
		}},
		{0, []ranker.ScoredDoc{{Doc: 1, Score: 2}}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, TopN(scores, tt.n)); diff != "" {
			t.Errorf("TopN(n=%d) mismatch (-want +got):\n%s", tt.n, diff)
		}
	}
}

func TestTopNAllZeroPicksFirst(t *testing.T) {
	got := TopN([]float64{0, 0, 0}, 1)
	if len(got) != 1 || got[0].Doc != 0 {
		t.Errorf("TopN on all-zero scores = %+v, want doc 0", got)
	}
}

func TestTopNEmpty(t *testing.T) {
	if got := TopN(nil, 3); len(got) != 0 {
		t.Errorf("TopN(nil) = %+v, want empty", got)
	}
}
