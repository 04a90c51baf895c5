package index

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

func TestNewCorpusDeduplicates(t *testing.T) {
	c, err := NewCorpus([]string{
		"cats are mammals",
		"dogs are mammals",
		"cats are mammals",
		"Cats are mammals",
	})
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}
	want := []string{"cats are mammals", "dogs are mammals", "Cats are mammals"}
	if diff := cmp.Diff(want, c.Documents()); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", c.Len(), len(want))
	}
	if diff := cmp.Diff([]string{"cats", "are", "mammals"}, c.Tokens(2)); diff != "" {
		t.Errorf("tokens of document 2 (-want +got):\n%s", diff)
	}
}

func TestNewCorpusEmpty(t *testing.T) {
	for _, docs := range [][]string{nil, {}} {
		_, err := NewCorpus(docs)
		if !errors.Is(err, apperrors.ErrEmptyCorpus) {
			t.Errorf("NewCorpus(%v) error = %v, want ErrEmptyCorpus", docs, err)
		}
	}
}

func TestDocumentsReturnsCopy(t *testing.T) {
	c, err := NewCorpus([]string{"a b", "c d"})
	if err != nil {
		t.Fatal(err)
	}
	docs := c.Documents()
	docs[0] = "mutated"
	if c.Document(0) != "a b" {
		t.Errorf("corpus changed through Documents(): %q", c.Document(0))
	}
}

func TestBuild(t *testing.T) {
	c, err := NewCorpus([]string{"a b a", "b c", ""})
	if err != nil {
		t.Fatal(err)
	}
	ix := Build(c)

	if ix.DocCount() != 3 {
		t.Errorf("DocCount() = %d, want 3", ix.DocCount())
	}
	if ix.TermCount() != 3 {
		t.Errorf("TermCount() = %d, want 3", ix.TermCount())
	}
	if got := ix.AvgDocLength(); got != 5.0/3.0 {
		t.Errorf("AvgDocLength() = %v, want %v", got, 5.0/3.0)
	}
	if ix.DocLength(2) != 0 {
		t.Errorf("DocLength(2) = %d, want 0", ix.DocLength(2))
	}

	want := PostingList{
		{Doc: 0, Frequency: 1, Positions: []int{1}},
		{Doc: 1, Frequency: 1, Positions: []int{0}},
	}
	if diff := cmp.Diff(want, ix.Postings("b")); diff != "" {
		t.Errorf("postings for b (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(PostingList{{Doc: 0, Frequency: 2, Positions: []int{0, 2}}}, ix.Postings("a")); diff != "" {
		t.Errorf("postings for a (-want +got):\n%s", diff)
	}
	if ix.Postings("missing") != nil {
		t.Error("expected nil postings for unknown term")
	}
}

func BenchmarkBuild(b *testing.B) {
	docs := make([]string, 10000)
	for i := range docs {
		docs[i] = fmt.Sprintf("document %d about retrieval confidence and calibration of thresholds", i)
	}
	c, err := NewCorpus(docs)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Build(c)
	}
}
