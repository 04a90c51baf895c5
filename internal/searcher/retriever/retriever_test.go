package retriever

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

func TestRetrieveRoundTrip(t *testing.T) {
	r, err := New([]string{"cats are mammals", "dogs are mammals", "cats are mammals"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", r.Size())
	}
	got, err := r.Retrieve("what are cats")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.Document != "cats are mammals" {
		t.Errorf("Document = %q, want %q", got.Document, "cats are mammals")
	}
	all, err := r.TopN("what are cats", 2)
	if err != nil {
		t.Fatal(err)
	}
	if all[1].Document != "dogs are mammals" || !(all[0].Score > all[1].Score) {
		t.Errorf("expected cats strictly above dogs, got %+v", all)
	}
	if all[0].Score != got.Score {
		t.Errorf("Retrieve score %v differs from TopN score %v", got.Score, all[0].Score)
	}
}

func TestRetrieveNoOverlap(t *testing.T) {
	r, err := New([]string{"alpha beta", "gamma delta"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.Retrieve("zeta?!")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	want := Result{Document: "alpha beta", Score: 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieveEmptyQuestion(t *testing.T) {
	r, err := New([]string{"alpha beta"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Retrieve(""); err != nil {
		t.Errorf("empty question should not fail, got %v", err)
	}
}

func TestRetrieveDeterministic(t *testing.T) {
	docs := make([]string, 200)
	for i := range docs {
		docs[i] = fmt.Sprintf("passage %d mentions topic %d and topic %d", i, i%7, i%11)
	}
	r, err := New(docs)
	if err != nil {
		t.Fatal(err)
	}
	first, err := r.Retrieve("which passage mentions topic 3")
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Retrieve("which passage mentions topic 3")
			if err != nil {
				t.Error(err)
				return
			}
			if got != first {
				t.Errorf("got %+v, want %+v", got, first)
			}
		}()
	}
	wg.Wait()
}

func TestDedupIdempotence(t *testing.T) {
	unique := []string{"the moon orbits earth", "mars is red", "venus is hot"}
	dup := append(append([]string{}, unique...), unique[1], unique[0], unique[2])
	a, err := New(unique)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(dup)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{"what colour is mars", "is venus hot", "moon", "unrelated"} {
		ra, _ := a.TopN(q, 3)
		rb, _ := b.TopN(q, 3)
		if diff := cmp.Diff(ra, rb); diff != "" {
			t.Errorf("question %q differs after dedup (-unique +dup):\n%s", q, diff)
		}
	}
}

func TestEmptyCorpus(t *testing.T) {
	_, err := New(nil)
	if !errors.Is(err, apperrors.ErrEmptyCorpus) {
		t.Errorf("New(nil) error = %v, want ErrEmptyCorpus", err)
	}
}

func TestIndexNotBuilt(t *testing.T) {
	var nilRetriever *Retriever
	if _, err := nilRetriever.Retrieve("q"); !errors.Is(err, apperrors.ErrIndexNotBuilt) {
		t.Errorf("nil retriever error = %v, want ErrIndexNotBuilt", err)
	}
	if _, err := (&Retriever{}).Retrieve("q"); !errors.Is(err, apperrors.ErrIndexNotBuilt) {
		t.Errorf("zero retriever error = %v, want ErrIndexNotBuilt", err)
	}
}

func TestReadCorpus(t *testing.T) {
	in := `{"title":"a","text":"first passage"}
{"text":"second passage","extra":1}
`
	docs, err := ReadCorpus(strings.NewReader(in), "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"first passage", "second passage"}, docs); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	_, err = ReadCorpus(strings.NewReader(`{"body":"x"}`), "text")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("missing field error = %v, want ErrInvalidInput", err)
	}
	_, err = ReadCorpus(strings.NewReader(`{"text":3}`), "text")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("non-string field error = %v, want ErrInvalidInput", err)
	}
}

func TestVersion(t *testing.T) {
	a, err := New([]string{"x y", "z"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New([]string{"x y", "z", "x y"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := New([]string{"x y", "z"}, WithParams(ranker.Params{K1: 2, B: 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	if a.Version() != b.Version() {
		t.Error("duplicate documents should not change the version")
	}
	if a.Version() == c.Version() {
		t.Error("scoring parameters should change the version")
	}
}

func benchmarkCorpus(numDocs int) []string {
	docs := make([]string, numDocs)
	for i := range docs {
		docs[i] = fmt.Sprintf("passage %d on clinical topic %d with finding %d", i, i%97, i%13)
	}
	return docs
}

func BenchmarkTopN(b *testing.B) {
	for _, numDocs := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			r, err := New(benchmarkCorpus(numDocs))
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := r.TopN("which clinical topic 42 has finding 7", 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRetrieveParallel(b *testing.B) {
	r, err := New(benchmarkCorpus(10000))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := r.Retrieve("clinical topic 13 finding 3"); err != nil {
				b.Fatal(err)
			}
		}
	})
}
