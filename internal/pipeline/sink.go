package pipeline

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/jsonl"
)

// ErrorField is the pass-through field carrying the failure message in
// records written by JSONLSink.
const ErrorField = "error"

// JSONLSink writes rejected records, annotated with their error, so they
// can be inspected and replayed.
type JSONLSink struct {
	mu sync.Mutex
	w  *jsonl.Writer
}

func NewJSONLSink(w *jsonl.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

func (s *JSONLSink) Fail(rec record.Record, err error) error {
	out := rec.Clone()
	if setErr := out.SetExtra(ErrorField, err.Error()); setErr != nil {
		return setErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(out)
}

// MemorySink keeps failures in memory.
type MemorySink struct {
	mu       sync.Mutex
	Failures []Failure
}

type Failure struct {
	Record record.Record
	Err    error
}

func (s *MemorySink) Fail(rec record.Record, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failures = append(s.Failures, Failure{Record: rec, Err: err})
	return nil
}
