// Package record defines the line-delimited JSON records that flow through
// retrieval, tagging, labeling and evaluation. Fields this package does not
// know about are kept verbatim and written back unchanged.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Split names the population a question was drawn from.
const (
	SplitCovered = "covered"
	SplitPubMed  = "pubmed"
	SplitSurreal = "surreal"
)

type Record struct {
	ID             ID
	Question       string
	Answer         string
	Split          string
	Covered        *bool
	DocChunk       string
	Score          *float64
	Prediction     *bool
	GroundTruth    json.RawMessage
	Tag            string
	Generations    []string
	GenerationTime *float64

	extra map[string]json.RawMessage
	// blank holds known fields that arrived as null or "" so they are
	// written back as they came unless a stage sets them.
	blank map[string]json.RawMessage
}

var knownFields = []string{
	"id", "question", "answer", "split", "covered", "doc_chunk", "score",
	"prediction", "ground_truth", "tag", "generations", "generation_time",
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Record{}
	decode := func(name string, dst any) error {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		return nil
	}
	steps := []struct {
		name string
		dst  any
	}{
		{"id", &r.ID},
		{"question", &r.Question},
		{"answer", &r.Answer},
		{"split", &r.Split},
		{"covered", &r.Covered},
		{"doc_chunk", &r.DocChunk},
		{"score", &r.Score},
		{"prediction", &r.Prediction},
		{"tag", &r.Tag},
		{"generations", &r.Generations},
		{"generation_time", &r.GenerationTime},
	}
	for _, s := range steps {
		if err := decode(s.name, s.dst); err != nil {
			return err
		}
	}
	if raw, ok := fields["ground_truth"]; ok {
		r.GroundTruth = append(json.RawMessage(nil), raw...)
	}
	for _, name := range knownFields {
		if raw, ok := fields[name]; ok && isBlank(raw) {
			if r.blank == nil {
				r.blank = make(map[string]json.RawMessage)
			}
			r.blank[name] = append(json.RawMessage(nil), raw...)
		}
		delete(fields, name)
	}
	if len(fields) > 0 {
		r.extra = fields
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.extra)+len(knownFields))
	for k, v := range r.extra {
		out[k] = v
	}
	if !r.ID.IsZero() {
		out["id"] = r.ID
	}
	setString := func(name, v string) {
		if v != "" {
			out[name] = v
		}
	}
	setString("question", r.Question)
	setString("answer", r.Answer)
	setString("split", r.Split)
	setString("doc_chunk", r.DocChunk)
	setString("tag", r.Tag)
	if r.Covered != nil {
		out["covered"] = *r.Covered
	}
	if r.Score != nil {
		out["score"] = *r.Score
	}
	if r.Prediction != nil {
		out["prediction"] = *r.Prediction
	}
	if len(r.GroundTruth) > 0 {
		out["ground_truth"] = r.GroundTruth
	}
	if r.Generations != nil {
		out["generations"] = r.Generations
	}
	if r.GenerationTime != nil {
		out["generation_time"] = *r.GenerationTime
	}
	for k, v := range r.blank {
		if _, set := out[k]; !set {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func isBlank(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v == "null" || v == `""`
}

// Extra returns the raw value of a field this package does not model.
func (r *Record) Extra(name string) (json.RawMessage, bool) {
	v, ok := r.extra[name]
	return v, ok
}

// SetExtra sets a pass-through field. Known field names are rejected so
// the typed fields stay authoritative.
func (r *Record) SetExtra(name string, value any) error {
	for _, known := range knownFields {
		if name == known {
			return fmt.Errorf("field %q is not a pass-through field", name)
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding field %q: %w", name, err)
	}
	if r.extra == nil {
		r.extra = make(map[string]json.RawMessage)
	}
	r.extra[name] = raw
	return nil
}

// Clone returns a deep copy, so stages can enrich records without sharing
// state with their input.
func (r Record) Clone() Record {
	c := r
	if r.Covered != nil {
		v := *r.Covered
		c.Covered = &v
	}
	if r.Score != nil {
		v := *r.Score
		c.Score = &v
	}
	if r.Prediction != nil {
		v := *r.Prediction
		c.Prediction = &v
	}
	if r.GenerationTime != nil {
		v := *r.GenerationTime
		c.GenerationTime = &v
	}
	if r.GroundTruth != nil {
		c.GroundTruth = append(json.RawMessage(nil), r.GroundTruth...)
	}
	if r.Generations != nil {
		c.Generations = append([]string(nil), r.Generations...)
	}
	c.extra = cloneRaw(r.extra)
	c.blank = cloneRaw(r.blank)
	return c
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	c := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		c[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

// InferSplit derives the question population from the shape of its ID:
// PubMed IDs carry a "pubmed" marker, surreal questions have integer IDs and
// everything else belongs to the covered set.
func InferSplit(id ID) string {
	switch {
	case strings.Contains(strings.ToLower(id.Value), "pubmed"):
		return SplitPubMed
	case id.Numeric:
		return SplitSurreal
	default:
		return SplitCovered
	}
}

// SplitOf returns the explicit split field, falling back to InferSplit.
func (r *Record) SplitOf() string {
	if r.Split != "" {
		return r.Split
	}
	return InferSplit(r.ID)
}

func Bool(v bool) *bool { return &v }

func Float(v float64) *float64 { return &v }
