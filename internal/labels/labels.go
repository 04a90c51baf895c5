// Package labels is the single place where annotations become ground truth.
//
// Ground truth is true when the answer is a hallucination. Annotators may
// record a tag alongside the boolean; a "do not know" tag always means the
// answer is treated as a hallucination, whatever the boolean says.
package labels

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

type Tag string

const (
	TagMatch      Tag = "match"
	TagNotMatch   Tag = "not match"
	TagDoNotKnow  Tag = "do not know"
	TagTricked    Tag = "tricked"
	TagNotTricked Tag = "not tricked"
)

// Consolidate returns the ground truth for r.
func Consolidate(r record.Record) (bool, error) {
	if Tag(r.Tag) == TagDoNotKnow {
		return true, nil
	}
	if len(r.GroundTruth) == 0 {
		return false, fmt.Errorf("%w: record %s has no ground_truth", apperrors.ErrInvalidLabel, r.ID)
	}
	var v bool
	if err := json.Unmarshal(r.GroundTruth, &v); err != nil || string(r.GroundTruth) == "null" {
		return false, fmt.Errorf("%w: record %s has ground_truth %s", apperrors.ErrInvalidLabel, r.ID, r.GroundTruth)
	}
	return v, nil
}

var verdictCleaner = strings.NewReplacer(".", "", "(", "", ")", "")

// ParseVerdict maps a judge's raw reply for a record of the given split to
// a tag and ground truth.
//
//	covered: "true"  -> not hallucinated, "false" -> hallucinated
//	pubmed:  "match" -> not hallucinated, "not match" / "do not know" -> hallucinated
//	surreal: "1"     -> tricked (hallucinated), "2" -> not tricked
func ParseVerdict(split string, reply string) (Tag, bool, error) {
	v := verdictCleaner.Replace(strings.ToLower(strings.TrimSpace(reply)))
	v = strings.Trim(v, "\"' ")
	switch split {
	case record.SplitCovered:
		switch v {
		case "true":
			return TagMatch, false, nil
		case "false":
			return TagNotMatch, true, nil
		}
	case record.SplitPubMed:
		switch Tag(v) {
		case TagMatch:
			return TagMatch, false, nil
		case TagNotMatch:
			return TagNotMatch, true, nil
		case TagDoNotKnow:
			return TagDoNotKnow, true, nil
		}
	case record.SplitSurreal:
		switch v {
		case "1":
			return TagTricked, true, nil
		case "2":
			return TagNotTricked, false, nil
		}
	default:
		return "", false, fmt.Errorf("%w: unknown split %q", apperrors.ErrInvalidInput, split)
	}
	return "", false, fmt.Errorf("%w: unrecognised %s verdict %q", apperrors.ErrInvalidLabel, split, reply)
}

// Apply writes a verdict onto r.
func Apply(r *record.Record, tag Tag, groundTruth bool) {
	r.Tag = string(tag)
	if groundTruth {
		r.GroundTruth = json.RawMessage("true")
	} else {
		r.GroundTruth = json.RawMessage("false")
	}
}
