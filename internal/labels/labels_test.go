package labels

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		gt   string
		want bool
	}{
		{"true", "", "true", true},
		{"false", "match", "false", false},
		{"do not know overrides false", "do not know", "false", true},
		{"do not know without flag", "do not know", "", true},
		{"do not know with junk", "do not know", `"maybe"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := record.Record{ID: record.StringID("x"), Tag: tt.tag}
			if tt.gt != "" {
				r.GroundTruth = json.RawMessage(tt.gt)
			}
			got, err := Consolidate(r)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Consolidate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConsolidateInvalid(t *testing.T) {
	for _, gt := range []string{"", `"true"`, "1", "null"} {
		r := record.Record{ID: record.StringID("rec-9")}
		if gt != "" {
			r.GroundTruth = json.RawMessage(gt)
		}
		_, err := Consolidate(r)
		if !errors.Is(err, apperrors.ErrInvalidLabel) {
			t.Errorf("ground_truth %q: error = %v, want ErrInvalidLabel", gt, err)
			continue
		}
		if !strings.Contains(err.Error(), "rec-9") {
			t.Errorf("error %q should name the record", err)
		}
		if gt != "" && !strings.Contains(err.Error(), gt) {
			t.Errorf("error %q should name the value %s", err, gt)
		}
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		split, reply string
		tag          Tag
		gt           bool
	}{
		{record.SplitCovered, "True", TagMatch, false},
		{record.SplitCovered, " false.", TagNotMatch, true},
		{record.SplitPubMed, "match", TagMatch, false},
		{record.SplitPubMed, "Not match", TagNotMatch, true},
		{record.SplitPubMed, "do not know", TagDoNotKnow, true},
		{record.SplitSurreal, "1", TagTricked, true},
		{record.SplitSurreal, "2", TagNotTricked, false},
		{record.SplitSurreal, "(1)", TagTricked, true},
	}
	for _, tt := range tests {
		tag, gt, err := ParseVerdict(tt.split, tt.reply)
		if err != nil {
			t.Errorf("ParseVerdict(%q, %q): %v", tt.split, tt.reply, err)
			continue
		}
		if tag != tt.tag || gt != tt.gt {
			t.Errorf("ParseVerdict(%q, %q) = %q, %v; want %q, %v", tt.split, tt.reply, tag, gt, tt.tag, tt.gt)
		}
	}
}

func TestParseVerdictErrors(t *testing.T) {
	if _, _, err := ParseVerdict(record.SplitSurreal, "3"); !errors.Is(err, apperrors.ErrInvalidLabel) {
		t.Errorf("error = %v, want ErrInvalidLabel", err)
	}
	if _, _, err := ParseVerdict(record.SplitCovered, "match"); !errors.Is(err, apperrors.ErrInvalidLabel) {
		t.Errorf("error = %v, want ErrInvalidLabel", err)
	}
	if _, _, err := ParseVerdict("other", "true"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestApplyRoundTrip(t *testing.T) {
	var r record.Record
	r.ID = record.StringID("a")
	Apply(&r, TagDoNotKnow, true)
	got, err := Consolidate(r)
	if err != nil || !got {
		t.Errorf("Consolidate after Apply = %v, %v", got, err)
	}
	Apply(&r, TagMatch, false)
	got, err = Consolidate(r)
	if err != nil || got {
		t.Errorf("Consolidate after Apply = %v, %v", got, err)
	}
}
