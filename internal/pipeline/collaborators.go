package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/labels"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// Generator answers a question from a context passage, returning one or
// more sampled answers.
type Generator interface {
	Generate(ctx context.Context, question, context string) ([]string, error)
}

// Judge returns its raw verdict on the first generation of a record.
// Interpretation of the reply belongs to labels.ParseVerdict.
type Judge interface {
	Judge(ctx context.Context, rec record.Record) (string, error)
}

// Scorer rates a candidate answer against reference answers. Polarity
// declares which direction of the score means hallucination.
type Scorer interface {
	Score(ctx context.Context, candidate string, references []string) (float64, error)
	Polarity() classifier.Polarity
}

// GenerateStage assigns each record its split, retrieves a context passage
// for questions outside the covered split, and stores the generations with
// their wall-clock time in seconds.
func GenerateStage(g Generator, r Retriever) Task {
	return func(ctx context.Context, rec record.Record) (record.Record, error) {
		rec.Split = rec.SplitOf()
		if rec.Split != record.SplitCovered {
			res, err := r.Retrieve(rec.Question)
			if err != nil {
				return rec, err
			}
			rec.DocChunk = res.Document
		}
		start := time.Now()
		gens, err := g.Generate(ctx, rec.Question, rec.DocChunk)
		if err != nil {
			return rec, err
		}
		if len(gens) == 0 {
			return rec, fmt.Errorf("%w: generator returned no answers", apperrors.ErrCollaborator)
		}
		rec.Generations = gens
		rec.GenerationTime = record.Float(time.Since(start).Seconds())
		return rec, nil
	}
}

// LabelStage asks the judge for a verdict and records tag and ground truth.
// Unrecognised verdicts fail the record.
func LabelStage(j Judge) Task {
	return func(ctx context.Context, rec record.Record) (record.Record, error) {
		if len(rec.Generations) == 0 {
			return rec, fmt.Errorf("%w: record %s has no generations to judge", apperrors.ErrInvalidInput, rec.ID)
		}
		reply, err := j.Judge(ctx, rec)
		if err != nil {
			return rec, err
		}
		tag, truth, err := labels.ParseVerdict(rec.SplitOf(), reply)
		if err != nil {
			return rec, err
		}
		labels.Apply(&rec, tag, truth)
		return rec, nil
	}
}

// ScoreStage scores the first generation against the rest and writes the
// score under field together with the scoring time.
func ScoreStage(s Scorer, field string) Task {
	return func(ctx context.Context, rec record.Record) (record.Record, error) {
		if len(rec.Generations) < 2 {
			return rec, fmt.Errorf("%w: record %s needs a candidate and at least one reference", apperrors.ErrInvalidInput, rec.ID)
		}
		start := time.Now()
		score, err := s.Score(ctx, rec.Generations[0], rec.Generations[1:])
		if err != nil {
			return rec, err
		}
		if err := rec.SetExtra(field, score); err != nil {
			return rec, err
		}
		if err := rec.SetExtra(FieldTime, time.Since(start).Seconds()); err != nil {
			return rec, err
		}
		return rec, nil
	}
}
