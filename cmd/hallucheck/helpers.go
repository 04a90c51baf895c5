package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/retriever"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/jsonl"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/postgres"
)

func readRecords(path string) ([]record.Record, error) {
	records, err := jsonl.Read[record.Record](path)
	if err != nil {
		return nil, err
	}
	slog.Debug("records loaded", "path", path, "count", len(records))
	return records, nil
}

func writeRecords(path string, records []record.Record) error {
	w, err := jsonl.Create(path)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			w.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	slog.Info("records written", "path", path, "count", len(records))
	return nil
}

func buildRetriever(corpusPath string) (*retriever.Retriever, error) {
	docs, err := retriever.LoadCorpus(corpusPath, appConfig.Retrieval.TextField)
	if err != nil {
		return nil, err
	}
	r, err := retriever.New(docs, retriever.WithParams(ranker.Params{
		K1: appConfig.Retrieval.K1,
		B:  appConfig.Retrieval.B,
	}))
	if err != nil {
		return nil, fmt.Errorf("building retriever from %s: %w", corpusPath, err)
	}
	slog.Info("retriever ready", "corpus", corpusPath, "documents", r.Size(), "version", r.Version())
	return r, nil
}

// retrievalPolarity is the configured polarity of retrieval scores.
func retrievalPolarity() (classifier.Polarity, error) {
	return classifier.ParsePolarity(appConfig.Classifier.Polarity)
}

// openStore connects to Postgres and migrates the schema. The returned
// func closes the connection.
func openStore(ctx context.Context) (*store.Store, func(), error) {
	db, err := postgres.New(appConfig.Postgres)
	if err != nil {
		return nil, nil, err
	}
	s := store.New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, func() { db.Close() }, nil
}
