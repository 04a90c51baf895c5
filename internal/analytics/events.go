// Package analytics streams per-request prediction events through Kafka and
// aggregates them into live statistics for the retriever service.
package analytics

import "time"

type EventType string

const (
	EventRetrieve EventType = "retrieve"
	EventClassify EventType = "classify"
)

// PredictionEvent describes one answered request. Score is the raw
// retrieval score; Hallucination is only meaningful for classify events.
type PredictionEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Question      string    `json:"question"`
	Score         float64   `json:"score"`
	Threshold     float64   `json:"threshold,omitempty"`
	Hallucination bool      `json:"hallucination"`
	CacheHit      bool      `json:"cache_hit"`
	LatencyMs     int64     `json:"latency_ms"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

// Tracker accepts events without blocking the request path. Collector
// implements it for Kafka; Aggregator implements it in-process.
type Tracker interface {
	Track(event PredictionEvent)
}
