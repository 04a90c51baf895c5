package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/kafka"
)

// latencyWindow bounds the latency samples kept for percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalEvents       int64           `json:"total_events"`
	Retrievals        int64           `json:"retrievals"`
	Classifications   int64           `json:"classifications"`
	Hallucinations    int64           `json:"hallucinations"`
	HallucinationRate float64         `json:"hallucination_rate"`
	MeanScore         float64         `json:"mean_score"`
	CacheHits         int64           `json:"cache_hits"`
	CacheMisses       int64           `json:"cache_misses"`
	AvgLatencyMs      float64         `json:"avg_latency_ms"`
	P50LatencyMs      int64           `json:"p50_latency_ms"`
	P95LatencyMs      int64           `json:"p95_latency_ms"`
	P99LatencyMs      int64           `json:"p99_latency_ms"`
	TopFlagged        []QuestionCount `json:"top_flagged"`
	EventsPerMinute   float64         `json:"events_per_minute"`
}

type QuestionCount struct {
	Question string `json:"question"`
	Count    int64  `json:"count"`
}

// Aggregator folds prediction events into running totals. Events arrive
// either from a Kafka consumer or directly through Track.
type Aggregator struct {
	mu              sync.RWMutex
	total           int64
	retrievals      int64
	classifications int64
	hallucinations  int64
	scoreSum        float64
	cacheHits       int64
	cacheMisses     int64
	latencies       []int64
	next            int
	flagged         map[string]int64
	startTime       time.Time
	now             func() time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies: make([]int64, 0, 1024),
		flagged:   make(map[string]int64),
		startTime: time.Now(),
		now:       time.Now,
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// Consume attaches a consumer for the given topic; Start then blocks on it.
func (a *Aggregator) Consume(cfg config.KafkaConfig, topic string) {
	a.consumer = kafka.NewConsumer(cfg, topic, HandleEvent(a))
}

func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		<-ctx.Done()
		return nil
	}
	a.logger.Info("analytics aggregator consuming")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes a PredictionEvent. Undecodable messages are logged
// and acknowledged so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[PredictionEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode prediction event", "key", string(key), "error", err)
			return nil
		}
		agg.Track(event)
		return nil
	}
}

func (a *Aggregator) Track(event PredictionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.scoreSum += event.Score
	switch event.Type {
	case EventClassify:
		a.classifications++
		if event.Hallucination {
			a.hallucinations++
			a.flagged[event.Question]++
		}
	default:
		a.retrievals++
	}
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalEvents:     a.total,
		Retrievals:      a.retrievals,
		Classifications: a.classifications,
		Hallucinations:  a.hallucinations,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
	}
	if a.classifications > 0 {
		stats.HallucinationRate = float64(a.hallucinations) / float64(a.classifications)
	}
	if a.total > 0 {
		stats.MeanScore = a.scoreSum / float64(a.total)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopFlagged = topN(a.flagged, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.EventsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then question, so output is stable.
func topN(counts map[string]int64, n int) []QuestionCount {
	result := make([]QuestionCount, 0, len(counts))
	for q, c := range counts {
		result = append(result, QuestionCount{Question: q, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Question < result[j].Question
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
