package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/stats"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/jsonl"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/logger"
)

var defaultQuestions = []string{
	"What is the first-line treatment for type 2 diabetes?",
	"Which enzyme does aspirin inhibit?",
	"How does penicillin kill bacteria?",
	"What causes iron deficiency anemia?",
	"Which vitamin deficiency causes scurvy?",
	"What is the half-life of warfarin?",
	"How is the moon's cholesterol regulated?",
	"Which quantum gene encodes telepathy?",
}

type Config struct {
	BaseURL     string
	Endpoint    string
	TopN        int
	Concurrency int
	Duration    time.Duration
	Questions   []string
}

// classifyBody is the subset of the classify response the report needs.
type classifyBody struct {
	Hallucination bool `json:"hallucination"`
}

type retrieveBody struct {
	CacheHit bool `json:"cache_hit"`
}

type Stats struct {
	totalRequests  atomic.Int64
	successCount   atomic.Int64
	errorCount     atomic.Int64
	cacheHits      atomic.Int64
	hallucinations atomic.Int64
	latencies      []time.Duration
	latenciesMu    sync.Mutex
	statusCodes    map[int]int64
	statusCodesMu  sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	s.statusCodes[statusCode]++
	s.statusCodesMu.Unlock()
}

// RecordBody counts cache hits and flagged answers from a 2xx body.
func (s *Stats) RecordBody(endpoint string, body []byte) {
	switch endpoint {
	case "classify":
		var b classifyBody
		if json.Unmarshal(body, &b) == nil && b.Hallucination {
			s.hallucinations.Add(1)
		}
	default:
		var b retrieveBody
		if json.Unmarshal(body, &b) == nil && b.CacheHit {
			s.cacheHits.Add(1)
		}
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the retriever service")
	endpoint := flag.String("endpoint", "retrieve", "endpoint to exercise (retrieve, classify)")
	topN := flag.Int("n", 5, "documents per retrieve request")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	questionsPath := flag.String("questions", "", "JSONL file whose records' question fields are replayed")
	flag.Parse()

	logger.Setup("info", "text", os.Stderr)

	if *endpoint != "retrieve" && *endpoint != "classify" {
		fmt.Fprintf(os.Stderr, "unknown endpoint %q\n", *endpoint)
		os.Exit(2)
	}
	questions := defaultQuestions
	if *questionsPath != "" {
		loaded, err := loadQuestions(*questionsPath)
		if err != nil {
			slog.Error("loading questions failed", "error", err)
			os.Exit(1)
		}
		questions = loaded
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Endpoint:    *endpoint,
		TopN:        *topN,
		Concurrency: *concurrency,
		Duration:    *duration,
		Questions:   questions,
	}

	fmt.Println("=== Retriever Load Test ===")
	fmt.Printf("Target:      %s/api/v1/%s\n", cfg.BaseURL, cfg.Endpoint)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Questions:   %d unique\n", len(cfg.Questions))
	fmt.Println()

	s := runLoadTest(context.Background(), cfg)
	if !printReport(os.Stdout, s, cfg) {
		os.Exit(1)
	}
}

func loadQuestions(path string) ([]string, error) {
	records, err := jsonl.Read[record.Record](path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rec := range records {
		if rec.Question != "" {
			out = append(out, rec.Question)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s has no questions", path)
	}
	return out, nil
}

func requestURL(cfg Config, question string) string {
	q := url.Values{"q": {question}}
	if cfg.Endpoint == "retrieve" && cfg.TopN > 0 {
		q.Set("n", fmt.Sprint(cfg.TopN))
	}
	return fmt.Sprintf("%s/api/v1/%s?%s", cfg.BaseURL, cfg.Endpoint, q.Encode())
}

func runLoadTest(parent context.Context, cfg Config) *Stats {
	s := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(parent, cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			next := workerID
			for ctx.Err() == nil {
				question := cfg.Questions[next%len(cfg.Questions)]
				next++

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL(cfg, question), nil)
				if err != nil {
					s.RecordRequest(0, 0, err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						s.RecordRequest(elapsed, 0, err)
					}
					continue
				}
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				s.RecordRequest(elapsed, resp.StatusCode, nil)
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					s.RecordBody(cfg.Endpoint, body)
				}
			}
		}(w)
	}
	wg.Wait()
	return s
}

// printReport writes the summary and reports whether any request completed.
func printReport(w io.Writer, s *Stats, cfg Config) bool {
	total := s.totalRequests.Load()
	success := s.successCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", s.errorCount.Load())
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.errorCount.Load())/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/cfg.Duration.Seconds())
	}
	if success > 0 {
		switch cfg.Endpoint {
		case "classify":
			fmt.Fprintf(w, "Flagged:         %.2f%%\n", float64(s.hallucinations.Load())/float64(success)*100)
		default:
			fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(s.cacheHits.Load())/float64(success)*100)
		}
	}

	s.latenciesMu.Lock()
	latencies := append([]time.Duration(nil), s.latencies...)
	s.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		ms := make([]float64, len(latencies))
		for i, l := range latencies {
			ms[i] = float64(l) / float64(time.Millisecond)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		if mean, err := stats.Mean(ms); err == nil {
			fmt.Fprintf(w, "Avg:    %.3fms\n", mean)
		}
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
		if sd, err := stats.StdDev(ms); err == nil {
			fmt.Fprintf(w, "StdDev: %.3fms\n", sd)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	s.statusCodesMu.Lock()
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statusCodes[code])
	}
	s.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
