package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

type chatRequest struct {
	Model     string `json:"model"`
	N         int    `json:"n"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeServer answers chat completions with the given replies after
// failing the first failures calls with status.
type fakeServer struct {
	replies  []string
	failures int32
	status   int
	calls    atomic.Int32
	last     atomic.Pointer[chatRequest]
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.calls.Add(1)
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.last.Store(&req)
	w.Header().Set("Content-Type", "application/json")
	if n <= f.failures {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
		return
	}
	choices := make([]map[string]any, len(f.replies))
	for i, reply := range f.replies {
		choices[i] = map[string]any{
			"index":         i,
			"finish_reason": "stop",
			"message":       map[string]string{"role": "assistant", "content": reply},
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   req.Model,
		"choices": choices,
	})
}

func newTestClient(t *testing.T, f *fakeServer, attempts int) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(config.LLMConfig{
		BaseURL:     srv.URL + "/v1",
		APIKey:      "test-key",
		Model:       "gen-model",
		JudgeModel:  "judge-model",
		MaxTokens:   256,
		Temperature: 0.6,
		TopP:        0.9,
		Generations: 3,
	}, config.PipelineConfig{
		Timeout:          5 * time.Second,
		MaxAttempts:      attempts,
		BreakerThreshold: 10,
		BreakerReset:     time.Second,
	})
}

func TestGenerate(t *testing.T) {
	f := &fakeServer{replies: []string{" aspirin ", "aspirin", "ibuprofen\n"}}
	g := NewGenerator(newTestClient(t, f, 1))

	got, err := g.Generate(context.Background(), "What treats headaches?", "Aspirin relieves pain.")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"aspirin", "aspirin", "ibuprofen"}, got); diff != "" {
		t.Errorf("generations mismatch (-want +got):\n%s", diff)
	}

	req := f.last.Load()
	if req.Model != "gen-model" || req.N != 3 || req.MaxTokens != 256 {
		t.Errorf("request = model %q n %d max_tokens %d", req.Model, req.N, req.MaxTokens)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Content != generatorSystemPrompt {
		t.Errorf("system prompt = %q", req.Messages[0].Content)
	}
	want := "CONTEXT: Aspirin relieves pain.\nQUESTION: What treats headaches?\nANSWER:"
	if req.Messages[1].Content != want {
		t.Errorf("user prompt = %q, want %q", req.Messages[1].Content, want)
	}
}

func TestJudgePrompts(t *testing.T) {
	tests := []struct {
		name   string
		rec    record.Record
		system string
		user   string
	}{
		{
			name:   "covered",
			rec:    record.Record{ID: record.StringID("q1"), Question: "Q?", Answer: "A", Generations: []string{"G", "H"}},
			system: coveredJudgePrompt,
			user:   "QUESTION: Q?\n\nANSWER1: A\n\nANSWER2: G",
		},
		{
			name:   "pubmed",
			rec:    record.Record{ID: record.StringID("pubmed-7"), Question: "Q?", Answer: "A", Generations: []string{"G"}},
			system: pubmedJudgePrompt,
			user:   "QUESTION: Q?\n\nANSWER1: A\n\nANSWER2: G",
		},
		{
			name:   "surreal",
			rec:    record.Record{ID: record.ID{Value: "12", Numeric: true}, Question: "Q?", Generations: []string{"G"}},
			system: surrealJudgePrompt,
			user:   "QUESTION: Q?\n\nANSWER: G",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeServer{replies: []string{" Match. "}}
			j := NewJudge(newTestClient(t, f, 1))
			reply, err := j.Judge(context.Background(), tt.rec)
			if err != nil {
				t.Fatal(err)
			}
			if reply != "Match." {
				t.Errorf("reply = %q", reply)
			}
			req := f.last.Load()
			if req.Model != "judge-model" || req.MaxTokens != judgeMaxTokens {
				t.Errorf("request = model %q max_tokens %d", req.Model, req.MaxTokens)
			}
			if req.Messages[0].Content != tt.system {
				t.Errorf("system prompt = %q", req.Messages[0].Content)
			}
			if req.Messages[1].Content != tt.user {
				t.Errorf("user prompt = %q, want %q", req.Messages[1].Content, tt.user)
			}
		})
	}
}

func TestJudgeWithoutGenerations(t *testing.T) {
	f := &fakeServer{replies: []string{"true"}}
	j := NewJudge(newTestClient(t, f, 1))
	_, err := j.Judge(context.Background(), record.Record{ID: record.StringID("q1")})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
	if f.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", f.calls.Load())
	}
}

func TestRetryOnServerError(t *testing.T) {
	f := &fakeServer{replies: []string{"true"}, failures: 1, status: http.StatusInternalServerError}
	j := NewJudge(newTestClient(t, f, 2))
	rec := record.Record{ID: record.StringID("q1"), Generations: []string{"G"}}

	reply, err := j.Judge(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "true" {
		t.Errorf("reply = %q", reply)
	}
	if f.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", f.calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	f := &fakeServer{replies: []string{"true"}, failures: 5, status: http.StatusBadRequest}
	j := NewJudge(newTestClient(t, f, 3))
	rec := record.Record{ID: record.StringID("q1"), Generations: []string{"G"}}

	_, err := j.Judge(context.Background(), rec)
	if !errors.Is(err, apperrors.ErrCollaborator) {
		t.Errorf("error = %v, want ErrCollaborator", err)
	}
	if f.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", f.calls.Load())
	}
}

func TestIsRetryable(t *testing.T) {
	if !isRetryable(errors.New("connection reset")) {
		t.Error("transport error should be retryable")
	}
	if isRetryable(context.Canceled) {
		t.Error("cancellation should not be retryable")
	}
	if !retryableStatus(http.StatusTooManyRequests) || !retryableStatus(http.StatusBadGateway) {
		t.Error("429 and 5xx should be retryable")
	}
	if retryableStatus(http.StatusUnauthorized) {
		t.Error("401 should not be retryable")
	}
}
