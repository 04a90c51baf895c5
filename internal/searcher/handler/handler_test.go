package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/retriever"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/metrics"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.PredictionEvent
}

func (r *recordingTracker) Track(e analytics.PredictionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type recordingSaver struct {
	runs []*store.CalibrationRun
}

func (s *recordingSaver) SaveCalibration(_ context.Context, run *store.CalibrationRun) error {
	s.runs = append(s.runs, run)
	return nil
}

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *Handler) {
	t.Helper()
	r, err := retriever.New([]string{"cats are mammals", "dogs bark loudly"})
	if err != nil {
		t.Fatal(err)
	}
	h := New(r, Config{DefaultTopN: 1, MaxTopN: 2}, opts...)
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, h
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestRetrieve(t *testing.T) {
	local, err := cache.NewLocal(16, 0, "test")
	if err != nil {
		t.Fatal(err)
	}
	tracker := &recordingTracker{}
	m := metrics.New(prometheus.NewRegistry())
	srv, _ := newTestServer(t, WithCache(local), WithTracker(tracker), WithMetrics(m))

	var got RetrieveResponse
	if code := getJSON(t, srv.URL+"/api/v1/retrieve?q=are+cats+mammals&n=5", &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(got.Results) != 2 {
		t.Fatalf("n should be capped at 2, got %d results", len(got.Results))
	}
	if got.Results[0].Document != "cats are mammals" || got.CacheHit {
		t.Errorf("first response = %+v", got)
	}
	getJSON(t, srv.URL+"/api/v1/retrieve?q=Are+cats+mammals%3F&n=2", &got)
	if !got.CacheHit {
		t.Error("second request should hit the cache")
	}
	if testutil.ToFloat64(m.CacheHitsTotal) != 1 || testutil.ToFloat64(m.CacheMissesTotal) != 1 {
		t.Error("cache metrics not recorded")
	}
	if len(tracker.events) != 2 || tracker.events[0].Type != analytics.EventRetrieve || tracker.events[0].ID == "" {
		t.Errorf("tracked events = %+v", tracker.events)
	}
}

func TestRetrieveValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, q := range []string{"", "?q=cats&n=0", "?q=cats&n=x"} {
		if code := getJSON(t, srv.URL+"/api/v1/retrieve"+q, nil); code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", q, code)
		}
	}
}

func TestClassify(t *testing.T) {
	clf, err := classifier.FromRawThreshold(1, classifier.HigherIsConfident)
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(prometheus.NewRegistry())
	srv, _ := newTestServer(t, WithClassifier(clf), WithMetrics(m))

	var got ClassifyResponse
	getJSON(t, srv.URL+"/api/v1/classify?q=cats+are+mammals", &got)
	if got.Hallucination || got.Threshold != 1 || got.CanonicalScore != -got.Score {
		t.Errorf("covered question: %+v", got)
	}
	getJSON(t, srv.URL+"/api/v1/classify?q=submarines", &got)
	if !got.Hallucination || got.Score != 0 {
		t.Errorf("uncovered question: %+v", got)
	}
	if v := testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("hallucination")); v != 1 {
		t.Errorf("hallucination predictions = %v, want 1", v)
	}
}

func TestClassifyWithoutThreshold(t *testing.T) {
	srv, h := newTestServer(t)
	if h.Calibrated() {
		t.Error("handler without a classifier reports calibrated")
	}
	if code := getJSON(t, srv.URL+"/api/v1/classify?q=cats", nil); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
}

func TestCalibrate(t *testing.T) {
	saver := &recordingSaver{}
	srv, h := newTestServer(t, WithCalibrationSaver(saver))
	body, _ := json.Marshal(CalibrateRequest{Covered: []float64{5, 6}, Uncovered: []float64{1, 2}})

	post := func() CalibrationResponse {
		resp, err := http.Post(srv.URL+"/api/v1/calibration", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var got CalibrationResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		return got
	}
	first := post()
	if first.Threshold != 5 || first.F1 != 1 || !first.Refit {
		t.Errorf("first calibration = %+v", first)
	}
	second := post()
	if second.Refit || second.Threshold != 5 {
		t.Errorf("identical set should reuse the cached threshold: %+v", second)
	}
	if !h.Calibrated() {
		t.Error("handler should be calibrated after a fit")
	}
	if len(saver.runs) != 1 || saver.runs[0].Threshold != 5 {
		t.Errorf("saved runs = %+v", saver.runs)
	}

	var current CalibrationResponse
	getJSON(t, srv.URL+"/api/v1/calibration", &current)
	if !current.Calibrated || current.Threshold != 5 || current.Fingerprint != first.Fingerprint {
		t.Errorf("current calibration = %+v", current)
	}

	var got ClassifyResponse
	getJSON(t, srv.URL+"/api/v1/classify?q=cats+are+mammals", &got)
	if !got.Hallucination {
		t.Errorf("score %v is below the raw threshold 5 and should be flagged", got.Score)
	}
}

func TestCalibrationReportsZeroThreshold(t *testing.T) {
	clf, err := classifier.FromRawThreshold(0, classifier.HigherIsConfident)
	if err != nil {
		t.Fatal(err)
	}
	srv, _ := newTestServer(t, WithClassifier(clf))

	var got map[string]any
	getJSON(t, srv.URL+"/api/v1/calibration", &got)
	if got["calibrated"] != true {
		t.Fatalf("calibration = %v, want calibrated", got)
	}
	if v, ok := got["threshold"]; !ok || v != float64(0) {
		t.Errorf("threshold = %v (present %v), want 0", v, ok)
	}
}

func TestCalibrateRejectsEmptyPopulation(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/v1/calibration", "application/json",
		bytes.NewReader([]byte(`{"covered":[1],"uncovered":[]}`)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCacheEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	var stats cache.Stats
	getJSON(t, srv.URL+"/api/v1/cache/stats", &stats)
	if stats.Backend != "none" {
		t.Errorf("backend = %q", stats.Backend)
	}
	resp, err := http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("invalidate status = %d", resp.StatusCode)
	}
}
