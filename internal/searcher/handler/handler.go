// Package handler exposes retrieval, classification and calibration over
// HTTP for the retriever service.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/calibration"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/retriever"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/middleware"
)

type Retriever interface {
	TopN(question string, n int) ([]retriever.Result, error)
}

// CalibrationSaver persists refitted thresholds. *store.Store implements it.
type CalibrationSaver interface {
	SaveCalibration(ctx context.Context, run *store.CalibrationRun) error
}

type Config struct {
	DefaultTopN int
	MaxTopN     int
	Polarity    classifier.Polarity
}

type Option func(*Handler)

func WithCache(c cache.Cache) Option { return func(h *Handler) { h.cache = c } }

func WithTracker(t analytics.Tracker) Option { return func(h *Handler) { h.tracker = t } }

func WithMetrics(m *metrics.Metrics) Option { return func(h *Handler) { h.metrics = m } }

func WithCalibrationSaver(s CalibrationSaver) Option { return func(h *Handler) { h.saver = s } }

// WithClassifier installs an initial threshold.
func WithClassifier(c *classifier.Classifier) Option {
	return func(h *Handler) { h.classifier.Store(c) }
}

type Handler struct {
	retriever  Retriever
	cache      cache.Cache
	tracker    analytics.Tracker
	metrics    *metrics.Metrics
	saver      CalibrationSaver
	calibrator *calibration.Calibrator
	classifier atomic.Pointer[classifier.Classifier]
	cfg        Config
	logger     *slog.Logger
}

func New(r Retriever, cfg Config, opts ...Option) *Handler {
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = 1
	}
	if cfg.MaxTopN < cfg.DefaultTopN {
		cfg.MaxTopN = cfg.DefaultTopN
	}
	if cfg.Polarity == "" {
		cfg.Polarity = classifier.HigherIsConfident
	}
	h := &Handler{
		retriever:  r,
		cache:      cache.Noop{},
		calibrator: calibration.NewCalibrator(),
		cfg:        cfg,
		logger:     slog.Default().With("component", "retriever-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if c := h.classifier.Load(); c != nil && h.metrics != nil {
		h.metrics.CalibrationThreshold.Set(c.RawThreshold())
	}
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/retrieve", h.Retrieve)
	mux.HandleFunc("GET /api/v1/classify", h.Classify)
	mux.HandleFunc("GET /api/v1/calibration", h.Calibration)
	mux.HandleFunc("POST /api/v1/calibration", h.Calibrate)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type RetrieveResponse struct {
	Question string             `json:"question"`
	Results  []retriever.Result `json:"results"`
	CacheHit bool               `json:"cache_hit"`
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	question := r.URL.Query().Get("q")
	if question == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	n := h.cfg.DefaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "n must be a positive integer"))
			return
		}
		n = min(parsed, h.cfg.MaxTopN)
	}

	results, hit, err := h.retrieve(r.Context(), question, n)
	if err != nil {
		h.writeError(w, err)
		return
	}
	latency := time.Since(start)
	logger.FromContext(r.Context()).Info("question retrieved",
		"n", n,
		"top_score", results[0].Score,
		"cache_hit", hit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(r.Context(), analytics.PredictionEvent{
		Type:      analytics.EventRetrieve,
		Question:  question,
		Score:     results[0].Score,
		CacheHit:  hit,
		LatencyMs: latency.Milliseconds(),
	})
	h.writeJSON(w, http.StatusOK, RetrieveResponse{Question: question, Results: results, CacheHit: hit})
}

type ClassifyResponse struct {
	Question       string  `json:"question"`
	Document       string  `json:"document"`
	Score          float64 `json:"score"`
	CanonicalScore float64 `json:"canonical_score"`
	Threshold      float64 `json:"threshold"`
	Hallucination  bool    `json:"hallucination"`
}

func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	question := r.URL.Query().Get("q")
	if question == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	clf := h.classifier.Load()
	if clf == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, http.StatusServiceUnavailable, "no calibrated threshold"))
		return
	}
	results, hit, err := h.retrieve(r.Context(), question, 1)
	if err != nil {
		h.writeError(w, err)
		return
	}
	top := results[0]
	pred, canonical, err := clf.Predict(top.Score)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObservePrediction(pred)
	}
	latency := time.Since(start)
	logger.FromContext(r.Context()).Info("question classified",
		"score", top.Score,
		"hallucination", pred,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(r.Context(), analytics.PredictionEvent{
		Type:          analytics.EventClassify,
		Question:      question,
		Score:         top.Score,
		Threshold:     clf.RawThreshold(),
		Hallucination: pred,
		CacheHit:      hit,
		LatencyMs:     latency.Milliseconds(),
	})
	h.writeJSON(w, http.StatusOK, ClassifyResponse{
		Question:       question,
		Document:       top.Document,
		Score:          top.Score,
		CanonicalScore: canonical,
		Threshold:      clf.RawThreshold(),
		Hallucination:  pred,
	})
}

// CalibrationResponse reports the active threshold in raw scorer units.
type CalibrationResponse struct {
	Calibrated  bool                `json:"calibrated"`
	Threshold   float64             `json:"threshold"`
	Polarity    classifier.Polarity `json:"polarity"`
	F1          float64             `json:"f1,omitempty"`
	Covered     int                 `json:"covered,omitempty"`
	Uncovered   int                 `json:"uncovered,omitempty"`
	Fingerprint string              `json:"fingerprint,omitempty"`
	Refit       bool                `json:"refit,omitempty"`
}

func (h *Handler) Calibration(w http.ResponseWriter, r *http.Request) {
	resp := CalibrationResponse{Polarity: h.cfg.Polarity}
	if clf := h.classifier.Load(); clf != nil {
		resp.Calibrated = true
		resp.Threshold = clf.RawThreshold()
	}
	if res, fp, ok := h.calibrator.Current(); ok {
		resp.F1 = res.F1
		resp.Covered = res.Covered
		resp.Uncovered = res.Uncovered
		resp.Fingerprint = fp
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CalibrateRequest carries raw retrieval scores of the two populations.
type CalibrateRequest struct {
	Covered   []float64 `json:"covered"`
	Uncovered []float64 `json:"uncovered"`
}

func (h *Handler) Calibrate(w http.ResponseWriter, r *http.Request) {
	var req CalibrateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 32<<20)).Decode(&req); err != nil {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "decoding body: %v", err))
		return
	}
	pol := h.cfg.Polarity
	var clf *classifier.Classifier
	res, fp, ran, err := h.calibrator.FitAndApply(pol.NormalizeAll(req.Covered), pol.NormalizeAll(req.Uncovered),
		func(res calibration.Result, _ string) error {
			c, err := classifier.New(res.Threshold, pol)
			if err != nil {
				return err
			}
			clf = c
			h.classifier.Store(c)
			return nil
		})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CalibrationThreshold.Set(clf.RawThreshold())
		h.metrics.CalibrationF1.Set(res.F1)
	}
	if ran && h.saver != nil {
		run := &store.CalibrationRun{
			Source:      classifier.SourceRetrieval,
			Polarity:    string(pol),
			Threshold:   clf.RawThreshold(),
			F1:          res.F1,
			Covered:     res.Covered,
			Uncovered:   res.Uncovered,
			Fingerprint: fp,
		}
		if err := h.saver.SaveCalibration(r.Context(), run); err != nil {
			logger.FromContext(r.Context()).Error("persisting calibration failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, CalibrationResponse{
		Calibrated:  true,
		Threshold:   clf.RawThreshold(),
		Polarity:    pol,
		F1:          res.F1,
		Covered:     res.Covered,
		Uncovered:   res.Uncovered,
		Fingerprint: fp,
		Refit:       ran,
	})
}

// Calibrated reports whether a threshold is loaded.
func (h *Handler) Calibrated() bool { return h.classifier.Load() != nil }

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", apperrors.ErrInternal, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) retrieve(ctx context.Context, question string, n int) ([]retriever.Result, bool, error) {
	start := time.Now()
	results, hit, err := h.cache.GetOrCompute(ctx, question, n, func() ([]retriever.Result, error) {
		return h.retriever.TopN(question, n)
	})
	if h.metrics == nil {
		return results, hit, err
	}
	status := "miss"
	if hit {
		status = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.RetrievalLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		h.metrics.RetrievalsTotal.WithLabelValues("error").Inc()
	case results[0].Score == 0:
		h.metrics.RetrievalsTotal.WithLabelValues("zero_overlap").Inc()
		h.metrics.RetrievalScore.Observe(0)
	default:
		h.metrics.RetrievalsTotal.WithLabelValues("ok").Inc()
		h.metrics.RetrievalScore.Observe(results[0].Score)
	}
	return results, hit, err
}

func (h *Handler) track(ctx context.Context, event analytics.PredictionEvent) {
	if h.tracker == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.tracker.Track(event)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
