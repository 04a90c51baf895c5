package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// StatsSource is anything that can summarise the prediction stream.
type StatsSource interface {
	Stats() AggregatedStats
}

// Handler serves the aggregated prediction statistics.
type Handler struct {
	source StatsSource
	logger *slog.Logger
}

func NewHandler(source StatsSource) *Handler {
	return &Handler{
		source: source,
		logger: slog.Default().With("component", "analytics-handler"),
	}
}

// Stats writes the current aggregate. Figures change with every event, so
// responses are marked uncacheable.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.source.Stats()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to write analytics response", "error", err, "events", stats.TotalEvents)
	}
}
