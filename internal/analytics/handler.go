package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// SnapshotSource loads the most recently persisted stats, nil when none.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context) (*AggregatedStats, error)
}

// StatsResponse is the analytics endpoint payload.
type StatsResponse struct {
	Current      AggregatedStats  `json:"current"`
	LastSnapshot *AggregatedStats `json:"last_snapshot,omitempty"`
}

type Handler struct {
	aggregator *Aggregator
	snapshots  SnapshotSource
	logger     *slog.Logger
}

// NewHandler serves the aggregator's stats. snapshots may be nil.
func NewHandler(aggregator *Aggregator, snapshots SnapshotSource) *Handler {
	return &Handler{
		aggregator: aggregator,
		snapshots:  snapshots,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Current: h.aggregator.Stats()}
	if h.snapshots != nil {
		snap, err := h.snapshots.LatestSnapshot(r.Context())
		if err != nil {
			h.logger.Warn("loading last snapshot failed", "error", err)
		}
		resp.LastSnapshot = snap
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
