package api

import (
	"net/http"

	"markfleet/pkg/tracker"
)

// StatsHandler serves per-buoy command counters.
type StatsHandler struct {
	tracker *tracker.Tracker
}

func NewStatsHandler(tr *tracker.Tracker) *StatsHandler {
	return &StatsHandler{tracker: tr}
}

// StatsResponse represents the stats API response.
type StatsResponse struct {
	Buoys map[string]tracker.BuoyStats `json:"buoys"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatsResponse{Buoys: h.tracker.Snapshot()})
}
