package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"markfleet/pkg/model"
)

// FleetSource provides the current buoy snapshot, live from the fleet link
// rather than from persistence.
type FleetSource interface {
	ListBuoys(ctx context.Context) ([]model.Buoy, error)
}

// FleetHandler serves the fleet snapshot.
type FleetHandler struct {
	fleet FleetSource
}

func NewFleetHandler(fleet FleetSource) *FleetHandler {
	return &FleetHandler{fleet: fleet}
}

// FleetResponse is the API response structure.
type FleetResponse struct {
	Buoys []model.Buoy `json:"buoys"`
}

func (h *FleetHandler) HandleFleet(w http.ResponseWriter, r *http.Request) {
	buoys, err := h.fleet.ListBuoys(r.Context())
	if err != nil {
		slog.Error("Failed to list buoys", "error", err)
		http.Error(w, "fleet unavailable", http.StatusInternalServerError)
		return
	}
	if buoys == nil {
		buoys = []model.Buoy{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(FleetResponse{Buoys: buoys}); err != nil {
		slog.Error("Failed to encode fleet response", "error", err)
	}
}
