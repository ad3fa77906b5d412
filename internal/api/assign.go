package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"markfleet/pkg/assign"
)

// Assigner runs one auto-assignment pass over the active course.
type Assigner interface {
	Run(ctx context.Context, courseID string) (*assign.Result, error)
}

// AssignHandler triggers auto-assignment runs.
type AssignHandler struct {
	engine   Assigner
	courseID string
}

func NewAssignHandler(engine Assigner, courseID string) *AssignHandler {
	return &AssignHandler{engine: engine, courseID: courseID}
}

// InsufficientResponse is returned when open slots outnumber available
// buoys; no assignment work was performed.
type InsufficientResponse struct {
	Error     string `json:"error"`
	Needed    int    `json:"needed"`
	Available int    `json:"available"`
}

func (h *AssignHandler) HandleAuto(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Run(r.Context(), h.courseID)
	if err != nil {
		var insufficient *assign.InsufficientBuoysError
		if errors.As(err, &insufficient) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			writeJSON(w, InsufficientResponse{
				Error:     insufficient.Error(),
				Needed:    insufficient.Needed,
				Available: insufficient.Available,
			})
			return
		}
		slog.Error("Auto-assignment failed", "course", h.courseID, "error", err)
		http.Error(w, "assignment failed", http.StatusInternalServerError)
		return
	}

	slog.Info("Auto-assignment run",
		"planned", len(res.Assignments),
		"completed", res.Completed,
		"failed", res.Failed,
		"not_dispatched", len(res.AssignedNotDispatched))
	writeJSON(w, res)
}
