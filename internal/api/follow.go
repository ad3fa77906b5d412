package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"markfleet/pkg/model"
)

// FollowController is the follow-controller surface the API exposes.
type FollowController interface {
	Settings() model.FollowSettings
	SetSettings(s model.FollowSettings)
	Mode() model.DeployMode
	SetMode(ctx context.Context, mode model.DeployMode) error
	PendingDeployments(ctx context.Context) ([]model.PendingDeployment, error)
	DeployAllPending(ctx context.Context) error
}

// FollowHandler exposes follow controller tuning and the manual-mode queue.
type FollowHandler struct {
	ctrl FollowController
}

func NewFollowHandler(ctrl FollowController) *FollowHandler {
	return &FollowHandler{ctrl: ctrl}
}

// SettingsResponse represents follow settings with durations in seconds.
type SettingsResponse struct {
	DistanceThresholdMeters  float64 `json:"distance_threshold_meters"`
	PollIntervalSeconds      float64 `json:"poll_interval_seconds"`
	DebounceSeconds          float64 `json:"debounce_seconds"`
	AcceptableDistanceMeters float64 `json:"acceptable_distance_meters"`
}

// SettingsRequest carries a partial settings update.
// Pointers distinguish zero values from missing fields.
type SettingsRequest struct {
	DistanceThresholdMeters  *float64 `json:"distance_threshold_meters,omitempty"`
	PollIntervalSeconds      *float64 `json:"poll_interval_seconds,omitempty"`
	DebounceSeconds          *float64 `json:"debounce_seconds,omitempty"`
	AcceptableDistanceMeters *float64 `json:"acceptable_distance_meters,omitempty"`
}

func settingsResponse(s model.FollowSettings) SettingsResponse {
	return SettingsResponse{
		DistanceThresholdMeters:  s.DistanceThresholdMeters,
		PollIntervalSeconds:      s.PollInterval.Seconds(),
		DebounceSeconds:          s.DebounceTime.Seconds(),
		AcceptableDistanceMeters: s.AcceptableDistanceMeters,
	}
}

func (h *FollowHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, settingsResponse(h.ctrl.Settings()))
}

func (h *FollowHandler) HandleSetSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	s := h.ctrl.Settings()
	if req.DistanceThresholdMeters != nil {
		s.DistanceThresholdMeters = *req.DistanceThresholdMeters
	}
	if req.PollIntervalSeconds != nil {
		s.PollInterval = time.Duration(*req.PollIntervalSeconds * float64(time.Second))
	}
	if req.DebounceSeconds != nil {
		s.DebounceTime = time.Duration(*req.DebounceSeconds * float64(time.Second))
	}
	if req.AcceptableDistanceMeters != nil {
		s.AcceptableDistanceMeters = *req.AcceptableDistanceMeters
	}
	if s.DistanceThresholdMeters <= 0 || s.PollInterval <= 0 || s.DebounceTime < 0 || s.AcceptableDistanceMeters < 0 {
		http.Error(w, "settings out of range", http.StatusBadRequest)
		return
	}

	h.ctrl.SetSettings(s)
	slog.Info("Follow settings updated",
		"threshold_m", s.DistanceThresholdMeters,
		"poll", s.PollInterval,
		"debounce", s.DebounceTime)
	writeJSON(w, settingsResponse(s))
}

// ModeResponse represents the deploy mode API payload, both directions.
type ModeResponse struct {
	Mode model.DeployMode `json:"mode"`
}

func (h *FollowHandler) HandleGetMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ModeResponse{Mode: h.ctrl.Mode()})
}

func (h *FollowHandler) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Mode != model.DeployAutomatic && req.Mode != model.DeployManual {
		http.Error(w, fmt.Sprintf("unknown deploy mode %q", req.Mode), http.StatusBadRequest)
		return
	}

	// Switching manual -> automatic flushes the pending queue; a flush
	// failure leaves the mode switched, so report it but don't fail.
	if err := h.ctrl.SetMode(r.Context(), req.Mode); err != nil {
		slog.Warn("Deploy mode switched with incomplete flush", "mode", req.Mode, "error", err)
	}
	writeJSON(w, ModeResponse{Mode: h.ctrl.Mode()})
}

// PendingResponse lists the buoys that would move on the next deploy.
type PendingResponse struct {
	Pending []model.PendingDeployment `json:"pending"`
	Count   int                       `json:"count"`
}

func (h *FollowHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.ctrl.PendingDeployments(r.Context())
	if err != nil {
		slog.Error("Failed to compute pending deployments", "error", err)
		http.Error(w, "pending unavailable", http.StatusInternalServerError)
		return
	}
	if pending == nil {
		pending = []model.PendingDeployment{}
	}
	writeJSON(w, PendingResponse{Pending: pending, Count: len(pending)})
}

func (h *FollowHandler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.DeployAllPending(r.Context()); err != nil {
		slog.Error("Deploy-all incomplete", "error", err)
		http.Error(w, fmt.Sprintf("deploy incomplete: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
