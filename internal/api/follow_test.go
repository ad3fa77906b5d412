package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

type fakeController struct {
	settings    model.FollowSettings
	mode        model.DeployMode
	pending     []model.PendingDeployment
	pendingErr  error
	deployErr   error
	deployCalls int
}

func newFakeController() *fakeController {
	return &fakeController{
		settings: model.DefaultFollowSettings(),
		mode:     model.DeployAutomatic,
	}
}

func (f *fakeController) Settings() model.FollowSettings     { return f.settings }
func (f *fakeController) SetSettings(s model.FollowSettings) { f.settings = s }
func (f *fakeController) Mode() model.DeployMode             { return f.mode }

func (f *fakeController) SetMode(ctx context.Context, mode model.DeployMode) error {
	f.mode = mode
	return nil
}

func (f *fakeController) PendingDeployments(ctx context.Context) ([]model.PendingDeployment, error) {
	return f.pending, f.pendingErr
}

func (f *fakeController) DeployAllPending(ctx context.Context) error {
	f.deployCalls++
	return f.deployErr
}

func TestFollowHandler_GetSettings(t *testing.T) {
	h := NewFollowHandler(newFakeController())

	req := httptest.NewRequest("GET", "/api/follow/settings", http.NoBody)
	w := httptest.NewRecorder()
	h.HandleGetSettings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("StatusCode: got %v, want %v", w.Code, http.StatusOK)
	}
	var got SettingsResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DistanceThresholdMeters != 3 {
		t.Errorf("threshold: got %v, want 3", got.DistanceThresholdMeters)
	}
	if got.PollIntervalSeconds != 5 {
		t.Errorf("poll interval: got %v, want 5", got.PollIntervalSeconds)
	}
}

func TestFollowHandler_SetSettings(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"PartialUpdate", `{"distance_threshold_meters": 5}`, http.StatusOK},
		{"AllFields", `{"distance_threshold_meters": 2, "poll_interval_seconds": 10, "debounce_seconds": 4, "acceptable_distance_meters": 0.5}`, http.StatusOK},
		{"RejectZeroThreshold", `{"distance_threshold_meters": 0}`, http.StatusBadRequest},
		{"RejectNegativePoll", `{"poll_interval_seconds": -1}`, http.StatusBadRequest},
		{"RejectGarbage", `{not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newFakeController()
			h := NewFollowHandler(ctrl)

			req := httptest.NewRequest("PUT", "/api/follow/settings", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.HandleSetSettings(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("StatusCode: got %v, want %v", w.Code, tt.expectedStatus)
			}
			if tt.expectedStatus != http.StatusOK {
				// Rejected updates must not leak into the controller.
				if ctrl.settings != model.DefaultFollowSettings() {
					t.Errorf("settings mutated on rejected update: %+v", ctrl.settings)
				}
			}
		})
	}
}

func TestFollowHandler_SetSettingsPartialKeepsRest(t *testing.T) {
	ctrl := newFakeController()
	h := NewFollowHandler(ctrl)

	req := httptest.NewRequest("PUT", "/api/follow/settings", strings.NewReader(`{"debounce_seconds": 7}`))
	w := httptest.NewRecorder()
	h.HandleSetSettings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("StatusCode: got %v, want %v", w.Code, http.StatusOK)
	}
	if ctrl.settings.DebounceTime != 7*time.Second {
		t.Errorf("debounce: got %v, want 7s", ctrl.settings.DebounceTime)
	}
	if ctrl.settings.DistanceThresholdMeters != 3 {
		t.Errorf("threshold changed on partial update: %v", ctrl.settings.DistanceThresholdMeters)
	}
}

func TestFollowHandler_Mode(t *testing.T) {
	ctrl := newFakeController()
	h := NewFollowHandler(ctrl)

	req := httptest.NewRequest("PUT", "/api/follow/mode", strings.NewReader(`{"mode": "manual"}`))
	w := httptest.NewRecorder()
	h.HandleSetMode(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("StatusCode: got %v, want %v", w.Code, http.StatusOK)
	}
	if ctrl.mode != model.DeployManual {
		t.Errorf("mode: got %v, want manual", ctrl.mode)
	}

	req = httptest.NewRequest("PUT", "/api/follow/mode", strings.NewReader(`{"mode": "sideways"}`))
	w = httptest.NewRecorder()
	h.HandleSetMode(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("StatusCode: got %v, want %v", w.Code, http.StatusBadRequest)
	}
	if ctrl.mode != model.DeployManual {
		t.Errorf("mode mutated by invalid request: %v", ctrl.mode)
	}
}

func TestFollowHandler_Pending(t *testing.T) {
	ctrl := newFakeController()
	ctrl.pending = []model.PendingDeployment{
		{
			BuoyID:         "b1",
			MarkID:         "m1",
			Slot:           model.SlotRegular,
			Target:         geo.Point{Lat: 37.8, Lng: -122.27},
			DistanceMeters: 12.5,
		},
	}
	h := NewFollowHandler(ctrl)

	req := httptest.NewRequest("GET", "/api/follow/pending", http.NoBody)
	w := httptest.NewRecorder()
	h.HandlePending(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("StatusCode: got %v, want %v", w.Code, http.StatusOK)
	}
	var got PendingResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count != 1 || len(got.Pending) != 1 {
		t.Fatalf("count: got %d/%d entries, want 1", got.Count, len(got.Pending))
	}
	if got.Pending[0].BuoyID != "b1" {
		t.Errorf("buoy: got %q, want b1", got.Pending[0].BuoyID)
	}
}

func TestFollowHandler_PendingEmptyIsArray(t *testing.T) {
	h := NewFollowHandler(newFakeController())

	req := httptest.NewRequest("GET", "/api/follow/pending", http.NoBody)
	w := httptest.NewRecorder()
	h.HandlePending(w, req)

	if !strings.Contains(w.Body.String(), `"pending":[]`) {
		t.Errorf("expected empty array, got %s", w.Body.String())
	}
}

func TestFollowHandler_Deploy(t *testing.T) {
	ctrl := newFakeController()
	h := NewFollowHandler(ctrl)

	req := httptest.NewRequest("POST", "/api/follow/deploy", http.NoBody)
	w := httptest.NewRecorder()
	h.HandleDeploy(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("StatusCode: got %v, want %v", w.Code, http.StatusOK)
	}
	if ctrl.deployCalls != 1 {
		t.Errorf("deploy calls: got %d, want 1", ctrl.deployCalls)
	}

	ctrl.deployErr = errors.New("radio down")
	w = httptest.NewRecorder()
	h.HandleDeploy(w, httptest.NewRequest("POST", "/api/follow/deploy", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("StatusCode: got %v, want %v", w.Code, http.StatusInternalServerError)
	}
}
