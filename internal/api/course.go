package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"markfleet/pkg/course"
	"markfleet/pkg/geo"
	"markfleet/pkg/store"
)

// MarkNotifier receives mark-moved notifications, normally the follow
// controller.
type MarkNotifier interface {
	MarkUpdated(ctx context.Context, markID string) error
}

// CourseHandler serves the course as GeoJSON and accepts mark edits.
type CourseHandler struct {
	view     store.CourseView
	edits    store.CourseStore
	fleet    FleetSource
	notifier MarkNotifier
	courseID string
}

func NewCourseHandler(view store.CourseView, edits store.CourseStore, fleet FleetSource, notifier MarkNotifier, courseID string) *CourseHandler {
	return &CourseHandler{
		view:     view,
		edits:    edits,
		fleet:    fleet,
		notifier: notifier,
		courseID: courseID,
	}
}

// HandleCourse returns the active course as a GeoJSON FeatureCollection:
// one point feature per mark, per resolved slot target, and per buoy.
func (h *CourseHandler) HandleCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	crs, err := h.view.GetCourse(ctx, h.courseID)
	if err != nil {
		slog.Error("Failed to load course", "course", h.courseID, "error", err)
		http.Error(w, "course unavailable", http.StatusInternalServerError)
		return
	}
	if crs == nil {
		http.Error(w, "no active course", http.StatusNotFound)
		return
	}
	marks, err := h.view.ListMarks(ctx, h.courseID)
	if err != nil {
		slog.Error("Failed to list marks", "course", h.courseID, "error", err)
		http.Error(w, "course unavailable", http.StatusInternalServerError)
		return
	}
	buoys, err := h.fleet.ListBuoys(ctx)
	if err != nil {
		slog.Error("Failed to list buoys", "error", err)
		http.Error(w, "fleet unavailable", http.StatusInternalServerError)
		return
	}

	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"course_id":        crs.ID,
		"course_name":      crs.Name,
		"wind_bearing_deg": crs.WindBearingDeg,
	}

	for i := range marks {
		m := &marks[i]
		f := geojson.NewFeature(orb.Point{m.Position.Lng, m.Position.Lat})
		f.Properties = geojson.Properties{
			"kind": "mark",
			"id":   m.ID,
			"role": string(m.Role),
			"seq":  m.Seq,
			"gate": m.Gate,
		}
		if m.Gate {
			f.Properties["gate_width_meters"] = m.GateWidthMeters()
		}
		fc.Append(f)

		for _, st := range course.ResolveTargets(m, crs.WindBearingDeg) {
			tf := geojson.NewFeature(orb.Point{st.Target.Lng, st.Target.Lat})
			tf.Properties = geojson.Properties{
				"kind":    "target",
				"mark_id": st.MarkID,
				"slot":    string(st.Slot),
			}
			if st.BuoyID != "" {
				tf.Properties["buoy_id"] = st.BuoyID
			}
			fc.Append(tf)
		}
	}

	for i := range buoys {
		b := &buoys[i]
		f := geojson.NewFeature(orb.Point{b.Position.Lng, b.Position.Lat})
		f.Properties = geojson.Properties{
			"kind":  "buoy",
			"id":    b.ID,
			"name":  b.Name,
			"state": string(b.State),
		}
		if b.ETASeconds != nil {
			f.Properties["eta_seconds"] = *b.ETASeconds
		}
		fc.Append(f)
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		slog.Error("Failed to encode course response", "error", err)
	}
}

// PositionRequest is the mark position update payload.
type PositionRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HandleSetPosition persists a mark move and retargets the mark's buoys.
func (h *CourseHandler) HandleSetPosition(w http.ResponseWriter, r *http.Request) {
	markID := r.PathValue("id")

	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	pos := geo.Point{Lat: req.Lat, Lng: req.Lng}
	if !pos.IsValid() {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.edits.SetMarkPosition(ctx, markID, pos); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "unknown mark", http.StatusNotFound)
			return
		}
		slog.Error("Failed to persist mark position", "mark", markID, "error", err)
		http.Error(w, "persist failed", http.StatusInternalServerError)
		return
	}

	// Dispatch failures don't undo the edit; the drift poller retries.
	if err := h.notifier.MarkUpdated(ctx, markID); err != nil {
		slog.Warn("Mark moved but dispatch incomplete", "mark", markID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"status": "ok"}`); err != nil {
		slog.Error("Failed to write position response", "error", err)
	}
}
