package assign

import (
	"errors"
	"testing"

	"markfleet/pkg/course"
	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

var base = geo.Point{Lat: 37.8, Lng: -122.27}

func slotAt(markID string, offsetMeters, bearing float64) course.SlotTarget {
	return course.SlotTarget{
		MarkID: markID,
		Slot:   model.SlotRegular,
		Target: geo.DestinationPoint(base, offsetMeters, bearing),
	}
}

func buoyAt(id string, offsetMeters, bearing float64) model.Buoy {
	return model.Buoy{
		ID:       id,
		State:    model.StateIdle,
		Position: geo.DestinationPoint(base, offsetMeters, bearing),
	}
}

func TestPlanInsufficientBuoys(t *testing.T) {
	slots := []course.SlotTarget{
		slotAt("m1", 0, 0), slotAt("m2", 100, 0), slotAt("m3", 200, 0),
		slotAt("m4", 300, 0), slotAt("m5", 400, 0),
	}
	buoys := []model.Buoy{buoyAt("b1", 0, 90), buoyAt("b2", 50, 90), buoyAt("b3", 100, 90)}

	plan, err := Plan(slots, buoys)
	var insufficientErr *InsufficientBuoysError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("Plan() = %v, want InsufficientBuoysError", err)
	}
	if insufficientErr.Needed != 5 || insufficientErr.Available != 3 {
		t.Errorf("error = %+v, want needed 5 available 3", insufficientErr)
	}
	if plan != nil {
		t.Errorf("plan = %v, want nil (no partial assignment)", plan)
	}
}

func TestPlanNoDuplicateBuoys(t *testing.T) {
	slots := []course.SlotTarget{
		slotAt("m1", 0, 0), slotAt("m2", 50, 90), slotAt("m3", 100, 180),
	}
	buoys := []model.Buoy{
		buoyAt("b1", 10, 0), buoyAt("b2", 10, 90), buoyAt("b3", 10, 180), buoyAt("b4", 2000, 270),
	}

	plan, err := Plan(slots, buoys)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("len(plan) = %d, want 3", len(plan))
	}
	seen := make(map[string]bool)
	for _, a := range plan {
		if seen[a.BuoyID] {
			t.Errorf("buoy %s assigned twice", a.BuoyID)
		}
		seen[a.BuoyID] = true
	}
}

func TestPlanBottleneckOrdering(t *testing.T) {
	// A remote slot and a near slot compete for the single close buoy pair.
	// Greedy-by-hardest must give the remote slot its nearest buoy first so
	// the worst-case leg stays short.
	remote := course.SlotTarget{MarkID: "remote", Slot: model.SlotRegular, Target: geo.DestinationPoint(base, 5000, 0)}
	near := course.SlotTarget{MarkID: "near", Slot: model.SlotRegular, Target: base}

	farBuoy := buoyAt("far", 4000, 0)   // 1000 m from remote, 4000 m from near
	nearBuoy := buoyAt("near-b", 5, 90) // ~5 m from near, ~5000 m from remote

	plan, err := Plan([]course.SlotTarget{near, remote}, []model.Buoy{nearBuoy, farBuoy})
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}

	got := make(map[string]string)
	for _, a := range plan {
		got[a.MarkID] = a.BuoyID
	}
	if got["remote"] != "far" || got["near"] != "near-b" {
		t.Errorf("assignments = %v, want remote->far near->near-b", got)
	}
}

func TestPlanEmptySlots(t *testing.T) {
	plan, err := Plan(nil, []model.Buoy{buoyAt("b1", 0, 0)})
	if err != nil || plan != nil {
		t.Errorf("Plan(nil) = %v, %v; want nil, nil", plan, err)
	}
}

func TestCollectOpenSlots(t *testing.T) {
	marks := []model.Mark{
		{ID: "m1", Role: model.RoleWindward, Position: base},                        // open regular
		{ID: "m2", Role: model.RoleStart, Position: base, AssignedBuoyID: "b9"},     // filled
		{ID: "m3", Role: model.RoleLeeward, Position: base, Gate: true,
			GateWidthBoatLengths: 8, BoatLengthMeters: 6, GatePortBuoyID: "b8"}, // starboard open
	}

	slots := CollectOpenSlots(marks, 0)
	if len(slots) != 2 {
		t.Fatalf("len = %d, want 2", len(slots))
	}
	if slots[0].MarkID != "m1" || slots[0].Slot != model.SlotRegular {
		t.Errorf("slot 0: %+v", slots[0])
	}
	if slots[1].MarkID != "m3" || slots[1].Slot != model.SlotStarboard {
		t.Errorf("slot 1: %+v", slots[1])
	}
}

func TestAvailableBuoys(t *testing.T) {
	marks := []model.Mark{
		{ID: "m1", AssignedBuoyID: "b1"},
		{ID: "m2", Gate: true, GatePortBuoyID: "b2"},
	}
	buoys := []model.Buoy{
		{ID: "b1", State: model.StateHoldingPosition}, // assigned
		{ID: "b2", State: model.StateMovingToTarget},  // assigned
		{ID: "b3", State: model.StateIdle},            // available
		{ID: "b4", State: model.StateFault},           // wrong state
		{ID: "b5", State: model.StateIdle},            // available
	}

	got := AvailableBuoys(marks, buoys)
	if len(got) != 2 || got[0].ID != "b3" || got[1].ID != "b5" {
		t.Errorf("AvailableBuoys = %+v, want b3, b5", got)
	}
}
