package assign

import (
	"context"
	"errors"
	"sync"
	"testing"

	"markfleet/pkg/command"
	"markfleet/pkg/geo"
	"markfleet/pkg/model"
	"markfleet/pkg/tracker"
)

type fakeAssignStore struct {
	mu         sync.Mutex
	assigned   []SlotRef
	cleared    []SlotRef
	failAssign map[string]error // markID -> error
}

func (f *fakeAssignStore) AssignBuoy(ctx context.Context, markID string, slot model.SlotKind, buoyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failAssign[markID]; err != nil {
		return err
	}
	f.assigned = append(f.assigned, SlotRef{MarkID: markID, Slot: slot, BuoyID: buoyID})
	return nil
}

func (f *fakeAssignStore) ClearAssignment(ctx context.Context, markID string, slot model.SlotKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, SlotRef{MarkID: markID, Slot: slot})
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	failBy map[string]error // buoyID -> error
}

func (f *fakeSender) Send(ctx context.Context, buoyID string, cmd command.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failBy[buoyID]; err != nil {
		return err
	}
	f.sent = append(f.sent, buoyID)
	return nil
}

func testPlan() []Assignment {
	return []Assignment{
		{MarkID: "m1", Slot: model.SlotRegular, BuoyID: "b1", Target: geo.Point{Lat: 37.8, Lng: -122.27}},
		{MarkID: "m2", Slot: model.SlotPort, BuoyID: "b2", Target: geo.Point{Lat: 37.81, Lng: -122.27}},
		{MarkID: "m3", Slot: model.SlotStarboard, BuoyID: "b3", Target: geo.Point{Lat: 37.82, Lng: -122.27}},
	}
}

func TestExecuteAllSucceed(t *testing.T) {
	st := &fakeAssignStore{}
	sender := &fakeSender{}
	e := NewEngine(nil, st, sender, tracker.New())

	res := e.Execute(context.Background(), testPlan())
	if res.Completed != 3 || res.Failed != 0 || len(res.AssignedNotDispatched) != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(st.assigned) != 3 || len(sender.sent) != 3 {
		t.Errorf("assigned %d, sent %d; want 3, 3", len(st.assigned), len(sender.sent))
	}
}

func TestExecutePersistFailureCompensates(t *testing.T) {
	st := &fakeAssignStore{failAssign: map[string]error{"m2": errors.New("db locked")}}
	sender := &fakeSender{}
	e := NewEngine(nil, st, sender, tracker.New())

	res := e.Execute(context.Background(), testPlan())
	if res.Completed != 2 || res.Failed != 1 {
		t.Errorf("result = %+v, want 2 completed 1 failed", res)
	}
	if len(st.cleared) != 1 || st.cleared[0].MarkID != "m2" || st.cleared[0].Slot != model.SlotPort {
		t.Errorf("compensating clears = %+v, want m2/port", st.cleared)
	}
	// The failed pair's buoy was never commanded.
	for _, id := range sender.sent {
		if id == "b2" {
			t.Error("b2 dispatched despite persist failure")
		}
	}
	if len(res.Errors) != 1 {
		t.Errorf("errors = %v, want 1 entry", res.Errors)
	}
}

func TestExecuteDispatchFailureReported(t *testing.T) {
	st := &fakeAssignStore{}
	sender := &fakeSender{failBy: map[string]error{"b3": errors.New("no ack")}}
	tr := tracker.New()
	e := NewEngine(nil, st, sender, tr)

	res := e.Execute(context.Background(), testPlan())
	if res.Completed != 2 || res.Failed != 0 {
		t.Errorf("result = %+v, want 2 completed 0 failed", res)
	}
	if len(res.AssignedNotDispatched) != 1 {
		t.Fatalf("assigned-not-dispatched = %+v, want 1 entry", res.AssignedNotDispatched)
	}
	ref := res.AssignedNotDispatched[0]
	if ref.MarkID != "m3" || ref.Slot != model.SlotStarboard || ref.BuoyID != "b3" {
		t.Errorf("ref = %+v", ref)
	}
	// The assignment itself stays persisted: no compensating clear.
	if len(st.cleared) != 0 {
		t.Errorf("cleared = %+v, want none", st.cleared)
	}
	if s := tr.Snapshot()["b3"]; s.Failed != 1 {
		t.Errorf("tracker failed = %d, want 1", s.Failed)
	}
}
