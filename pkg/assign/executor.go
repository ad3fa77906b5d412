package assign

import (
	"context"
	"fmt"
	"log/slog"

	"markfleet/pkg/command"
	"markfleet/pkg/model"
	"markfleet/pkg/store"
	"markfleet/pkg/tracker"
)

// SlotRef identifies one slot left assigned but not dispatched.
type SlotRef struct {
	MarkID string         `json:"mark_id"`
	Slot   model.SlotKind `json:"slot"`
	BuoyID string         `json:"buoy_id"`
}

// Result reports the outcome of one auto-assignment run. Partial batch
// failure is data, not an error: the caller decides how to surface it.
type Result struct {
	Assignments []Assignment `json:"assignments"`
	// Completed counts pairs that were both persisted and dispatched.
	Completed int `json:"completed"`
	// Failed counts pairs whose persistence step failed (the assignment
	// was rolled back with a compensating clear).
	Failed int `json:"failed"`
	// AssignedNotDispatched lists slots whose assignment persisted but
	// whose move command failed. These need operator attention or a
	// manual deploy.
	AssignedNotDispatched []SlotRef `json:"assigned_not_dispatched,omitempty"`
	// Errors carries the per-pair failure messages for notification.
	Errors []string `json:"errors,omitempty"`
}

// Engine runs the full auto-assignment: collect open slots, plan the
// bottleneck matching, then execute the persist+dispatch pairs.
type Engine struct {
	view   store.CourseView
	assign store.AssignmentStore
	sender command.Sender
	tr     *tracker.Tracker
}

// NewEngine creates an assignment engine.
func NewEngine(view store.CourseView, assign store.AssignmentStore, sender command.Sender, tr *tracker.Tracker) *Engine {
	return &Engine{view: view, assign: assign, sender: sender, tr: tr}
}

// Run performs one auto-assignment over the course. It returns
// InsufficientBuoysError (and performs nothing) when open slots outnumber
// available buoys; all other failures are reported inside the Result.
func (e *Engine) Run(ctx context.Context, courseID string) (*Result, error) {
	crs, err := e.view.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if crs == nil {
		return nil, fmt.Errorf("course %q not found", courseID)
	}
	marks, err := e.view.ListMarks(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load marks: %w", err)
	}
	buoys, err := e.view.ListBuoys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load buoys: %w", err)
	}

	slots := CollectOpenSlots(marks, crs.WindBearingDeg)
	available := AvailableBuoys(marks, buoys)

	plan, err := Plan(slots, available)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan), nil
}

// Execute runs the batch of persist+dispatch pairs with recovery tracking.
// The two operations of each pair are attempted independently: a failed
// persist gets a compensating clear; a failed dispatch after a successful
// persist leaves the slot assigned-but-not-dispatched and reports it.
func (e *Engine) Execute(ctx context.Context, plan []Assignment) *Result {
	res := &Result{Assignments: plan}

	for _, a := range plan {
		if err := e.assign.AssignBuoy(ctx, a.MarkID, a.Slot, a.BuoyID); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("assign %s/%s to %s: %v", a.MarkID, a.Slot, a.BuoyID, err))

			// Best-effort compensation; the slot may be half-written.
			if cerr := e.assign.ClearAssignment(ctx, a.MarkID, a.Slot); cerr != nil {
				slog.Error("compensating clear failed", "mark", a.MarkID, "slot", a.Slot, "error", cerr)
			}
			continue
		}

		if err := e.sender.Send(ctx, a.BuoyID, command.MoveToTarget(a.Target)); err != nil {
			e.tr.TrackFailed(a.BuoyID)
			res.AssignedNotDispatched = append(res.AssignedNotDispatched, SlotRef{
				MarkID: a.MarkID,
				Slot:   a.Slot,
				BuoyID: a.BuoyID,
			})
			res.Errors = append(res.Errors, fmt.Sprintf("dispatch %s to %s/%s: %v", a.BuoyID, a.MarkID, a.Slot, err))
			continue
		}
		e.tr.TrackAccepted(a.BuoyID)
		res.Completed++
	}
	return res
}
