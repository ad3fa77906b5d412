package store

import (
	"context"
	"errors"

	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

// ErrNotFound reports that the referenced course, mark or buoy does not exist.
var ErrNotFound = errors.New("not found")

// CourseView is the read surface the coordination packages poll: the active
// course with its wind bearing, the marks with their assignment fields, and
// the fleet with state and position.
type CourseView interface {
	GetCourse(ctx context.Context, courseID string) (*model.Course, error)
	ListMarks(ctx context.Context, courseID string) ([]model.Mark, error)
	ListBuoys(ctx context.Context) ([]model.Buoy, error)
}

// CourseStore handles course and mark persistence, owned by course editing.
type CourseStore interface {
	SaveCourse(ctx context.Context, c *model.Course) error
	SetWindBearing(ctx context.Context, courseID string, deg float64) error
	SaveMark(ctx context.Context, m *model.Mark) error
	SetMarkPosition(ctx context.Context, markID string, pos geo.Point) error
}

// FleetStore handles buoy inventory persistence.
type FleetStore interface {
	SaveBuoy(ctx context.Context, b *model.Buoy) error
}

// AssignmentStore is the write surface of the auto-assignment engine:
// binding a buoy to a mark slot, and the compensating clear.
type AssignmentStore interface {
	AssignBuoy(ctx context.Context, markID string, slot model.SlotKind, buoyID string) error
	ClearAssignment(ctx context.Context, markID string, slot model.SlotKind) error
}

// Store composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	CourseView
	CourseStore
	FleetStore
	AssignmentStore

	// Close closes the store connection.
	Close() error
}
