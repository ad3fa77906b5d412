// Package course derives physical buoy targets from course geometry and wind.
package course

import (
	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

// GateTarget computes the physical target point for one side of a gate:
// widthMeters/2 from the center along the bearing perpendicular to the wind
// (wind − 90° for port, wind + 90° for starboard), using the spherical
// forward geodesic so the offset stays square away from the equator.
//
// The result depends on live wind and geometry and must be recomputed on
// every change; callers must not cache it.
func GateTarget(center geo.Point, widthMeters, windBearingDeg float64, side model.GateSide) geo.Point {
	// A degenerate gate collapses both targets onto the center.
	if widthMeters <= 0 {
		return center
	}

	offset := windBearingDeg - 90
	if side == model.SideStarboard {
		offset = windBearingDeg + 90
	}

	return geo.DestinationPoint(center, widthMeters/2, geo.NormalizeBearing(offset))
}

// SlotTarget binds one physical slot of a mark to its resolved target point.
// BuoyID is empty when the slot is open.
type SlotTarget struct {
	MarkID string
	Slot   model.SlotKind
	BuoyID string
	Target geo.Point
}

// ResolveTargets computes the slot targets of a mark under the current wind.
// A regular mark yields one slot at the mark position; a gate mark yields a
// port and a starboard slot, each independently optional in assignment.
func ResolveTargets(m *model.Mark, windBearingDeg float64) []SlotTarget {
	if !m.Gate {
		return []SlotTarget{{
			MarkID: m.ID,
			Slot:   model.SlotRegular,
			BuoyID: m.AssignedBuoyID,
			Target: m.Position,
		}}
	}

	width := m.GateWidthMeters()
	return []SlotTarget{
		{
			MarkID: m.ID,
			Slot:   model.SlotPort,
			BuoyID: m.GatePortBuoyID,
			Target: GateTarget(m.Position, width, windBearingDeg, model.SidePort),
		},
		{
			MarkID: m.ID,
			Slot:   model.SlotStarboard,
			BuoyID: m.GateStarboardBuoyID,
			Target: GateTarget(m.Position, width, windBearingDeg, model.SideStarboard),
		},
	}
}

// AssignedTargets filters ResolveTargets down to slots that have a buoy.
func AssignedTargets(m *model.Mark, windBearingDeg float64) []SlotTarget {
	all := ResolveTargets(m, windBearingDeg)
	out := all[:0]
	for _, st := range all {
		if st.BuoyID != "" {
			out = append(out, st)
		}
	}
	return out
}

// OpenSlots filters ResolveTargets down to slots without a buoy.
func OpenSlots(m *model.Mark, windBearingDeg float64) []SlotTarget {
	all := ResolveTargets(m, windBearingDeg)
	out := all[:0]
	for _, st := range all {
		if st.BuoyID == "" {
			out = append(out, st)
		}
	}
	return out
}
