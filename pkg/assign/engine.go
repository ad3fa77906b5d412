// Package assign matches idle buoys to open course slots, minimizing the
// worst-case deployment distance, and executes the resulting batch with
// recovery tracking.
package assign

import (
	"fmt"
	"sort"

	"markfleet/pkg/course"
	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

// InsufficientBuoysError reports an auto-assignment precondition violation:
// fewer available buoys than open slots. No partial assignment is made.
type InsufficientBuoysError struct {
	Needed    int
	Available int
}

func (e *InsufficientBuoysError) Error() string {
	return fmt.Sprintf("insufficient buoys: need %d, have %d", e.Needed, e.Available)
}

// Assignment pairs one open slot with one buoy.
type Assignment struct {
	MarkID         string         `json:"mark_id"`
	Slot           model.SlotKind `json:"slot"`
	Target         geo.Point      `json:"target"`
	BuoyID         string         `json:"buoy_id"`
	DistanceMeters float64        `json:"distance_meters"`
}

// CollectOpenSlots gathers every unfilled slot across the marks: one per
// regular unassigned mark, one per missing gate side.
func CollectOpenSlots(marks []model.Mark, windBearingDeg float64) []course.SlotTarget {
	var slots []course.SlotTarget
	for i := range marks {
		slots = append(slots, course.OpenSlots(&marks[i], windBearingDeg)...)
	}
	return slots
}

// AvailableBuoys filters the fleet down to idle buoys not already serving a
// slot on any mark.
func AvailableBuoys(marks []model.Mark, buoys []model.Buoy) []model.Buoy {
	taken := make(map[string]bool)
	for _, m := range marks {
		for _, id := range []string{m.AssignedBuoyID, m.GatePortBuoyID, m.GateStarboardBuoyID} {
			if id != "" {
				taken[id] = true
			}
		}
	}

	var available []model.Buoy
	for _, b := range buoys {
		if b.State == model.StateIdle && !taken[b.ID] {
			available = append(available, b)
		}
	}
	return available
}

// Plan computes a greedy bottleneck matching: slots are served in
// descending order of their minimum distance to any available buoy, so the
// hardest-to-serve slot picks first; each slot takes its nearest buoy not
// yet used by this run. Ties go to the first minimal candidate found.
//
// The heuristic approximates (not proves) the minimax optimum, which is
// acceptable for fleet sizes in the tens.
func Plan(slots []course.SlotTarget, available []model.Buoy) ([]Assignment, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	if len(available) < len(slots) {
		return nil, &InsufficientBuoysError{Needed: len(slots), Available: len(available)}
	}

	type rankedSlot struct {
		idx     int
		minDist float64
	}
	ranked := make([]rankedSlot, len(slots))
	for i, s := range slots {
		min := -1.0
		for _, b := range available {
			d := geo.Distance(b.Position, s.Target)
			if min < 0 || d < min {
				min = d
			}
		}
		ranked[i] = rankedSlot{idx: i, minDist: min}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].minDist > ranked[b].minDist
	})

	used := make(map[string]bool, len(slots))
	assignments := make([]Assignment, 0, len(slots))
	for _, rs := range ranked {
		s := slots[rs.idx]

		bestIdx := -1
		bestDist := 0.0
		for j, b := range available {
			if used[b.ID] {
				continue
			}
			d := geo.Distance(b.Position, s.Target)
			if bestIdx < 0 || d < bestDist {
				bestIdx = j
				bestDist = d
			}
		}

		b := available[bestIdx]
		used[b.ID] = true
		assignments = append(assignments, Assignment{
			MarkID:         s.MarkID,
			Slot:           s.Slot,
			Target:         s.Target,
			BuoyID:         b.ID,
			DistanceMeters: bestDist,
		})
	}
	return assignments, nil
}
