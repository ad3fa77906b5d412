// Package model defines the shared domain types for course marks and the buoy fleet.
package model

import (
	"time"

	"markfleet/pkg/geo"
)

// BuoyState represents the lifecycle state of a buoy.
type BuoyState string

const (
	// StateIdle indicates the buoy is free and holding no station.
	StateIdle BuoyState = "idle"
	// StateMovingToTarget indicates the buoy is transiting to a commanded target.
	StateMovingToTarget BuoyState = "moving_to_target"
	// StateHoldingPosition indicates the buoy is station-keeping on its target.
	StateHoldingPosition BuoyState = "holding_position"
	// StateStationKeepingDegraded indicates station-keeping with reduced accuracy.
	StateStationKeepingDegraded BuoyState = "station_keeping_degraded"
	// StateUnavailable indicates connectivity to the buoy is lost.
	StateUnavailable BuoyState = "unavailable"
	// StateMaintenance indicates the buoy is withdrawn for service.
	StateMaintenance BuoyState = "maintenance"
	// StateFault indicates a hardware fault reported by the buoy.
	StateFault BuoyState = "fault"
)

// Commandable reports whether this subsystem may send commands in the state.
// Maintenance, fault and unavailable are cleared externally, never from here.
func (s BuoyState) Commandable() bool {
	switch s {
	case StateUnavailable, StateMaintenance, StateFault:
		return false
	}
	return true
}

// Buoy represents one physical or simulated station-keeping buoy.
type Buoy struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	State    BuoyState  `json:"state"`
	Position geo.Point  `json:"position"`
	Target   *geo.Point `json:"target,omitempty"` // non-nil iff State == moving_to_target
	SpeedKts float64    `json:"speed_kts"`
	// ETASeconds is the estimated seconds to arrival while transiting.
	ETASeconds *float64 `json:"eta_seconds,omitempty"`

	// Telemetry, read-only to the coordination subsystem.
	BatteryPct float64   `json:"battery_pct"`
	SignalPct  float64   `json:"signal_pct"`
	WaterTempC float64   `json:"water_temp_c"`
	LastSeen   time.Time `json:"last_seen"`
}

// MarkRole describes the function of a mark within the course layout.
type MarkRole string

const (
	RoleStart    MarkRole = "start"
	RoleWindward MarkRole = "windward"
	RoleOffset   MarkRole = "offset"
	RoleLeeward  MarkRole = "leeward"
	RoleFinish   MarkRole = "finish"
)

// SlotKind identifies which physical position of a mark a buoy serves.
type SlotKind string

const (
	SlotRegular   SlotKind = "regular"
	SlotPort      SlotKind = "port"
	SlotStarboard SlotKind = "starboard"
)

// GateSide selects one end of a gate.
type GateSide string

const (
	SidePort      GateSide = "port"
	SideStarboard GateSide = "starboard"
)

// Mark represents one course waypoint. Marks are owned and mutated by course
// editing; the coordination subsystem treats them as read-only triggers.
type Mark struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	Role     MarkRole  `json:"role"`
	Seq      int       `json:"seq"`
	Position geo.Point `json:"position"`

	// Regular mark assignment.
	AssignedBuoyID string `json:"assigned_buoy_id,omitempty"`

	// Gate marks carry two buoys straddling the center, square to the wind.
	Gate                 bool    `json:"gate"`
	GateWidthBoatLengths float64 `json:"gate_width_boat_lengths,omitempty"`
	BoatLengthMeters     float64 `json:"boat_length_meters,omitempty"`
	GatePortBuoyID       string  `json:"gate_port_buoy_id,omitempty"`
	GateStarboardBuoyID  string  `json:"gate_starboard_buoy_id,omitempty"`
}

// GateWidthMeters returns the total gate width in meters.
func (m *Mark) GateWidthMeters() float64 {
	return m.GateWidthBoatLengths * m.BoatLengthMeters
}

// Course represents the active race course snapshot.
type Course struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	WindBearingDeg float64   `json:"wind_bearing_deg"` // "wind from", 0-360
	CreatedAt      time.Time `json:"created_at"`
}

// DeployMode switches between continuous auto-correction and operator-batched
// correction.
type DeployMode string

const (
	DeployAutomatic DeployMode = "automatic"
	DeployManual    DeployMode = "manual"
)

// FollowSettings holds the user-tunable follow controller tolerances.
type FollowSettings struct {
	// DistanceThresholdMeters triggers a drift correction from the poller.
	DistanceThresholdMeters float64 `json:"distance_threshold_meters"`
	// PollInterval is the drift poll period.
	PollInterval time.Duration `json:"poll_interval"`
	// DebounceTime is the minimum spacing between commands to one buoy.
	DebounceTime time.Duration `json:"debounce_time"`
	// AcceptableDistanceMeters is the looser "needs deployment at all"
	// tolerance used in manual mode.
	AcceptableDistanceMeters float64 `json:"acceptable_distance_meters"`
}

// DefaultFollowSettings returns the reference defaults.
func DefaultFollowSettings() FollowSettings {
	return FollowSettings{
		DistanceThresholdMeters:  3,
		PollInterval:             5 * time.Second,
		DebounceTime:             3 * time.Second,
		AcceptableDistanceMeters: 1,
	}
}

// PendingDeployment is one entry of the manual-mode work queue. It is
// computed on demand and never persisted.
type PendingDeployment struct {
	BuoyID         string    `json:"buoy_id"`
	BuoyPosition   geo.Point `json:"buoy_position"`
	MarkID         string    `json:"mark_id"`
	Slot           SlotKind  `json:"slot"`
	Target         geo.Point `json:"target"`
	DistanceMeters float64   `json:"distance_meters"`
}
