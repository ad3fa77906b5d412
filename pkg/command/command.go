// Package command defines the buoy command protocol and the legal state
// transitions it produces.
package command

import (
	"context"
	"errors"
	"fmt"

	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

var (
	// ErrInvalidCommand is returned for malformed target coordinates,
	// rejected before any send.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrCommandFailed is returned for a transport or device-reported
	// failure. It is surfaced to the caller and not retried here.
	ErrCommandFailed = errors.New("command failed")
	// ErrNotCommandable is returned when the buoy's state admits no command
	// from this subsystem (maintenance, fault, unavailable) or the specific
	// transition is illegal.
	ErrNotCommandable = errors.New("buoy not commandable")
)

// Kind identifies a command.
type Kind string

const (
	KindMoveToTarget Kind = "move_to_target"
	KindHoldPosition Kind = "hold_position"
	KindCancel       Kind = "cancel"
)

// Command is one instruction addressed to a single buoy. Target is only
// meaningful for move_to_target.
type Command struct {
	Kind   Kind
	Target geo.Point
}

// MoveToTarget builds a move command toward p.
func MoveToTarget(p geo.Point) Command {
	return Command{Kind: KindMoveToTarget, Target: p}
}

// HoldPosition builds a hold command.
func HoldPosition() Command {
	return Command{Kind: KindHoldPosition}
}

// Cancel builds a cancel command.
func Cancel() Command {
	return Command{Kind: KindCancel}
}

// Sender delivers a command to the device or simulator behind a buoy.
// Sends are fire-and-forget from the controller's perspective; the returned
// error reflects protocol validation or device-reported failure.
type Sender interface {
	Send(ctx context.Context, buoyID string, cmd Command) error
}

// Validate checks that cmd is legal from the given state, without applying
// it. Resending move_to_target while already moving re-affirms the target.
func Validate(state model.BuoyState, cmd Command) error {
	if !state.Commandable() {
		return fmt.Errorf("%w: state %s", ErrNotCommandable, state)
	}

	switch cmd.Kind {
	case KindMoveToTarget:
		if !cmd.Target.IsValid() {
			return fmt.Errorf("%w: target (%v, %v) out of range", ErrInvalidCommand, cmd.Target.Lat, cmd.Target.Lng)
		}
		return nil
	case KindHoldPosition:
		if state != model.StateMovingToTarget && state != model.StateHoldingPosition {
			return fmt.Errorf("%w: hold_position from %s", ErrNotCommandable, state)
		}
		return nil
	case KindCancel:
		if state != model.StateMovingToTarget && state != model.StateHoldingPosition {
			return fmt.Errorf("%w: cancel from %s", ErrNotCommandable, state)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, cmd.Kind)
	}
}

// Apply validates cmd against b's state and mutates b with the transition.
// It maintains the invariant that Target is non-nil iff the buoy is in
// moving_to_target.
func Apply(b *model.Buoy, cmd Command) error {
	if err := Validate(b.State, cmd); err != nil {
		return err
	}

	switch cmd.Kind {
	case KindMoveToTarget:
		t := cmd.Target
		b.State = model.StateMovingToTarget
		b.Target = &t
	case KindHoldPosition:
		b.State = model.StateHoldingPosition
		b.Target = nil
		b.SpeedKts = 0
		b.ETASeconds = nil
	case KindCancel:
		b.State = model.StateIdle
		b.Target = nil
		b.SpeedKts = 0
		b.ETASeconds = nil
	}
	return nil
}
