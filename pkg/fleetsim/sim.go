// Package fleetsim drives a virtual buoy fleet through the real command
// protocol, standing in for physical hardware in demos and tests.
package fleetsim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"markfleet/pkg/command"
	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

const (
	// tickInterval is the fixed physics period.
	tickInterval = 2 * time.Second

	// nominalSpeedKts is used for the initial ETA at command time.
	nominalSpeedKts = 3.25

	// Speed draw bounds per tick, in knots.
	speedMinKts = 3.0
	speedMaxKts = 3.5

	// arrivalRadiusNM is the snap-to-arrival threshold.
	arrivalRadiusNM = 0.01
)

// Sim implements command.Sender against a virtual fleet.
type Sim struct {
	mu     sync.Mutex
	buoys  map[string]*model.Buoy
	order  []string
	rng    *rand.Rand
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a simulator seeded with the given fleet and starts its
// physics loop.
func New(fleet []model.Buoy) *Sim {
	s := &Sim{
		buoys:  make(map[string]*model.Buoy, len(fleet)),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		stopCh: make(chan struct{}),
	}
	for i := range fleet {
		b := fleet[i]
		if b.State == "" {
			b.State = model.StateIdle
		}
		b.LastSeen = time.Now()
		s.buoys[b.ID] = &b
		s.order = append(s.order, b.ID)
	}

	s.wg.Add(1)
	go s.physicsLoop()
	return s
}

// Close stops the physics loop and releases resources.
func (s *Sim) Close() error {
	close(s.stopCh)
	s.wg.Wait()
	return nil
}

// Send implements command.Sender: it validates and applies the command to
// the addressed virtual buoy, exactly as a device acknowledgment would.
func (s *Sim) Send(ctx context.Context, buoyID string, cmd command.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buoys[buoyID]
	if !ok {
		return fmt.Errorf("%w: unknown buoy %q", command.ErrCommandFailed, buoyID)
	}

	if err := command.Apply(b, cmd); err != nil {
		return err
	}

	if cmd.Kind == command.KindMoveToTarget {
		// Initial ETA from the straight-line distance at nominal speed.
		eta := geo.DistanceNM(b.Position, cmd.Target) / nominalSpeedKts * 3600
		b.ETASeconds = &eta
	}
	b.LastSeen = time.Now()
	return nil
}

// ListBuoys returns a snapshot of the virtual fleet.
func (s *Sim) ListBuoys(ctx context.Context) ([]model.Buoy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Buoy, 0, len(s.order))
	for _, id := range s.order {
		b := *s.buoys[id]
		if b.Target != nil {
			t := *b.Target
			b.Target = &t
		}
		if b.ETASeconds != nil {
			e := *b.ETASeconds
			b.ETASeconds = &e
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Sim) physicsLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.step(tickInterval.Seconds())
		}
	}
}

// step advances every transiting buoy by dt seconds.
func (s *Sim) step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, id := range s.order {
		b := s.buoys[id]
		b.LastSeen = now
		if b.State != model.StateMovingToTarget || b.Target == nil {
			continue
		}

		remainingM := geo.Distance(b.Position, *b.Target)
		if remainingM/geo.MetersPerNauticalMile < arrivalRadiusNM {
			s.arrive(b)
			continue
		}

		speed := speedMinKts + s.rng.Float64()*(speedMaxKts-speedMinKts)
		stepM := geo.KnotsToMetersPerSecond(speed) * dt

		frac := stepM / remainingM
		if frac > 1 {
			frac = 1
		}
		b.Position.Lat += (b.Target.Lat - b.Position.Lat) * frac
		b.Position.Lng += (b.Target.Lng - b.Position.Lng) * frac
		b.SpeedKts = speed

		eta := geo.DistanceNM(b.Position, *b.Target) / speed * 3600
		b.ETASeconds = &eta
	}
}

// arrive snaps a buoy onto its target and begins station-keeping.
func (s *Sim) arrive(b *model.Buoy) {
	b.Position = *b.Target
	b.State = model.StateHoldingPosition
	b.Target = nil
	b.SpeedKts = 0
	b.ETASeconds = nil
}
