// Package follow keeps every buoy's commanded destination consistent with
// its mark's current target, without saturating the command channel.
package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"markfleet/pkg/command"
	"markfleet/pkg/course"
	"markfleet/pkg/geo"
	"markfleet/pkg/model"
	"markfleet/pkg/store"
	"markfleet/pkg/tracker"
)

// Controller is the position-follow orchestrator for one course session.
// All mutable state (deploy mode, settings, per-buoy debounce timestamps)
// lives on the instance so isolated controllers could serve separate
// sessions.
type Controller struct {
	view   store.CourseView
	sender command.Sender
	tr     *tracker.Tracker
	clock  Clock

	mu       sync.Mutex
	courseID string
	settings model.FollowSettings
	mode     model.DeployMode
	// lastSend holds the monotonic not-before timestamp per buoy. This is
	// the only mutual-exclusion discipline between sends to the same buoy.
	lastSend map[string]time.Time
	stopCh   chan struct{}
	started  bool
	wg       sync.WaitGroup
}

// NewController creates a controller for the given course.
func NewController(view store.CourseView, sender command.Sender, tr *tracker.Tracker, courseID string, settings model.FollowSettings) *Controller {
	return &Controller{
		view:     view,
		sender:   sender,
		tr:       tr,
		clock:    realClock{},
		courseID: courseID,
		settings: settings,
		mode:     model.DeployAutomatic,
		lastSend: make(map[string]time.Time),
	}
}

// Start launches the drift poll loop. It is a no-op if already running.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.stopCh = make(chan struct{})

	c.wg.Add(1)
	go c.pollLoop(ctx, c.stopCh)
}

// Close stops the poll loop and clears all per-buoy debounce timestamps.
// In-flight sends are not aborted; no further sends are scheduled.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.started {
		close(c.stopCh)
		c.started = false
	}
	c.lastSend = make(map[string]time.Time)
	c.mu.Unlock()
	c.wg.Wait()
}

// SetCourse switches the active course and clears all outstanding debounce
// timestamps so a stale window cannot suppress a command on the new course.
func (c *Controller) SetCourse(courseID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.courseID = courseID
	c.lastSend = make(map[string]time.Time)
}

// Settings returns the current follow settings.
func (c *Controller) Settings() model.FollowSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetSettings replaces the follow settings. The change takes effect on the
// next trigger evaluation.
func (c *Controller) SetSettings(s model.FollowSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// Mode returns the current deploy mode.
func (c *Controller) Mode() model.DeployMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the deploy mode. Entering automatic from manual flushes
// the pending deployments once; the reverse switch takes effect immediately.
func (c *Controller) SetMode(ctx context.Context, mode model.DeployMode) error {
	c.mu.Lock()
	prev := c.mode
	c.mode = mode
	c.mu.Unlock()

	if prev == model.DeployManual && mode == model.DeployAutomatic {
		return c.DeployAllPending(ctx)
	}
	return nil
}

// MarkUpdated is the immediate dispatch trigger, invoked synchronously after
// an operator action moved a mark (drag, nudge, wind alignment, transform,
// undo). It resolves the mark's targets and requests a send per assigned
// buoy. In manual mode it issues nothing.
func (c *Controller) MarkUpdated(ctx context.Context, markID string) error {
	if c.Mode() == model.DeployManual {
		return nil
	}

	crs, marks, buoys, err := c.snapshot(ctx)
	if err != nil {
		return err
	}

	byID := buoysByID(buoys)
	var errs []error
	for i := range marks {
		if marks[i].ID != markID {
			continue
		}
		for _, st := range course.AssignedTargets(&marks[i], crs.WindBearingDeg) {
			b, ok := byID[st.BuoyID]
			if !ok {
				slog.Warn("assigned buoy not in fleet", "buoy", st.BuoyID, "mark", st.MarkID)
				continue
			}
			if _, err := c.requestSend(ctx, b, st.Target); err != nil {
				errs = append(errs, fmt.Errorf("buoy %s: %w", st.BuoyID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// PendingDeployments computes the manual-mode work queue: every assigned
// slot whose buoy sits farther from its resolved target than the acceptable
// distance. Non-commandable buoys are excluded since no deploy could move
// them.
func (c *Controller) PendingDeployments(ctx context.Context) ([]model.PendingDeployment, error) {
	crs, marks, buoys, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	acceptable := c.Settings().AcceptableDistanceMeters

	byID := buoysByID(buoys)
	var pending []model.PendingDeployment
	for i := range marks {
		for _, st := range course.AssignedTargets(&marks[i], crs.WindBearingDeg) {
			b, ok := byID[st.BuoyID]
			if !ok || !b.State.Commandable() {
				continue
			}
			dist := geo.Distance(b.Position, st.Target)
			if dist <= acceptable {
				continue
			}
			pending = append(pending, model.PendingDeployment{
				BuoyID:         b.ID,
				BuoyPosition:   b.Position,
				MarkID:         st.MarkID,
				Slot:           st.Slot,
				Target:         st.Target,
				DistanceMeters: dist,
			})
		}
	}
	return pending, nil
}

// DeployAllPending clears every debounce timestamp and issues one
// move_to_target per pending deployment, unconditionally.
func (c *Controller) DeployAllPending(ctx context.Context) error {
	pending, err := c.PendingDeployments(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.lastSend = make(map[string]time.Time)
	c.mu.Unlock()

	var errs []error
	for _, p := range pending {
		if err := c.send(ctx, p.BuoyID, p.Target); err != nil {
			errs = append(errs, fmt.Errorf("buoy %s: %w", p.BuoyID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) pollLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-c.clock.After(c.Settings().PollInterval):
			if err := c.pollOnce(ctx); err != nil {
				slog.Warn("drift poll failed", "error", err)
			}
		}
	}
}

// pollOnce runs one drift evaluation over the fleet. Per-buoy send failures
// are logged and swallowed; the next tick retries naturally.
func (c *Controller) pollOnce(ctx context.Context) error {
	if c.Mode() == model.DeployManual {
		return nil
	}

	crs, marks, buoys, err := c.snapshot(ctx)
	if err != nil {
		return err
	}
	threshold := c.Settings().DistanceThresholdMeters

	byID := buoysByID(buoys)
	for i := range marks {
		for _, st := range course.AssignedTargets(&marks[i], crs.WindBearingDeg) {
			b, ok := byID[st.BuoyID]
			if !ok || b.State != model.StateHoldingPosition {
				continue
			}
			if geo.Distance(b.Position, st.Target) <= threshold {
				continue
			}
			if _, err := c.requestSend(ctx, b, st.Target); err != nil {
				slog.Warn("drift correction failed", "buoy", b.ID, "mark", st.MarkID, "error", err)
			}
		}
	}
	return nil
}

// requestSend applies the per-buoy rate limit and, if the request is
// accepted, issues a move_to_target. A request inside the debounce window is
// dropped outright, not queued or coalesced; the next poll tick provides the
// retry opportunity.
func (c *Controller) requestSend(ctx context.Context, b *model.Buoy, target geo.Point) (accepted bool, err error) {
	c.mu.Lock()
	debounce := c.settings.DebounceTime
	now := c.clock.Now()
	if last, ok := c.lastSend[b.ID]; ok && now.Sub(last) < debounce {
		c.mu.Unlock()
		c.tr.TrackSuppressed(b.ID)
		return false, nil
	}
	c.mu.Unlock()

	return true, c.send(ctx, b.ID, target)
}

// send issues a move_to_target and records the debounce timestamp. The
// timestamp is recorded for every issued command, including failed ones, so
// a failing device is not hammered inside the window either.
func (c *Controller) send(ctx context.Context, buoyID string, target geo.Point) error {
	c.mu.Lock()
	c.lastSend[buoyID] = c.clock.Now()
	c.mu.Unlock()

	if err := c.sender.Send(ctx, buoyID, command.MoveToTarget(target)); err != nil {
		c.tr.TrackFailed(buoyID)
		return fmt.Errorf("send move_to_target: %w", err)
	}
	c.tr.TrackAccepted(buoyID)
	return nil
}

func (c *Controller) snapshot(ctx context.Context) (*model.Course, []model.Mark, []model.Buoy, error) {
	c.mu.Lock()
	courseID := c.courseID
	c.mu.Unlock()

	crs, err := c.view.GetCourse(ctx, courseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load course: %w", err)
	}
	if crs == nil {
		return nil, nil, nil, fmt.Errorf("course %q not found", courseID)
	}
	marks, err := c.view.ListMarks(ctx, courseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load marks: %w", err)
	}
	buoys, err := c.view.ListBuoys(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load buoys: %w", err)
	}
	return crs, marks, buoys, nil
}

func buoysByID(buoys []model.Buoy) map[string]*model.Buoy {
	m := make(map[string]*model.Buoy, len(buoys))
	for i := range buoys {
		m[buoys[i].ID] = &buoys[i]
	}
	return m
}
