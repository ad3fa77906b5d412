// Package tracker counts command dispatch outcomes per buoy.
package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks dispatch statistics per buoy identity.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*BuoyStats
}

// BuoyStats holds dispatch metrics for one buoy.
// Fields are accessed atomically.
type BuoyStats struct {
	Accepted   int64 // sends accepted by the rate limiter and issued
	Suppressed int64 // sends dropped inside the debounce window
	Failed     int64 // sends that returned a transport/device error
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*BuoyStats),
	}
}

// getStats returns the stats object for a buoy, creating it if needed.
func (t *Tracker) getStats(buoyID string) *BuoyStats {
	t.mu.RLock()
	s, ok := t.stats[buoyID]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[buoyID]; ok {
		return s
	}
	s = &BuoyStats{}
	t.stats[buoyID] = s
	return s
}

// TrackAccepted increments the accepted-send counter.
func (t *Tracker) TrackAccepted(buoyID string) {
	atomic.AddInt64(&t.getStats(buoyID).Accepted, 1)
}

func (t *Tracker) TrackSuppressed(buoyID string) {
	atomic.AddInt64(&t.getStats(buoyID).Suppressed, 1)
}

func (t *Tracker) TrackFailed(buoyID string) {
	atomic.AddInt64(&t.getStats(buoyID).Failed, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]BuoyStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]BuoyStats)
	for k, v := range t.stats {
		result[k] = BuoyStats{
			Accepted:   atomic.LoadInt64(&v.Accepted),
			Suppressed: atomic.LoadInt64(&v.Suppressed),
			Failed:     atomic.LoadInt64(&v.Failed),
		}
	}
	return result
}
