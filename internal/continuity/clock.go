package continuity

import (
	"sync"
	"time"
)

// Clock is the local playback clock. It is authoritative for elapsed
// position; server ticks are advisory and only reconcile the clock at a
// track-change boundary.
type Clock struct {
	mu       sync.Mutex
	trackID  string
	duration time.Duration
	base     time.Duration // elapsed accumulated before the last resume
	resumed  time.Time     // zero while paused
	now      func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// SetTrack resets the clock for a new track and starts it running.
func (c *Clock) SetTrack(trackID string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackID = trackID
	c.duration = duration
	c.base = 0
	c.resumed = c.now()
}

// TrackID returns the track the clock is timing.
func (c *Clock) TrackID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trackID
}

// Elapsed returns the local playback position, capped at the duration.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *Clock) elapsedLocked() time.Duration {
	e := c.base
	if !c.resumed.IsZero() {
		e += c.now().Sub(c.resumed)
	}
	if c.duration > 0 && e > c.duration {
		e = c.duration
	}
	return e
}

// Duration returns the current track's length.
func (c *Clock) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Pause freezes the clock.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resumed.IsZero() {
		return
	}
	c.base = c.elapsedLocked()
	c.resumed = time.Time{}
}

// Resume restarts a paused clock.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resumed.IsZero() {
		return
	}
	c.resumed = c.now()
}

// Paused reports whether the clock is frozen.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumed.IsZero()
}

// Seek jumps the position. Running state is preserved.
func (c *Clock) Seek(to time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if to < 0 {
		to = 0
	}
	if c.duration > 0 && to > c.duration {
		to = c.duration
	}
	c.base = to
	if !c.resumed.IsZero() {
		c.resumed = c.now()
	}
}

// ObserveTick takes a server progress tick. Mid-track ticks are ignored,
// the local position wins; a tick for a different track means the server
// moved on and the clock reconciles to it.
func (c *Clock) ObserveTick(trackID string, elapsed, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if trackID == c.trackID {
		return
	}
	c.trackID = trackID
	c.duration = duration
	c.base = elapsed
	if !c.resumed.IsZero() {
		c.resumed = c.now()
	}
}
