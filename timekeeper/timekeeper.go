// Package timekeeper provides the engine's injected notion of "now".
package timekeeper

import (
	"sync"
	"time"

	"dragonfox-chatroom/domain"
)

// Real is a domain.TimeSource backed by the wall clock. Time is reported
// as seconds elapsed since the Real value was constructed, so the scale
// matches the floating-point "monotonic seconds" contract of spec.md §3
// without exposing an absolute epoch to clients.
type Real struct {
	start time.Time
}

// NewReal constructs a wall-clock time source anchored to the current
// instant.
func NewReal() *Real {
	return &Real{start: time.Now()}
}

// Now returns the number of seconds since the time source was created.
func (r *Real) Now() float64 {
	return time.Since(r.start).Seconds()
}

var _ domain.TimeSource = (*Real)(nil)

// Fake is a settable domain.TimeSource for deterministic tests, grounded
// on the MockTimeKeeper used by the original ChatRoomPlugin test suite
// (a plain settable "currentTime" field).
type Fake struct {
	mu  sync.Mutex
	now float64
}

// NewFake constructs a fake time source starting at 0.0.
func NewFake() *Fake {
	return &Fake{}
}

// Now returns the currently set time.
func (f *Fake) Now() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the fake clock to t.
func (f *Fake) Set(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the fake clock forward by delta seconds and returns the
// new time.
func (f *Fake) Advance(delta float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += delta
	return f.now
}

var _ domain.TimeSource = (*Fake)(nil)
