package usecase

import (
	"time"

	"github.com/user/slotwatch/internal/entity"
)

// Tracker converts definite observations into edge-triggered slot statuses.
// It is not safe for concurrent use; each monitored target owns one.
type Tracker struct {
	now            func() time.Time
	state          entity.TrackerState
	lastTransition time.Time
}

// NewTracker creates a tracker in the unknown state. A nil clock uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now, state: entity.StateUnknown}
}

// Update records an observation and reports whether it changed the tracked state.
// The first observation is never a transition, but starts the duration clock.
func (t *Tracker) Update(observed entity.TrackerState) entity.SlotStatus {
	if observed == entity.StateUnknown {
		panic("usecase: tracker cannot observe the unknown state")
	}

	status := entity.SlotStatus{SlotFound: observed == entity.StateHasSlot}
	now := t.now()

	switch {
	case t.state == entity.StateUnknown:
		t.lastTransition = now
	case t.state != observed:
		elapsed := now.Sub(t.lastTransition)
		if elapsed < 0 {
			elapsed = 0
		}
		status.IsEdgeTransition = true
		status.TimeSinceTransition = &elapsed
		t.lastTransition = now
	}

	t.state = observed
	return status
}

// CurrentlyHasSlot reports whether the last observation found a slot.
func (t *Tracker) CurrentlyHasSlot() bool {
	return t.state == entity.StateHasSlot
}

func (t *Tracker) State() entity.TrackerState {
	return t.state
}

// LastTransition is the time of the most recent transition, or of the first
// observation if no transition has happened yet. Zero while unknown.
func (t *Tracker) LastTransition() time.Time {
	return t.lastTransition
}
