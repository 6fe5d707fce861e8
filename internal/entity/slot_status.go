package entity

import "time"

// TrackerState is the availability state remembered between checks.
type TrackerState int

const (
	StateUnknown TrackerState = iota
	StateHasSlot
	StateNoSlot
)

func (s TrackerState) String() string {
	switch s {
	case StateHasSlot:
		return "has_slot"
	case StateNoSlot:
		return "no_slot"
	default:
		return "unknown"
	}
}

// SlotStatus is the result of feeding one definite observation to a tracker.
type SlotStatus struct {
	SlotFound        bool
	IsEdgeTransition bool
	// TimeSinceTransition is only set when IsEdgeTransition is true.
	TimeSinceTransition *time.Duration
	// NotificationMessage is empty when no slot was found.
	NotificationMessage string
}

// HasDuration reports whether a time-since-transition was recorded.
func (s SlotStatus) HasDuration() bool {
	return s.TimeSinceTransition != nil
}
