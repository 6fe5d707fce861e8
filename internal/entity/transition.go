package entity

import "time"

// Transition mirrors the `slot_transitions` PostgreSQL table schema.
// Only the most recent transition per target is kept.
type Transition struct {
	Target         string
	State          TrackerState
	TransitionedAt time.Time
	PreviousFor    time.Duration
	Message        string
}
