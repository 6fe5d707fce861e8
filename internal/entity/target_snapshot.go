package entity

import "time"

// TargetSnapshot is the externally visible state of one monitored target.
type TargetSnapshot struct {
	Name                string
	State               TrackerState
	LastTransitionAt    *time.Time
	LastCheckAt         *time.Time
	LastOutcome         string
	LastMessage         string
	ConsecutiveFailures int
}
