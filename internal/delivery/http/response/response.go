package response

import (
	"time"

	"github.com/user/slotwatch/internal/entity"
)

type HealthResponse struct {
	Status         string `json:"status"`
	Targets        int    `json:"targets"`
	SlotsAvailable int    `json:"slots_available"`
}

// TargetResponse is a DTO for one monitored target, mirroring entity.TargetSnapshot
type TargetResponse struct {
	Name                string     `json:"name"`
	State               string     `json:"state"` // "unknown", "has_slot", "no_slot"
	HasSlot             bool       `json:"has_slot"`
	LastCheckAt         *time.Time `json:"last_check_at,omitempty"`
	LastTransitionAt    *time.Time `json:"last_transition_at,omitempty"`
	LastOutcome         string     `json:"last_outcome,omitempty"`
	LastMessage         string     `json:"last_message,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

type TargetListResponse struct {
	Targets []TargetResponse `json:"targets"`
}

func FromSnapshot(s entity.TargetSnapshot) TargetResponse {
	return TargetResponse{
		Name:                s.Name,
		State:               s.State.String(),
		HasSlot:             s.State == entity.StateHasSlot,
		LastCheckAt:         s.LastCheckAt,
		LastTransitionAt:    s.LastTransitionAt,
		LastOutcome:         s.LastOutcome,
		LastMessage:         s.LastMessage,
		ConsecutiveFailures: s.ConsecutiveFailures,
	}
}
