package usecase

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/user/slotwatch/internal/entity"
)

var noSlotFillers = []string{"none", "nope", "niet", "womp womp", "nada", "no dice", "zzzt"}

// RandomNoSlotFiller picks a filler phrase for "no slot" notifications.
func RandomNoSlotFiller() string {
	return noSlotFillers[rand.Intn(len(noSlotFillers))]
}

// Action is what the scheduler should do after a cycle.
type Action int

const (
	ActionNone Action = iota
	ActionNotifyTransition
	ActionReportFailure
)

func (a Action) String() string {
	switch a {
	case ActionNotifyTransition:
		return "transition"
	case ActionReportFailure:
		return "failure"
	default:
		return "none"
	}
}

// Decision is the dispatch plan for one cycle result. It holds no I/O.
type Decision struct {
	Action Action
	Title  string
	Body   string
	// DirectAlert is forwarded to the remote channel when non-empty.
	DirectAlert string
}

// Decide turns a cycle result into a dispatch plan. A nil status is a failure;
// whether the failure alert actually fires is left to the cooldown check.
func Decide(target string, status *entity.SlotStatus, outcome entity.ProbeOutcome, filler func() string) Decision {
	if status == nil {
		body := "availability check failed (" + outcome.Kind.String() + ")"
		if outcome.Err != nil {
			body += ": " + outcome.Err.Error()
		}
		return Decision{Action: ActionReportFailure, Title: target, Body: body}
	}
	if !status.IsEdgeTransition {
		return Decision{Action: ActionNone}
	}

	message := ComposeMessage(*status, filler)
	d := Decision{Action: ActionNotifyTransition, Title: target, Body: message}
	if status.SlotFound {
		d.Body += " go go go"
		d.DirectAlert = target + ": " + message
	}
	return d
}

// ComposeMessage prefers the probe-supplied message and appends a duration suffix.
func ComposeMessage(status entity.SlotStatus, filler func() string) string {
	message := status.NotificationMessage
	if message == "" {
		if status.SlotFound {
			message = "slot status: available"
		} else {
			if filler == nil {
				filler = RandomNoSlotFiller
			}
			message = "slot status: " + filler()
		}
	}
	if desc := DurationDescription(status); desc != "" {
		message += ", " + desc
	}
	return message
}

// DurationDescription renders "after 0d2h15m" for a newly found slot and
// "lasted 0d2h15m" for a slot that went away.
func DurationDescription(status entity.SlotStatus) string {
	if status.TimeSinceTransition == nil {
		return ""
	}
	d := status.TimeSinceTransition.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)
	text := fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	if status.SlotFound {
		return "after " + text
	}
	return "lasted " + text
}
