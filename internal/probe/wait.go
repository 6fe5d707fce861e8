package probe

import (
	"context"
	"time"
)

// Timings are the settle intervals between browser actions. Sites render
// asynchronously, so each step waits before reading the page.
type Timings struct {
	LoginSettle  time.Duration // after a login attempt, before re-navigating
	PageSettle   time.Duration // after navigation, before reading the page
	FormSettle   time.Duration // after opening a login or config form
	SubmitSettle time.Duration // after submitting a form
	PickerSettle time.Duration // after opening a store or date picker
	SelectSettle time.Duration // after choosing a store
}

func DefaultTimings() Timings {
	return Timings{
		LoginSettle:  10 * time.Second,
		PageSettle:   5 * time.Second,
		FormSettle:   5 * time.Second,
		SubmitSettle: 5 * time.Second,
		PickerSettle: 7 * time.Second,
		SelectSettle: 5 * time.Second,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
