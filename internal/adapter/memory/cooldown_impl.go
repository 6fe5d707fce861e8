package memory

import (
	"context"
	"sync"
	"time"
)

// CooldownRepoImpl provides an in-process implementation of the CooldownRepository interface.
type CooldownRepoImpl struct {
	lastSent sync.Map // key -> time.Time
	now      func() time.Time
}

// NewCooldownRepo creates a new instance of CooldownRepoImpl. A nil clock uses time.Now.
func NewCooldownRepo(now func() time.Time) *CooldownRepoImpl {
	if now == nil {
		now = time.Now
	}
	return &CooldownRepoImpl{now: now}
}

// TryAcquire succeeds when more than cooldown has elapsed since the last
// successful acquisition for key, or when key was never acquired.
func (r *CooldownRepoImpl) TryAcquire(_ context.Context, key string, cooldown time.Duration) (bool, error) {
	now := r.now()
	for {
		prev, loaded := r.lastSent.LoadOrStore(key, now)
		if !loaded {
			return true, nil
		}
		if now.Sub(prev.(time.Time)) <= cooldown {
			return false, nil
		}
		if r.lastSent.CompareAndSwap(key, prev, now) {
			return true, nil
		}
	}
}
