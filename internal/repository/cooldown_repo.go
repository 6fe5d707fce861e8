package repository

import (
	"context"
	"time"
)

// CooldownRepository rate-limits alerts per key.
type CooldownRepository interface {
	// TryAcquire reports true, and restarts the cooldown clock, when no alert was
	// recorded for key within the last cooldown. Otherwise it reports false.
	TryAcquire(ctx context.Context, key string, cooldown time.Duration) (bool, error)
}
