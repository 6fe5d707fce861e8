package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/slotwatch/pkg/utils"
)

const cooldownKeyPrefix = "slotwatch:cooldown:"

// CooldownRepoImpl provides a concrete implementation for the CooldownRepository interface using Redis.
// The cooldown survives process restarts, so a crash loop does not re-alert.
type CooldownRepoImpl struct {
	client *redis.Client
}

// NewCooldownRepo creates a new instance of CooldownRepoImpl.
func NewCooldownRepo(client *redis.Client) *CooldownRepoImpl {
	return &CooldownRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a given target by hashing it.
func (r *CooldownRepoImpl) generateKey(key string) string {
	return fmt.Sprintf("%s%s", cooldownKeyPrefix, utils.HashKey(key))
}

// TryAcquire sets the cooldown key only if it is absent. SET NX with an expiry is
// atomic, and the key expiring is what ends the cooldown.
func (r *CooldownRepoImpl) TryAcquire(ctx context.Context, key string, cooldown time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.generateKey(key), time.Now().Unix(), cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("set cooldown for %s: %w", key, err)
	}
	return ok, nil
}
