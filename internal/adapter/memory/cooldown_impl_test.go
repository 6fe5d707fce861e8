package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownRepo_OneAlertPerWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewCooldownRepo(func() time.Time { return now })
	ctx := context.Background()
	cooldown := 120 * time.Minute

	ok, err := repo.TryAcquire(ctx, "Costco", cooldown)
	require.NoError(t, err)
	assert.True(t, ok, "first failure alerts")

	now = now.Add(30 * time.Minute)
	ok, _ = repo.TryAcquire(ctx, "Costco", cooldown)
	assert.False(t, ok, "second failure inside cooldown is suppressed")

	ok, _ = repo.TryAcquire(ctx, "Shipt Target", cooldown)
	assert.True(t, ok, "keys are independent")

	now = now.Add(91 * time.Minute)
	ok, _ = repo.TryAcquire(ctx, "Costco", cooldown)
	assert.True(t, ok, "failure after cooldown alerts again")

	now = now.Add(time.Minute)
	ok, _ = repo.TryAcquire(ctx, "Costco", cooldown)
	assert.False(t, ok, "cooldown clock was reset by the last alert")
}

func TestCooldownRepo_ConcurrentAcquireGrantsOnce(t *testing.T) {
	repo := NewCooldownRepo(nil)
	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := repo.TryAcquire(context.Background(), "Weee", time.Hour); ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), granted.Load())
}
