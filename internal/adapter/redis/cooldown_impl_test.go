package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*CooldownRepoImpl, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCooldownRepo(client), mr
}

func TestCooldownRepo_TryAcquire(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	ok, err := repo.TryAcquire(ctx, "Costco", 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryAcquire(ctx, "Costco", 2*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.TryAcquire(ctx, "Weee", 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2*time.Hour + time.Second)

	ok, err = repo.TryAcquire(ctx, "Costco", 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCooldownRepo_KeyIsHashed(t *testing.T) {
	repo, mr := newTestRepo(t)

	_, err := repo.TryAcquire(context.Background(), "Shipt 99 Ranch", time.Minute)
	require.NoError(t, err)

	assert.True(t, mr.Exists(repo.generateKey("Shipt 99 Ranch")))
	assert.False(t, mr.Exists(cooldownKeyPrefix+"Shipt 99 Ranch"))
	assert.Equal(t, time.Minute, mr.TTL(repo.generateKey("Shipt 99 Ranch")))
}

func TestCooldownRepo_ServerDown(t *testing.T) {
	repo, mr := newTestRepo(t)
	mr.Close()

	_, err := repo.TryAcquire(context.Background(), "Costco", time.Minute)
	assert.Error(t, err)
}
