package quota

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: s.Addr()})
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := NewRedisStore(setupMiniredis(t))
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "generation_limits")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "generation_limits", `{"u1":{}}`))

	val, ok, err := store.Get(ctx, "generation_limits")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"u1":{}}`, val)

	require.NoError(t, store.Delete(ctx, "generation_limits"))
	_, ok, err = store.Get(ctx, "generation_limits")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_KeysAreIsolated(t *testing.T) {
	store := NewRedisStore(setupMiniredis(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "generation_limits", "a"))
	require.NoError(t, store.Set(ctx, "rate_limit_data", "b"))

	val, ok, err := store.Get(ctx, "rate_limit_data")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", val)
}

func TestTrackerOverRedisStore(t *testing.T) {
	rdb := setupMiniredis(t)
	ctx := context.Background()

	tr := NewTracker(NewRedisStore(rdb), DefaultLimits())
	for i := 0; i < 5; i++ {
		require.True(t, tr.CheckAndRecordGeneration(ctx, "u1", false).Allowed)
	}

	// A second tracker over the same Redis sees the persisted usage
	tr2 := NewTracker(NewRedisStore(rdb), DefaultLimits())
	d := tr2.CheckGeneration(ctx, "u1", false)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonQuotaExceeded, d.Reason)
}
