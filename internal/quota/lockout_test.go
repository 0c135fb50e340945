package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*AttemptLimiter, *memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewAttemptLimiter(store, DefaultLockoutPolicy())
	l.now = clock.Now
	return l, store, clock
}

func failN(ctx context.Context, l *AttemptLimiter, identity string, n int) AttemptStatus {
	var st AttemptStatus
	for i := 0; i < n; i++ {
		st = l.RecordAttempt(ctx, identity, false)
	}
	return st
}

func TestFirstLockoutAfterFiveFailures(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	// Four failures leave the identity open with a decreasing allowance
	for i := 1; i <= 4; i++ {
		st := l.RecordAttempt(ctx, "a@b.com", false)
		require.True(t, st.Allowed)
		assert.Equal(t, 5-i, st.RemainingAttempts)
	}

	// The fifth imposes a 15-minute lockout
	st := l.RecordAttempt(ctx, "a@b.com", false)
	assert.False(t, st.Allowed)
	assert.Equal(t, 900, st.RemainingSeconds)
}

func TestLockedAttemptsDoNotCount(t *testing.T) {
	l, _, clock := newTestLimiter(t)
	ctx := context.Background()

	failN(ctx, l, "a@b.com", 5)

	// A failure mid-lockout reports the countdown without counting
	clock.Advance(5 * time.Minute)
	st := l.RecordAttempt(ctx, "a@b.com", false)
	assert.False(t, st.Allowed)
	assert.Equal(t, 600, st.RemainingSeconds)

	// After expiry the counter starts from zero: four failures stay open
	clock.Advance(11 * time.Minute)
	for i := 0; i < 4; i++ {
		st = l.RecordAttempt(ctx, "a@b.com", false)
		require.True(t, st.Allowed, "failure %d after expiry should not lock", i+1)
	}
}

func TestExponentialBackoffCapsAtFour(t *testing.T) {
	l, _, clock := newTestLimiter(t)
	ctx := context.Background()

	wantMinutes := []int{15, 30, 45, 60, 60, 60}
	for _, want := range wantMinutes {
		st := failN(ctx, l, "a@b.com", 5)
		assert.False(t, st.Allowed)
		assert.Equal(t, want*60, st.RemainingSeconds)

		// Wait out the lockout before the next burst
		clock.Advance(time.Duration(want)*time.Minute + time.Second)
	}
}

func TestSecondLockoutAfterQuietHour(t *testing.T) {
	l, _, clock := newTestLimiter(t)
	ctx := context.Background()

	failN(ctx, l, "a@b.com", 5)

	// The attacker waits out both the lockout and the tracking window.
	// The next 5 consecutive failures must still escalate to 30 minutes.
	clock.Advance(61 * time.Minute)
	for i := 0; i < 4; i++ {
		st := l.RecordAttempt(ctx, "a@b.com", false)
		require.True(t, st.Allowed, "failure %d of the new burst should not lock yet", i+1)
		assert.Equal(t, 4-i, st.RemainingAttempts)
	}

	st := l.RecordAttempt(ctx, "a@b.com", false)
	assert.False(t, st.Allowed)
	assert.Equal(t, 1800, st.RemainingSeconds)
}

func TestLockedAttemptDoesNotPersist(t *testing.T) {
	l, store, clock := newTestLimiter(t)
	ctx := context.Background()

	failN(ctx, l, "a@b.com", 5)
	writes := store.sets

	// Attempts against a locked identity leave the record, and therefore
	// the store, untouched.
	clock.Advance(5 * time.Minute)
	l.RecordAttempt(ctx, "a@b.com", false)
	l.RecordAttempt(ctx, "a@b.com", false)
	assert.Equal(t, writes, store.sets)
}

func TestSuccessClearsEverything(t *testing.T) {
	l, _, clock := newTestLimiter(t)
	ctx := context.Background()

	// Two full lockout cycles, then success
	failN(ctx, l, "a@b.com", 5)
	clock.Advance(16 * time.Minute)
	failN(ctx, l, "a@b.com", 5)
	clock.Advance(31 * time.Minute)

	st := l.RecordAttempt(ctx, "a@b.com", true)
	assert.True(t, st.Allowed)
	assert.Equal(t, 5, st.RemainingAttempts)

	// The backoff history is gone: the next lockout is 15 minutes again
	st = failN(ctx, l, "a@b.com", 5)
	assert.False(t, st.Allowed)
	assert.Equal(t, 900, st.RemainingSeconds)
}

func TestCheckIsReadOnly(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	failN(ctx, l, "a@b.com", 3)

	for i := 0; i < 10; i++ {
		st := l.Check(ctx, "a@b.com")
		assert.True(t, st.Allowed)
		assert.Equal(t, 2, st.RemainingAttempts)
	}
}

func TestCheckReportsLockout(t *testing.T) {
	l, _, clock := newTestLimiter(t)
	ctx := context.Background()

	failN(ctx, l, "a@b.com", 5)

	st := l.Check(ctx, "a@b.com")
	assert.False(t, st.Allowed)
	assert.Equal(t, 900, st.RemainingSeconds)

	// After expiry, Check reports the restored allowance
	clock.Advance(16 * time.Minute)
	st = l.Check(ctx, "a@b.com")
	assert.True(t, st.Allowed)
	assert.Equal(t, 5, st.RemainingAttempts)
}

func TestAttemptWindowExpires(t *testing.T) {
	l, _, clock := newTestLimiter(t)
	ctx := context.Background()

	failN(ctx, l, "a@b.com", 4)

	// The tracking window lapses: old failures no longer accumulate
	clock.Advance(61 * time.Minute)
	st := l.RecordAttempt(ctx, "a@b.com", false)
	assert.True(t, st.Allowed)
	assert.Equal(t, 4, st.RemainingAttempts)
}

func TestIdentityNormalization(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	failN(ctx, l, "  User@Example.COM ", 4)

	st := l.Check(ctx, "user@example.com")
	assert.Equal(t, 1, st.RemainingAttempts)
}

func TestLockoutSurvivesRestart(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	l := NewAttemptLimiter(store, DefaultLockoutPolicy())
	l.now = clock.Now
	failN(ctx, l, "a@b.com", 5)

	l2 := NewAttemptLimiter(store, DefaultLockoutPolicy())
	l2.now = clock.Now
	st := l2.Check(ctx, "a@b.com")
	assert.False(t, st.Allowed)
	assert.Equal(t, 900, st.RemainingSeconds)
}

func TestFailOpenOnStoreErrorsLockout(t *testing.T) {
	l, store, _ := newTestLimiter(t)
	ctx := context.Background()
	store.failGet = true
	store.failSet = true

	st := failN(ctx, l, "a@b.com", 5)
	assert.False(t, st.Allowed)
	assert.Equal(t, 900, st.RemainingSeconds)
}
