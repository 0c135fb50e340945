package quota

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

// lockoutKey is the fixed store key holding the serialized attempt table.
const lockoutKey = "rate_limit_data"

// LockoutPolicy parameterizes the attempt limiter: MaxAttempts failures
// inside Window trigger a lockout of Step * min(consecutiveLockouts,
// MaxMultiplier).
type LockoutPolicy struct {
	MaxAttempts   int
	Window        time.Duration
	Step          time.Duration
	MaxMultiplier int
}

// DefaultLockoutPolicy returns the production policy: 5 failures per hour,
// lockouts of 15/30/45/60 minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts:   5,
		Window:        time.Hour,
		Step:          15 * time.Minute,
		MaxMultiplier: 4,
	}
}

type attemptRecord struct {
	Identity            string    `json:"identity"`
	Attempts            int       `json:"attempts"`
	WindowStart         time.Time `json:"window_start"`
	LockedUntil         time.Time `json:"locked_until,omitzero"`
	ConsecutiveLockouts int       `json:"consecutive_lockouts,omitempty"`
}

// AttemptStatus is the result of recording or checking an authentication
// attempt. RemainingSeconds counts down the active lockout for UI display.
type AttemptStatus struct {
	Allowed           bool      `json:"allowed"`
	RemainingAttempts int       `json:"remaining_attempts"`
	LockedUntil       time.Time `json:"locked_until,omitzero"`
	RemainingSeconds  int       `json:"remaining_seconds,omitempty"`
}

// AttemptLimiter protects authentication against brute force, keyed by a
// normalized identity string. Failures accumulate inside a tracking window;
// reaching the threshold imposes an exponentially growing lockout. The same
// Store contract and fail-open posture as the Tracker apply.
type AttemptLimiter struct {
	mu      sync.Mutex
	store   Store
	policy  LockoutPolicy
	records map[string]*attemptRecord
	loaded  bool

	now func() time.Time
}

// NewAttemptLimiter creates an AttemptLimiter backed by the given store.
func NewAttemptLimiter(store Store, policy LockoutPolicy) *AttemptLimiter {
	return &AttemptLimiter{
		store:   store,
		policy:  policy,
		records: make(map[string]*attemptRecord),
		now:     time.Now,
	}
}

// normalizeIdentity folds case and whitespace so "User@Example.com " and
// "user@example.com" share one attempt record.
func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// RecordAttempt records the outcome of an authentication attempt. Success
// clears the attempt count, any lockout, and the consecutive-lockout
// history. A failure while locked is reported but not counted.
func (l *AttemptLimiter) RecordAttempt(ctx context.Context, identity string, success bool) AttemptStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensureLoaded(ctx)
	id := normalizeIdentity(identity)

	if success {
		if _, ok := l.records[id]; ok {
			delete(l.records, id)
			l.persist(ctx)
		}
		return AttemptStatus{Allowed: true, RemainingAttempts: l.policy.MaxAttempts}
	}

	rec := l.getOrCreate(id)
	now := l.now()

	// An attempt during an active lockout does not count further, and
	// leaves the record untouched.
	if rec.LockedUntil.After(now) {
		return l.lockedStatus(rec, now)
	}

	l.expireLazily(rec, now)

	rec.Attempts++
	if rec.Attempts >= l.policy.MaxAttempts {
		rec.ConsecutiveLockouts++
		mult := rec.ConsecutiveLockouts
		if mult > l.policy.MaxMultiplier {
			mult = l.policy.MaxMultiplier
		}
		rec.LockedUntil = now.Add(time.Duration(mult) * l.policy.Step)
		// The counter and window restart: the next MaxAttempts failures
		// after this lockout expires trigger the next, longer one.
		rec.Attempts = 0
		rec.WindowStart = now

		st := l.lockedStatus(rec, now)
		l.persist(ctx)
		return st
	}

	l.persist(ctx)
	return AttemptStatus{
		Allowed:           true,
		RemainingAttempts: l.policy.MaxAttempts - rec.Attempts,
	}
}

// Check is the read-only variant: it reports the current standing without
// counting an attempt, applying the same lazy window and lockout-expiry
// resets as RecordAttempt.
func (l *AttemptLimiter) Check(ctx context.Context, identity string) AttemptStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensureLoaded(ctx)
	id := normalizeIdentity(identity)

	rec, ok := l.records[id]
	if !ok {
		return AttemptStatus{Allowed: true, RemainingAttempts: l.policy.MaxAttempts}
	}

	now := l.now()
	if rec.LockedUntil.After(now) {
		return l.lockedStatus(rec, now)
	}

	if l.expireLazily(rec, now) {
		l.persist(ctx)
	}

	return AttemptStatus{
		Allowed:           true,
		RemainingAttempts: l.policy.MaxAttempts - rec.Attempts,
	}
}

// expireLazily clears an elapsed lockout and restarts an elapsed tracking
// window. Must be called with mu held.
func (l *AttemptLimiter) expireLazily(rec *attemptRecord, now time.Time) bool {
	changed := false
	if !rec.LockedUntil.IsZero() && !rec.LockedUntil.After(now) {
		rec.LockedUntil = time.Time{}
		changed = true
	}
	// An elapsed window always restarts, even with zero attempts in it:
	// a fresh burst must be counted against a fresh window, not a stale
	// one left over from the last lockout.
	if now.Sub(rec.WindowStart) >= l.policy.Window {
		rec.Attempts = 0
		rec.WindowStart = now
		changed = true
	}
	return changed
}

func (l *AttemptLimiter) lockedStatus(rec *attemptRecord, now time.Time) AttemptStatus {
	secs := int(math.Ceil(rec.LockedUntil.Sub(now).Seconds()))
	if secs < 0 {
		secs = 0
	}
	return AttemptStatus{
		Allowed:          false,
		LockedUntil:      rec.LockedUntil,
		RemainingSeconds: secs,
	}
}

func (l *AttemptLimiter) getOrCreate(id string) *attemptRecord {
	if rec, ok := l.records[id]; ok {
		return rec
	}
	rec := &attemptRecord{Identity: id, WindowStart: l.now()}
	l.records[id] = rec
	return rec
}

// ensureLoaded seeds the attempt table from the store on first access.
// Must be called with mu held.
func (l *AttemptLimiter) ensureLoaded(ctx context.Context) {
	if l.loaded {
		return
	}
	l.loaded = true

	raw, ok, err := l.store.Get(ctx, lockoutKey)
	if err != nil {
		slog.Warn("lockout: loading attempt table, starting empty", "error", err)
		return
	}
	if !ok {
		return
	}

	var records map[string]*attemptRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		slog.Warn("lockout: stored attempt table is malformed, starting empty", "error", err)
		return
	}
	l.records = records
}

// persist serializes the whole attempt table. Same fail-open posture as
// the quota tracker. Must be called with mu held.
func (l *AttemptLimiter) persist(ctx context.Context) {
	data, err := json.Marshal(l.records)
	if err != nil {
		slog.Warn("lockout: marshaling attempt table", "error", err)
		return
	}
	if err := l.store.Set(ctx, lockoutKey, string(data)); err != nil {
		slog.Warn("lockout: persisting attempt table", "error", err)
	}
}
