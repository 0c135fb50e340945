package quota

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"
)

// usageKey is the fixed store key holding the serialized usage table.
const usageKey = "generation_limits"

// Tracker decides whether a user may perform a quota-consuming action now
// and records the consumption, per user, inside a rolling window.
//
// The in-memory table is authoritative for the process lifetime. It is
// seeded from the Store on first access and written back wholesale after
// every mutation. Store failures never block a caller unless FailClosed is
// set, in which case checks are denied while the initial load has failed;
// lost writes are always log-and-continue.
//
// A single mutex makes check+record atomic: no caller can observe the
// decision and the increment as separate steps.
type Tracker struct {
	mu      sync.Mutex
	store   Store
	limits  Limits
	records map[string]*Record

	loaded     bool
	loadFailed bool

	now func() time.Time
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(store Store, limits Limits) *Tracker {
	return &Tracker{
		store:   store,
		limits:  limits,
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// CheckGeneration reports whether userID may generate now. It lazily
// initializes the record and rolls the window, but never increments.
func (t *Tracker) CheckGeneration(ctx context.Context, userID string, premium bool) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureLoaded(ctx)
	if d, denied := t.storeUnavailable(); denied {
		return d
	}

	rec, changed := t.getOrCreate(userID)
	if t.rollWindow(rec) {
		changed = true
	}
	if changed {
		t.persist(ctx)
	}

	limit := t.generationLimit(premium)
	return t.decide(rec, rec.GenerationsUsed, limit)
}

// RecordGeneration increments the generation counter for userID. It does
// not check the limit; callers must check first, or use
// CheckAndRecordGeneration which composes both atomically.
func (t *Tracker) RecordGeneration(ctx context.Context, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureLoaded(ctx)
	rec, _ := t.getOrCreate(userID)
	t.rollWindow(rec)
	rec.GenerationsUsed++
	t.persist(ctx)
}

// CheckAndRecordGeneration performs the check and, if allowed, the record
// step under one lock acquisition. This is the entry point callers must use
// before dispatching a generation; Remaining reflects the post-increment
// state.
func (t *Tracker) CheckAndRecordGeneration(ctx context.Context, userID string, premium bool) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureLoaded(ctx)
	if d, denied := t.storeUnavailable(); denied {
		return d
	}

	rec, _ := t.getOrCreate(userID)
	t.rollWindow(rec)

	limit := t.generationLimit(premium)
	d := t.decide(rec, rec.GenerationsUsed, limit)
	if d.Allowed {
		rec.GenerationsUsed++
		d.Remaining = remaining(limit, rec.GenerationsUsed)
	}
	t.persist(ctx)
	return d
}

// CheckRefinement reports whether userID may refine now. Refinement is a
// premium feature: non-premium users are always denied regardless of
// counter state, with Reason set to ReasonNotEntitled.
func (t *Tracker) CheckRefinement(ctx context.Context, userID string, premium bool) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureLoaded(ctx)
	if d, denied := t.storeUnavailable(); denied {
		return d
	}

	rec, changed := t.getOrCreate(userID)
	if t.rollWindow(rec) {
		changed = true
	}
	if changed {
		t.persist(ctx)
	}

	if !premium {
		return t.notEntitled(rec)
	}
	return t.decide(rec, rec.RefinementsUsed, t.limits.RefinementDaily)
}

// CheckAndRecordRefinement composes check and record for refinements,
// analogous to CheckAndRecordGeneration.
func (t *Tracker) CheckAndRecordRefinement(ctx context.Context, userID string, premium bool) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureLoaded(ctx)
	if d, denied := t.storeUnavailable(); denied {
		return d
	}

	rec, _ := t.getOrCreate(userID)
	t.rollWindow(rec)

	if !premium {
		t.persist(ctx)
		return t.notEntitled(rec)
	}

	limit := t.limits.RefinementDaily
	d := t.decide(rec, rec.RefinementsUsed, limit)
	if d.Allowed {
		rec.RefinementsUsed++
		d.Remaining = remaining(limit, rec.RefinementsUsed)
	}
	t.persist(ctx)
	return d
}

// Status returns the current usage snapshot for API display.
func (t *Tracker) Status(ctx context.Context, userID string, premium bool) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureLoaded(ctx)
	rec, changed := t.getOrCreate(userID)
	if t.rollWindow(rec) {
		changed = true
	}
	if changed {
		t.persist(ctx)
	}

	return Status{
		GenerationsUsed: rec.GenerationsUsed,
		GenerationLimit: t.generationLimit(premium),
		RefinementsUsed: rec.RefinementsUsed,
		RefinementLimit: t.limits.RefinementDaily,
		WindowEndsAt:    rec.WindowStart.Add(t.limits.Window),
		RefinementGated: !premium,
	}
}

// Cleanup removes records whose window expired more than olderThan ago and
// returns the number removed. Garbage collection only; correctness never
// depends on it.
func (t *Tracker) Cleanup(ctx context.Context, olderThan time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureLoaded(ctx)
	now := t.now()
	removed := 0
	for id, rec := range t.records {
		if now.Sub(rec.WindowStart.Add(t.limits.Window)) > olderThan {
			delete(t.records, id)
			removed++
		}
	}
	if removed > 0 {
		t.persist(ctx)
	}
	return removed
}

// ResetAll drops every record, in memory and in the store. Test and
// operator use only.
func (t *Tracker) ResetAll(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = make(map[string]*Record)
	t.loaded = true
	t.loadFailed = false
	if err := t.store.Delete(ctx, usageKey); err != nil {
		slog.Warn("quota: resetting usage table", "error", err)
	}
}

func (t *Tracker) generationLimit(premium bool) int {
	if premium {
		return t.limits.PremiumDaily
	}
	return t.limits.FreeDaily
}

// ensureLoaded seeds the in-memory table from the store on first access.
// Load failures are sticky: the table starts empty and is not re-read, so
// a transient fault costs at most one process lifetime of history.
// Must be called with mu held.
func (t *Tracker) ensureLoaded(ctx context.Context) {
	if t.loaded {
		return
	}
	t.loaded = true

	raw, ok, err := t.store.Get(ctx, usageKey)
	if err != nil {
		slog.Warn("quota: loading usage table, starting empty", "error", err)
		t.loadFailed = true
		return
	}
	if !ok {
		return
	}

	var records map[string]*Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		slog.Warn("quota: stored usage table is malformed, starting empty", "error", err)
		return
	}
	t.records = records
}

func (t *Tracker) storeUnavailable() (Decision, bool) {
	if t.limits.FailClosed && t.loadFailed {
		return Decision{Reason: ReasonStoreUnavailable}, true
	}
	return Decision{}, false
}

// getOrCreate lazily initializes the record for userID with a window
// starting now. Must be called with mu held.
func (t *Tracker) getOrCreate(userID string) (*Record, bool) {
	if rec, ok := t.records[userID]; ok {
		return rec, false
	}
	rec := &Record{UserID: userID, WindowStart: t.now()}
	t.records[userID] = rec
	return rec, true
}

// rollWindow resets both counters and moves WindowStart to now once the
// window has fully elapsed. Reported lazily on access; no timers involved.
// Must be called with mu held.
func (t *Tracker) rollWindow(rec *Record) bool {
	now := t.now()
	if now.Before(rec.WindowStart.Add(t.limits.Window)) {
		return false
	}
	rec.GenerationsUsed = 0
	rec.RefinementsUsed = 0
	rec.WindowStart = now
	return true
}

func (t *Tracker) decide(rec *Record, used, limit int) Decision {
	d := Decision{
		Allowed:        used < limit,
		Remaining:      remaining(limit, used),
		WindowEndsAt:   rec.WindowStart.Add(t.limits.Window),
		RemainingHours: t.remainingHours(rec),
	}
	if !d.Allowed {
		d.Reason = ReasonQuotaExceeded
	}
	return d
}

func (t *Tracker) notEntitled(rec *Record) Decision {
	return Decision{
		Allowed:        false,
		Remaining:      0,
		WindowEndsAt:   rec.WindowStart.Add(t.limits.Window),
		RemainingHours: t.remainingHours(rec),
		Reason:         ReasonNotEntitled,
	}
}

func (t *Tracker) remainingHours(rec *Record) int {
	left := rec.WindowStart.Add(t.limits.Window).Sub(t.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours()))
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

// persist serializes the whole table and overwrites the store value.
// Write failures are swallowed with a warning: a lost write never blocks
// the user, it only costs durability across a restart.
// Must be called with mu held.
func (t *Tracker) persist(ctx context.Context) {
	data, err := json.Marshal(t.records)
	if err != nil {
		slog.Warn("quota: marshaling usage table", "error", err)
		return
	}
	if err := t.store.Set(ctx, usageKey, string(data)); err != nil {
		slog.Warn("quota: persisting usage table", "error", err)
	}
}
