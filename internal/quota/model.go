package quota

import "time"

// Record tracks one user's usage inside the current accounting window.
// Generation and refinement counters share a single window so that one
// WindowStart timestamp governs both.
type Record struct {
	UserID          string    `json:"user_id"`
	GenerationsUsed int       `json:"generations_used"`
	RefinementsUsed int       `json:"refinements_used"`
	WindowStart     time.Time `json:"window_start"`
}

// Reason distinguishes why a check was denied. Both quota exhaustion and
// missing entitlement surface as Allowed=false with Remaining=0; callers
// that need different user messaging branch on Reason.
type Reason string

const (
	ReasonQuotaExceeded    Reason = "quota_exceeded"
	ReasonNotEntitled      Reason = "not_entitled"
	ReasonStoreUnavailable Reason = "store_unavailable"
)

// Decision is the result of a quota check. RemainingHours is the ceiling of
// the time left until the window resets, for "try again in N hours" messaging.
type Decision struct {
	Allowed        bool      `json:"allowed"`
	Remaining      int       `json:"remaining"`
	WindowEndsAt   time.Time `json:"window_ends_at"`
	RemainingHours int       `json:"remaining_hours"`
	Reason         Reason    `json:"reason,omitempty"`
}

// Limits parameterizes the tracker. FailClosed controls whether checks are
// denied while the persisted usage table could not be loaded; the default
// favors availability (fail open).
type Limits struct {
	FreeDaily       int
	PremiumDaily    int
	RefinementDaily int
	Window          time.Duration
	FailClosed      bool
}

// DefaultLimits returns the production limits: 5/day free, 50/day premium,
// 25 refinements/day, over a rolling 24h window.
func DefaultLimits() Limits {
	return Limits{
		FreeDaily:       5,
		PremiumDaily:    50,
		RefinementDaily: 25,
		Window:          24 * time.Hour,
	}
}

// Status is the API response showing current usage and limits for a user.
type Status struct {
	GenerationsUsed int       `json:"generations_used"`
	GenerationLimit int       `json:"generation_limit"`
	RefinementsUsed int       `json:"refinements_used"`
	RefinementLimit int       `json:"refinement_limit"`
	WindowEndsAt    time.Time `json:"window_ends_at"`
	RefinementGated bool      `json:"refinement_gated"`
}
