package audit

import (
	"time"

	"github.com/google/uuid"
)

// Log is a persisted audit record.
type Log struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// Severity levels.
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// Event types recorded by the service.
const (
	EventQuotaDenied   = "quota.denied"
	EventLoginLockout  = "login.lockout"
	EventLoginFailed   = "login.failed"
	EventTierChanged   = "user.tier_changed"
	EventQuotaResetAll = "quota.reset_all"
)
