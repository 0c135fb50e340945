package users

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tiers.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// User is an account holder.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Tier         string    `json:"tier"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsPremium reports whether the user is on the premium tier.
func (u *User) IsPremium() bool {
	return u.Tier == TierPremium
}

// ValidTier reports whether s names a known subscription tier.
func ValidTier(s string) bool {
	return s == TierFree || s == TierPremium
}
