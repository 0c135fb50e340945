package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Quota limits must be positive; premium must not undercut free
	if c.Quota.FreeDailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_FREE_DAILY_LIMIT must be positive, got %d", c.Quota.FreeDailyLimit))
	}
	if c.Quota.PremiumDailyLimit < c.Quota.FreeDailyLimit {
		errs = append(errs, fmt.Sprintf("QUOTA_PREMIUM_DAILY_LIMIT (%d) must be >= QUOTA_FREE_DAILY_LIMIT (%d)",
			c.Quota.PremiumDailyLimit, c.Quota.FreeDailyLimit))
	}
	if c.Quota.RefinementDailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_REFINEMENT_DAILY_LIMIT must be positive, got %d", c.Quota.RefinementDailyLimit))
	}
	if c.Quota.WindowHours < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_WINDOW_HOURS must be positive, got %d", c.Quota.WindowHours))
	}

	// Lockout parameters
	if c.Lockout.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("LOCKOUT_MAX_ATTEMPTS must be positive, got %d", c.Lockout.MaxAttempts))
	}
	if c.Lockout.MaxMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("LOCKOUT_MAX_MULTIPLIER must be positive, got %d", c.Lockout.MaxMultiplier))
	}

	// AI key: warn only, the engine degrades to an error response, not a crash
	if c.AI.APIKey == "" {
		slog.Warn("AI_API_KEY is empty, gift suggestion generation will fail")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
