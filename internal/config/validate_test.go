package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "ribbon", Password: "secret",
			Name: "ribbon", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			AccessSecret:  strings.Repeat("a", 32),
			RefreshSecret: strings.Repeat("b", 32),
		},
		AI: AIConfig{APIKey: "test-key", Model: "gemini-1.5-flash"},
		Quota: QuotaConfig{
			FreeDailyLimit:       5,
			PremiumDailyLimit:    50,
			RefinementDailyLimit: 25,
			WindowHours:          24,
		},
		Lockout: LockoutConfig{MaxAttempts: 5, WindowMinutes: 60, StepMinutes: 15, MaxMultiplier: 4},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_ShortJWTSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_SECRET")
}

func TestValidate_IdenticalJWTSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestValidate_MissingDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestValidate_PremiumBelowFree(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.FreeDailyLimit = 50
	cfg.Quota.PremiumDailyLimit = 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUOTA_PREMIUM_DAILY_LIMIT")
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	cfg.Server.Port = 0
	cfg.Quota.WindowHours = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), "QUOTA_WINDOW_HOURS")
}
