package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	NATS    NATSConfig
	JWT     JWTConfig
	AI      AIConfig
	Quota   QuotaConfig
	Lockout LockoutConfig
	CORS    CORSConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// AIConfig configures the Gemini suggestion engine.
type AIConfig struct {
	APIKey string
	Model  string
}

// QuotaConfig holds the daily generation/refinement limits and the
// persistence failure policy for the quota tracker.
type QuotaConfig struct {
	FreeDailyLimit       int
	PremiumDailyLimit    int
	RefinementDailyLimit int
	WindowHours          int
	FailClosed           bool
}

// LockoutConfig holds the login brute-force protection parameters.
type LockoutConfig struct {
	MaxAttempts   int
	WindowMinutes int
	StepMinutes   int
	MaxMultiplier int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		AI: AIConfig{
			APIKey: k.String("ai.api.key"),
			Model:  k.String("ai.model"),
		},
		Quota: QuotaConfig{
			FreeDailyLimit:       k.Int("quota.free.daily.limit"),
			PremiumDailyLimit:    k.Int("quota.premium.daily.limit"),
			RefinementDailyLimit: k.Int("quota.refinement.daily.limit"),
			WindowHours:          k.Int("quota.window.hours"),
			FailClosed:           k.Bool("quota.fail.closed"),
		},
		Lockout: LockoutConfig{
			MaxAttempts:   k.Int("lockout.max.attempts"),
			WindowMinutes: k.Int("lockout.window.minutes"),
			StepMinutes:   k.Int("lockout.step.minutes"),
			MaxMultiplier: k.Int("lockout.max.multiplier"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "ribbon"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "ribbon"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-1.5-flash"
	}
	if cfg.Quota.FreeDailyLimit == 0 {
		cfg.Quota.FreeDailyLimit = 5
	}
	if cfg.Quota.PremiumDailyLimit == 0 {
		cfg.Quota.PremiumDailyLimit = 50
	}
	if cfg.Quota.RefinementDailyLimit == 0 {
		cfg.Quota.RefinementDailyLimit = 25
	}
	if cfg.Quota.WindowHours == 0 {
		cfg.Quota.WindowHours = 24
	}
	if cfg.Lockout.MaxAttempts == 0 {
		cfg.Lockout.MaxAttempts = 5
	}
	if cfg.Lockout.WindowMinutes == 0 {
		cfg.Lockout.WindowMinutes = 60
	}
	if cfg.Lockout.StepMinutes == 0 {
		cfg.Lockout.StepMinutes = 15
	}
	if cfg.Lockout.MaxMultiplier == 0 {
		cfg.Lockout.MaxMultiplier = 4
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	accessExpStr := k.String("jwt.access.expiry")
	if accessExpStr == "" {
		accessExpStr = "15m"
	}
	cfg.JWT.AccessExpiry, err = time.ParseDuration(accessExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}

	refreshExpStr := k.String("jwt.refresh.expiry")
	if refreshExpStr == "" {
		refreshExpStr = "168h"
	}
	cfg.JWT.RefreshExpiry, err = time.ParseDuration(refreshExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}

	return cfg, nil
}
