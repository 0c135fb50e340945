package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ribbon-app/ribbon/internal/api"
	"github.com/ribbon-app/ribbon/internal/audit"
	"github.com/ribbon-app/ribbon/internal/auth"
	"github.com/ribbon-app/ribbon/internal/config"
	"github.com/ribbon-app/ribbon/internal/database"
	"github.com/ribbon-app/ribbon/internal/events"
	"github.com/ribbon-app/ribbon/internal/middleware"
	"github.com/ribbon-app/ribbon/internal/quota"
	ribbonredis "github.com/ribbon-app/ribbon/internal/redis"
	"github.com/ribbon-app/ribbon/internal/server"
	"github.com/ribbon-app/ribbon/internal/suggest"
	"github.com/ribbon-app/ribbon/internal/users"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		return err
	}

	// Redis
	rdb, err := ribbonredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// NATS is optional; without it events are dropped and audit persistence
	// is disabled.
	var natsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			return err
		}
		defer natsClient.Close()
		publisher = events.NewPublisher(natsClient.JetStream())

		auditConsumer := audit.NewConsumer(audit.NewRepository(pool))
		if err := auditConsumer.Start(ctx, events.NewConsumerManager(natsClient.JetStream())); err != nil {
			return fmt.Errorf("starting audit consumer: %w", err)
		}
	} else {
		slog.Warn("NATS disabled, events will not be published")
	}

	// Quota tracking and login lockout, both persisted through Redis
	quotaStore := quota.NewRedisStore(rdb)
	tracker := quota.NewTracker(quotaStore, quota.Limits{
		FreeDaily:       cfg.Quota.FreeDailyLimit,
		PremiumDaily:    cfg.Quota.PremiumDailyLimit,
		RefinementDaily: cfg.Quota.RefinementDailyLimit,
		Window:          time.Duration(cfg.Quota.WindowHours) * time.Hour,
		FailClosed:      cfg.Quota.FailClosed,
	})
	limiter := quota.NewAttemptLimiter(quotaStore, quota.LockoutPolicy{
		MaxAttempts:   cfg.Lockout.MaxAttempts,
		Window:        time.Duration(cfg.Lockout.WindowMinutes) * time.Minute,
		Step:          time.Duration(cfg.Lockout.StepMinutes) * time.Minute,
		MaxMultiplier: cfg.Lockout.MaxMultiplier,
	})

	// Hourly sweep of usage records whose window expired over a week ago
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := tracker.Cleanup(ctx, 7*24*time.Hour); n > 0 {
					slog.Info("cleaned up stale quota records", "removed", n)
				}
			}
		}
	}()

	// AI engine
	engine, err := suggest.NewGeminiEngine(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		return fmt.Errorf("creating suggestion engine: %w", err)
	}
	defer engine.Close()

	// Services
	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo, publisher)

	jwtManager := auth.NewJWTManager(cfg.JWT)
	authService := auth.NewService(userRepo, jwtManager, rdb, publisher)

	suggestService := suggest.NewService(
		tracker,
		engine,
		suggest.NewRepository(pool),
		suggest.NewRecentCache(rdb),
		publisher,
		cfg.AI.Model,
	)

	// Handlers
	authHandler := auth.NewHandler(authService, limiter)
	suggestHandler := suggest.NewHandler(suggestService)
	quotaHandler := quota.NewHandler(tracker)
	userHandler := users.NewHandler(userService)

	// 20 requests/minute per IP on the public auth endpoints
	authRateLimiter := middleware.NewRateLimiter(rdb, 20, 60)

	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    authRateLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		GenerateSuggestions: suggestHandler.Generate,
		RefineSuggestions:   suggestHandler.Refine,
		ListSuggestions:     suggestHandler.List,

		GetQuota: quotaHandler.GetQuota,

		GetMe:      userHandler.GetMe,
		UpdateTier: userHandler.UpdateTier,

		AuthMiddleware: jwtManager.Middleware(),
	})

	return server.New(cfg.Server, router).Start()
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
