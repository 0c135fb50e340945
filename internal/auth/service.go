package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ribbon-app/ribbon/internal/audit"
	"github.com/ribbon-app/ribbon/internal/events"
	"github.com/ribbon-app/ribbon/internal/users"
)

// refreshKeyPrefix namespaces stored refresh token IDs in Redis.
const refreshKeyPrefix = "auth:refresh:"

// Service implements registration, login and token rotation. Refresh tokens
// are tracked server-side in Redis so logout can revoke them.
type Service struct {
	repo      *users.Repository
	jwt       *JWTManager
	redis     *redis.Client
	publisher *events.Publisher
}

func NewService(repo *users.Repository, jwt *JWTManager, rdb *redis.Client, publisher *events.Publisher) *Service {
	return &Service{repo: repo, jwt: jwt, redis: rdb, publisher: publisher}
}

var (
	// ErrEmailTaken is returned when registering an already-known email.
	ErrEmailTaken = fmt.Errorf("email already registered")
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	// ErrTokenRevoked is returned for a refresh token no longer on record.
	ErrTokenRevoked = fmt.Errorf("refresh token revoked")
)

func (s *Service) Register(ctx context.Context, email, password string) (*users.User, *TokenPair, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	u := &users.User{Email: email, PasswordHash: hash, Tier: users.TierFree}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user registered", "user_id", u.ID, "email", u.Email)
	return u, pair, nil
}

// Login verifies the credentials. Attempt counting lives in the handler;
// this only answers whether the credentials are valid.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, *TokenPair, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || !VerifyPassword(u.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in", "user_id", u.ID)
	return u, pair, nil
}

// Refresh rotates the token pair. The presented refresh token must still be
// on record; rotation deletes it so each refresh token is single-use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	key := refreshKeyPrefix + claims.ID
	deleted, err := s.redis.Del(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("checking refresh token: %w", err)
	}
	if deleted == 0 {
		return nil, ErrTokenRevoked
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, u)
}

// Logout revokes the presented refresh token. Already-revoked tokens are
// not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.redis.Del(ctx, refreshKeyPrefix+claims.ID).Err(); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

func (s *Service) issueTokens(ctx context.Context, u *users.User) (*TokenPair, error) {
	pair, err := s.jwt.GenerateTokenPair(u.ID, u.Email, u.Tier)
	if err != nil {
		return nil, err
	}

	claims, err := s.jwt.ValidateRefreshToken(pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	key := refreshKeyPrefix + claims.ID
	if err := s.redis.Set(ctx, key, u.ID.String(), s.jwt.RefreshExpiry()).Err(); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return pair, nil
}

// AuditLoginFailure publishes a failed-login audit event. Best effort.
func (s *Service) AuditLoginFailure(ctx context.Context, email string, lockedOut bool) {
	eventType := audit.EventLoginFailed
	severity := audit.SeverityInfo
	details := "invalid credentials"
	if lockedOut {
		eventType = audit.EventLoginLockout
		severity = audit.SeverityWarn
		details = "lockout imposed"
	}
	if err := s.publisher.PublishAuditEvent(ctx, events.AuditEvent{
		UserID:    email,
		EventType: eventType,
		Severity:  severity,
		Details:   details,
		Timestamp: time.Now(),
	}); err != nil {
		slog.Warn("publishing login audit event", "error", err)
	}
}
