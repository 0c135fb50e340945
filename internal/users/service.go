package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ribbon-app/ribbon/internal/audit"
	"github.com/ribbon-app/ribbon/internal/events"
)

// Service exposes account operations on top of the repository.
type Service struct {
	repo      *Repository
	publisher *events.Publisher
}

func NewService(repo *Repository, publisher *events.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s not found", id)
	}
	return u, nil
}

// ChangeTier moves the user to the given tier. Usage counters are not
// touched; a downgrade mid-window keeps whatever was already consumed.
func (s *Service) ChangeTier(ctx context.Context, id uuid.UUID, tier string) (*User, error) {
	if !ValidTier(tier) {
		return nil, fmt.Errorf("unknown tier %q", tier)
	}

	if err := s.repo.UpdateTier(ctx, id, tier); err != nil {
		return nil, err
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishAuditEvent(ctx, events.AuditEvent{
		UserID:    id.String(),
		EventType: audit.EventTierChanged,
		Severity:  audit.SeverityInfo,
		Details:   fmt.Sprintf("tier changed to %s", tier),
		Timestamp: time.Now(),
	}); err != nil {
		slog.Warn("publishing tier change event", "error", err)
	}

	slog.Info("user tier changed", "user_id", id, "tier", tier)
	return u, nil
}
