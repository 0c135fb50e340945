package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ribbon-app/ribbon/internal/events"
	"github.com/ribbon-app/ribbon/internal/metrics"
	"github.com/ribbon-app/ribbon/internal/quota"
	"github.com/ribbon-app/ribbon/internal/users"
)

// History is the persistence surface the service needs.
type History interface {
	Insert(ctx context.Context, s *Suggestion) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Suggestion, error)
}

// Recent is the recent-batch cache surface the service needs.
type Recent interface {
	Push(ctx context.Context, userID uuid.UUID, ideas []GiftIdea) error
	Latest(ctx context.Context, userID uuid.UUID) ([]GiftIdea, error)
}

// DeniedError carries the quota decision behind a denial so handlers can
// render the countdown.
type DeniedError struct {
	Decision quota.Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("denied: %s", e.Decision.Reason)
}

var (
	// ErrEngine marks failures of the AI engine or its response parsing.
	ErrEngine = errors.New("suggestion engine failed")
	// ErrNothingToRefine is returned when no recent batch exists to refine.
	ErrNothingToRefine = errors.New("no recent suggestions to refine")
)

// Result is a successful generation with its post-increment quota state.
type Result struct {
	Suggestion *Suggestion `json:"suggestion"`
	Remaining  int         `json:"remaining"`
}

// Service runs the generation pipeline: quota gate, prompt, engine, parse,
// persist, cache, publish.
type Service struct {
	tracker   *quota.Tracker
	engine    Engine
	history   History
	recent    Recent
	publisher *events.Publisher
	model     string
}

func NewService(tracker *quota.Tracker, engine Engine, history History, recent Recent, publisher *events.Publisher, model string) *Service {
	return &Service{
		tracker:   tracker,
		engine:    engine,
		history:   history,
		recent:    recent,
		publisher: publisher,
		model:     model,
	}
}

// Generate produces a fresh batch of gift ideas. The quota slot is consumed
// before the engine is called; an engine failure does not refund it.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, tier string, req GiftRequest) (*Result, error) {
	premium := tier == users.TierPremium

	d := s.tracker.CheckAndRecordGeneration(ctx, userID.String(), premium)
	if !d.Allowed {
		s.recordDenial(ctx, userID, tier, KindGeneration, d)
		return nil, &DeniedError{Decision: d}
	}

	ideas, err := s.callEngine(ctx, BuildPrompt(req))
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(tier, "error").Inc()
		return nil, err
	}

	sg := s.store(ctx, userID, KindGeneration, req, ideas)
	metrics.GenerationsTotal.WithLabelValues(tier, "allowed").Inc()
	s.publishSuccess(ctx, userID, KindGeneration, len(ideas))

	return &Result{Suggestion: sg, Remaining: d.Remaining}, nil
}

// Refine produces an improved batch from the user's most recent one.
// Premium only; the tracker enforces the gate.
func (s *Service) Refine(ctx context.Context, userID uuid.UUID, tier string, req GiftRequest, feedback string) (*Result, error) {
	premium := tier == users.TierPremium

	previous, err := s.recent.Latest(ctx, userID)
	if err != nil {
		slog.Warn("reading recent ideas", "user_id", userID, "error", err)
	}
	if len(previous) == 0 {
		return nil, ErrNothingToRefine
	}

	d := s.tracker.CheckAndRecordRefinement(ctx, userID.String(), premium)
	if !d.Allowed {
		s.recordDenial(ctx, userID, tier, KindRefinement, d)
		return nil, &DeniedError{Decision: d}
	}

	ideas, err := s.callEngine(ctx, BuildRefinePrompt(req, previous, feedback))
	if err != nil {
		metrics.RefinementsTotal.WithLabelValues(tier, "error").Inc()
		return nil, err
	}

	sg := s.store(ctx, userID, KindRefinement, req, ideas)
	metrics.RefinementsTotal.WithLabelValues(tier, "allowed").Inc()
	s.publishSuccess(ctx, userID, KindRefinement, len(ideas))

	return &Result{Suggestion: sg, Remaining: d.Remaining}, nil
}

// History returns the user's persisted suggestion batches, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*Suggestion, error) {
	return s.history.ListByUser(ctx, userID, limit)
}

func (s *Service) callEngine(ctx context.Context, prompt string) ([]GiftIdea, error) {
	start := time.Now()
	raw, err := s.engine.Generate(ctx, prompt)
	metrics.EngineLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}

	ideas, err := ParseIdeas(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return ideas, nil
}

// store persists the batch and refreshes the recent cache. Both are best
// effort: the ideas are already generated and the quota already counted, so
// the user still gets them.
func (s *Service) store(ctx context.Context, userID uuid.UUID, kind string, req GiftRequest, ideas []GiftIdea) *Suggestion {
	sg := &Suggestion{
		UserID:    userID,
		Kind:      kind,
		Request:   req,
		Ideas:     ideas,
		Model:     s.model,
		CreatedAt: time.Now(),
	}
	if err := s.history.Insert(ctx, sg); err != nil {
		slog.Warn("persisting suggestion history", "user_id", userID, "error", err)
	}
	if err := s.recent.Push(ctx, userID, ideas); err != nil {
		slog.Warn("caching recent ideas", "user_id", userID, "error", err)
	}
	return sg
}

func (s *Service) recordDenial(ctx context.Context, userID uuid.UUID, tier, kind string, d quota.Decision) {
	switch kind {
	case KindGeneration:
		metrics.GenerationsTotal.WithLabelValues(tier, "denied").Inc()
	case KindRefinement:
		metrics.RefinementsTotal.WithLabelValues(tier, "denied").Inc()
	}

	if err := s.publisher.PublishQuotaEvent(ctx, events.QuotaEvent{
		UserID:    userID.String(),
		Kind:      kind,
		Reason:    string(d.Reason),
		Tier:      tier,
		Timestamp: time.Now(),
	}); err != nil {
		slog.Warn("publishing quota event", "error", err)
	}
}

func (s *Service) publishSuccess(ctx context.Context, userID uuid.UUID, kind string, count int) {
	if err := s.publisher.PublishSuggestionEvent(ctx, events.SuggestionEvent{
		UserID:    userID.String(),
		Kind:      kind,
		IdeaCount: count,
		Model:     s.model,
		Timestamp: time.Now(),
	}); err != nil {
		slog.Warn("publishing suggestion event", "error", err)
	}
}
