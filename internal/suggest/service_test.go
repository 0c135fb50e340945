package suggest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ribbon-app/ribbon/internal/events"
	"github.com/ribbon-app/ribbon/internal/quota"
	"github.com/ribbon-app/ribbon/internal/users"
)

const ideasJSON = `[{"title":"Climbing shoes","description":"Entry-level pair","estimated_price":"$80","reasoning":"They started bouldering"}]`

type memStore struct {
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key, value string) error {
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

type fakeEngine struct {
	response string
	err      error
	calls    int
}

func (e *fakeEngine) Generate(context.Context, string) (string, error) {
	e.calls++
	return e.response, e.err
}

type fakeHistory struct {
	inserted []*Suggestion
}

func (h *fakeHistory) Insert(_ context.Context, s *Suggestion) error {
	h.inserted = append(h.inserted, s)
	return nil
}

func (h *fakeHistory) ListByUser(context.Context, uuid.UUID, int) ([]*Suggestion, error) {
	return h.inserted, nil
}

type fakeRecent struct {
	latest []GiftIdea
	pushed int
}

func (r *fakeRecent) Push(_ context.Context, _ uuid.UUID, ideas []GiftIdea) error {
	r.latest = ideas
	r.pushed++
	return nil
}

func (r *fakeRecent) Latest(context.Context, uuid.UUID) ([]GiftIdea, error) {
	return r.latest, nil
}

type serviceFixture struct {
	service *Service
	tracker *quota.Tracker
	engine  *fakeEngine
	history *fakeHistory
	recent  *fakeRecent
}

func newFixture(limits quota.Limits) *serviceFixture {
	engine := &fakeEngine{response: ideasJSON}
	history := &fakeHistory{}
	recent := &fakeRecent{}
	tracker := quota.NewTracker(newMemStore(), limits)

	return &serviceFixture{
		service: NewService(tracker, engine, history, recent, events.NewPublisher(nil), "gemini-1.5-flash"),
		tracker: tracker,
		engine:  engine,
		history: history,
		recent:  recent,
	}
}

func smallLimits() quota.Limits {
	return quota.Limits{
		FreeDaily:       2,
		PremiumDaily:    50,
		RefinementDaily: 25,
		Window:          24 * time.Hour,
	}
}

func giftReq() GiftRequest {
	return GiftRequest{Recipient: "Ana", Relationship: "sister", Occasion: "birthday"}
}

func TestGenerateReturnsIdeasAndRemaining(t *testing.T) {
	f := newFixture(smallLimits())
	ctx := context.Background()

	res, err := f.service.Generate(ctx, uuid.New(), users.TierFree, giftReq())
	require.NoError(t, err)
	require.Len(t, res.Suggestion.Ideas, 1)
	assert.Equal(t, "Climbing shoes", res.Suggestion.Ideas[0].Title)
	assert.Equal(t, KindGeneration, res.Suggestion.Kind)
	assert.Equal(t, 1, res.Remaining)

	require.Len(t, f.history.inserted, 1)
	assert.Equal(t, 1, f.recent.pushed)
}

func TestGenerateDeniedWhenExhausted(t *testing.T) {
	f := newFixture(smallLimits())
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := f.service.Generate(ctx, userID, users.TierFree, giftReq())
		require.NoError(t, err)
	}

	_, err := f.service.Generate(ctx, userID, users.TierFree, giftReq())
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, quota.ReasonQuotaExceeded, denied.Decision.Reason)

	// The engine must not have been reached for the denied request.
	assert.Equal(t, 2, f.engine.calls)
}

func TestGenerateEngineFailureStillConsumesSlot(t *testing.T) {
	f := newFixture(smallLimits())
	f.engine.err = errors.New("upstream timeout")
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.service.Generate(ctx, userID, users.TierFree, giftReq())
	require.ErrorIs(t, err, ErrEngine)

	st := f.tracker.Status(ctx, userID.String(), false)
	assert.Equal(t, 1, st.GenerationsUsed)
	assert.Empty(t, f.history.inserted)
}

func TestGenerateUnparseableResponse(t *testing.T) {
	f := newFixture(smallLimits())
	f.engine.response = "I'm sorry, I can't help with that."

	_, err := f.service.Generate(context.Background(), uuid.New(), users.TierFree, giftReq())
	require.ErrorIs(t, err, ErrEngine)
}

func TestRefineRequiresPremium(t *testing.T) {
	f := newFixture(smallLimits())
	f.recent.latest = []GiftIdea{{Title: "Candle", Description: "Scented"}}
	ctx := context.Background()

	_, err := f.service.Refine(ctx, uuid.New(), users.TierFree, giftReq(), "more personal")
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, quota.ReasonNotEntitled, denied.Decision.Reason)
	assert.Equal(t, 0, f.engine.calls)
}

func TestRefineWithoutRecentBatch(t *testing.T) {
	f := newFixture(smallLimits())
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.service.Refine(ctx, userID, users.TierPremium, giftReq(), "cheaper options")
	require.ErrorIs(t, err, ErrNothingToRefine)

	// No refinement slot consumed when there was nothing to refine.
	st := f.tracker.Status(ctx, userID.String(), true)
	assert.Equal(t, 0, st.RefinementsUsed)
}

func TestRefineSuccess(t *testing.T) {
	f := newFixture(smallLimits())
	f.recent.latest = []GiftIdea{{Title: "Candle", Description: "Scented"}}
	ctx := context.Background()
	userID := uuid.New()

	res, err := f.service.Refine(ctx, userID, users.TierPremium, giftReq(), "they love climbing")
	require.NoError(t, err)
	assert.Equal(t, KindRefinement, res.Suggestion.Kind)
	assert.Equal(t, 24, res.Remaining)

	st := f.tracker.Status(ctx, userID.String(), true)
	assert.Equal(t, 1, st.RefinementsUsed)
}
