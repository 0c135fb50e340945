package suggest

import (
	"time"

	"github.com/google/uuid"
)

// Suggestion kinds.
const (
	KindGeneration = "generation"
	KindRefinement = "refinement"
)

// GiftRequest describes who the gift is for.
type GiftRequest struct {
	Recipient    string   `json:"recipient" validate:"required,max=100"`
	Relationship string   `json:"relationship" validate:"required,max=100"`
	Occasion     string   `json:"occasion" validate:"required,max=100"`
	Budget       string   `json:"budget" validate:"max=50"`
	Interests    []string `json:"interests" validate:"max=10,dive,max=50"`
	Notes        string   `json:"notes" validate:"max=500"`
}

// GiftIdea is a single suggestion produced by the engine.
type GiftIdea struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	EstimatedPrice string `json:"estimated_price"`
	Reasoning      string `json:"reasoning"`
}

// Suggestion is a persisted generation or refinement batch.
type Suggestion struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	Kind      string      `json:"kind"`
	Request   GiftRequest `json:"request"`
	Ideas     []GiftIdea  `json:"ideas"`
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"created_at"`
}
