package suggest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptIncludesAllFields(t *testing.T) {
	p := BuildPrompt(GiftRequest{
		Recipient:    "Ana",
		Relationship: "sister",
		Occasion:     "birthday",
		Budget:       "$50-100",
		Interests:    []string{"hiking", "photography"},
		Notes:        "recently moved to the mountains",
	})

	assert.Contains(t, p, "sister")
	assert.Contains(t, p, "Ana")
	assert.Contains(t, p, "birthday")
	assert.Contains(t, p, "$50-100")
	assert.Contains(t, p, "hiking, photography")
	assert.Contains(t, p, "recently moved")
	assert.Contains(t, p, "JSON array")
}

func TestBuildPromptOmitsEmptyFields(t *testing.T) {
	p := BuildPrompt(GiftRequest{
		Relationship: "friend",
		Occasion:     "housewarming",
	})

	assert.NotContains(t, p, "Budget:")
	assert.NotContains(t, p, "interests")
	assert.NotContains(t, p, "Additional context")
}

func TestBuildRefinePromptListsPreviousIdeas(t *testing.T) {
	previous := []GiftIdea{
		{Title: "Candle", Description: "Scented"},
		{Title: "Mug", Description: "Handmade"},
	}

	p := BuildRefinePrompt(GiftRequest{Relationship: "friend", Occasion: "housewarming"}, previous, "too generic, they love cooking")

	assert.Contains(t, p, "1. Candle: Scented")
	assert.Contains(t, p, "2. Mug: Handmade")
	assert.Contains(t, p, "too generic, they love cooking")
	assert.True(t, strings.Contains(p, "JSON array"))
}
