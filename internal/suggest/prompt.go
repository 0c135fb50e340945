package suggest

import (
	"fmt"
	"strings"
)

// ideaCount is how many ideas the engine is asked for per request.
const ideaCount = 5

// BuildPrompt renders a generation prompt. The engine is instructed to
// answer with a bare JSON array so the parser stays simple.
func BuildPrompt(req GiftRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Suggest %d gift ideas for my %s", ideaCount, req.Relationship)
	if req.Recipient != "" {
		fmt.Fprintf(&b, " (%s)", req.Recipient)
	}
	fmt.Fprintf(&b, " for %s.\n", req.Occasion)

	if req.Budget != "" {
		fmt.Fprintf(&b, "Budget: %s.\n", req.Budget)
	}
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, "Their interests: %s.\n", strings.Join(req.Interests, ", "))
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "Additional context: %s.\n", req.Notes)
	}

	b.WriteString(`
Respond with ONLY a JSON array, no markdown, no prose. Each element:
{"title": "...", "description": "...", "estimated_price": "...", "reasoning": "..."}`)

	return b.String()
}

// BuildRefinePrompt renders a refinement prompt from the previous batch and
// the user's feedback.
func BuildRefinePrompt(req GiftRequest, previous []GiftIdea, feedback string) string {
	var b strings.Builder

	b.WriteString("I previously received these gift ideas:\n")
	for i, idea := range previous {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, idea.Title, idea.Description)
	}

	fmt.Fprintf(&b, "\nFeedback: %s\n\n", feedback)
	fmt.Fprintf(&b, "Suggest %d improved gift ideas for my %s for %s, taking the feedback into account.\n",
		ideaCount, req.Relationship, req.Occasion)
	if req.Budget != "" {
		fmt.Fprintf(&b, "Budget: %s.\n", req.Budget)
	}

	b.WriteString(`
Respond with ONLY a JSON array, no markdown, no prose. Each element:
{"title": "...", "description": "...", "estimated_price": "...", "reasoning": "..."}`)

	return b.String()
}
