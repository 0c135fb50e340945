package suggest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseIdeas extracts the idea list from an engine response. Models wrap
// JSON in markdown fences often enough that stripping them is table stakes.
func ParseIdeas(raw string) ([]GiftIdea, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Tolerate prose before/after the array by slicing to the brackets.
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in engine response")
	}
	cleaned = cleaned[start : end+1]

	var ideas []GiftIdea
	if err := json.Unmarshal([]byte(cleaned), &ideas); err != nil {
		return nil, fmt.Errorf("parsing engine response: %w", err)
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("engine returned no ideas")
	}

	for i, idea := range ideas {
		if strings.TrimSpace(idea.Title) == "" {
			return nil, fmt.Errorf("idea %d has no title", i+1)
		}
	}
	return ideas, nil
}
