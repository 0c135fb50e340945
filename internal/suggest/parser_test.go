package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdeasBareArray(t *testing.T) {
	raw := `[{"title":"Record player","description":"A turntable","estimated_price":"$120","reasoning":"They love vinyl"}]`

	ideas, err := ParseIdeas(raw)
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "Record player", ideas[0].Title)
	assert.Equal(t, "$120", ideas[0].EstimatedPrice)
}

func TestParseIdeasMarkdownFenced(t *testing.T) {
	raw := "```json\n[{\"title\":\"Tea set\",\"description\":\"Ceramic\",\"estimated_price\":\"$40\",\"reasoning\":\"Tea drinker\"}]\n```"

	ideas, err := ParseIdeas(raw)
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "Tea set", ideas[0].Title)
}

func TestParseIdeasSurroundingProse(t *testing.T) {
	raw := `Here are some ideas:
[{"title":"Book","description":"A novel","estimated_price":"$15","reasoning":"Reader"}]
Hope these help!`

	ideas, err := ParseIdeas(raw)
	require.NoError(t, err)
	require.Len(t, ideas, 1)
}

func TestParseIdeasRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"no json here",
		"[]",
		`[{"description":"missing title"}]`,
		`[{"title": broken`,
	} {
		_, err := ParseIdeas(raw)
		assert.Error(t, err, "input: %q", raw)
	}
}
