package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()
	c := NewCounter()

	text := strings.Repeat("Explain how VLOOKUP works in Excel. ", 10)
	n := c.CountTokens("gpt-4", text)
	assert.Positive(t, n)
	// Counting is stable for the same input.
	assert.Equal(t, n, c.CountTokens("gpt-4", text))

	// Unknown models resolve through the fallback encoding or byte estimate,
	// never zero for non-trivial text.
	assert.Positive(t, c.CountTokens("google/gemini-flash-1.5", text))
}

func TestCountTokens_EmptyText(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	assert.Zero(t, c.CountTokens("gpt-4", ""))
}
