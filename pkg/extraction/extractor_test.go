package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCapitalizedNames(t *testing.T) {
	h := NewHeuristic()
	assert.Equal(t, []string{"Acme", "Alice"}, h.Extract("yesterday I met Alice over at Acme"))
}

func TestExtractPhrases(t *testing.T) {
	h := NewHeuristic()
	entities := h.Extract("lunch at Blue Bottle with the team")
	assert.Contains(t, entities, "Blue Bottle")
}

func TestExtractAcronymsAndProducts(t *testing.T) {
	h := NewHeuristic()
	entities := h.Extract("we shipped OAuth2 to Prod")
	assert.Contains(t, entities, "OAuth2")
	assert.Contains(t, entities, "Prod")
}

func TestExtractFiltersStopWords(t *testing.T) {
	h := NewHeuristic()
	assert.Empty(t, h.Extract("The meeting was fine"))
	assert.Empty(t, h.Extract("no capitalized words here"))
	assert.Empty(t, h.Extract(""))
}

func TestExtractDeduplicates(t *testing.T) {
	h := NewHeuristic()
	assert.Equal(t, []string{"Alice"}, h.Extract("Alice told Alice stories about Alice"))
}

func TestResolve(t *testing.T) {
	aliases := map[string]string{"Bob": "Robert"}
	assert.Equal(t, []string{"Robert", "Alice"}, Resolve([]string{"Bob", "Alice", "Robert"}, aliases))
	assert.Empty(t, Resolve(nil, aliases))
}
