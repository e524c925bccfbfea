// Package extraction provides entity extraction from free text.
//
// Extracted entity names seed graph expansion during candidate fusion and
// feed the entity-overlap ranking feature.
package extraction

import (
	"regexp"
	"sort"
	"strings"
)

// Extractor extracts entity names from text.
//
// Implementations must be safe for concurrent use. The heuristic extractor
// below is the default; an NER- or LLM-backed extractor can be substituted
// without touching the retrieval pipeline.
type Extractor interface {
	// Extract returns the deduplicated entity names found in text.
	// An empty result is valid and means the text names no entities.
	Extract(text string) []string
}

// stopWords are tokens that look like entities but never are.
var stopWords = map[string]struct{}{
	"i": {}, "me": {}, "my": {}, "we": {}, "you": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "can": {}, "may": {},
	"might": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"it": {}, "its": {},
}

var (
	phrasePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	singlePattern = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]{1,30}\b`)
)

// Heuristic extracts capitalized phrases as entity names.
//
// It is deliberately simple: consecutive capitalized words form one entity,
// lone capitalized tokens (product names, acronyms) are entities on their
// own, and common sentence-leading words are filtered by a stop list.
type Heuristic struct{}

// NewHeuristic creates a heuristic entity extractor.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Extract returns the sorted, deduplicated entity names found in text.
func (h *Heuristic) Extract(text string) []string {
	seen := make(map[string]struct{})

	for _, candidate := range phrasePattern.FindAllString(text, -1) {
		candidate = strings.TrimSpace(candidate)
		if len(candidate) < 2 {
			continue
		}
		if _, stop := stopWords[strings.ToLower(candidate)]; stop {
			continue
		}
		seen[candidate] = struct{}{}
	}

	for _, candidate := range singlePattern.FindAllString(text, -1) {
		if _, stop := stopWords[strings.ToLower(candidate)]; stop {
			continue
		}
		seen[candidate] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Resolve normalizes entity names using an alias map.
//
// Unknown names pass through unchanged; duplicates after resolution are
// collapsed while preserving first-seen order.
func Resolve(entities []string, aliases map[string]string) []string {
	out := make([]string, 0, len(entities))
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if canonical, ok := aliases[e]; ok {
			e = canonical
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
