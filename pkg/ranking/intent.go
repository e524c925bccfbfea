package ranking

import (
	"regexp"
	"strings"
)

// Intent classifies what a query is trying to accomplish. The id is encoded
// (divided by 4) into the last feature slot so the model can learn
// per-intent weightings.
type Intent int

const (
	// IntentRecall asks for a specific past event or fact.
	IntentRecall Intent = 0

	// IntentReasoning asks for an explanation or cause.
	IntentReasoning Intent = 1

	// IntentPersonal asks about the user themselves.
	IntentPersonal Intent = 2

	// IntentKnowledge asks for general world knowledge.
	IntentKnowledge Intent = 3

	// IntentPlanning asks about future actions or scheduling.
	IntentPlanning Intent = 4
)

// String returns the intent name.
func (i Intent) String() string {
	switch i {
	case IntentRecall:
		return "recall"
	case IntentReasoning:
		return "reasoning"
	case IntentPersonal:
		return "personal"
	case IntentKnowledge:
		return "knowledge"
	case IntentPlanning:
		return "planning"
	default:
		return "unknown"
	}
}

var (
	planningPattern  = regexp.MustCompile(`(?i)\b(plan|schedule|remind|upcoming|next week|tomorrow|todo|deadline|should i|going to)\b`)
	reasoningPattern = regexp.MustCompile(`(?i)\b(why|how come|explain|reason|because|cause[ds]?)\b`)
	personalPattern  = regexp.MustCompile(`(?i)\b(my|me|mine|i am|i'm|i like|i want|i feel|about me)\b`)
	knowledgePattern = regexp.MustCompile(`(?i)\b(what is|what are|who is|define|meaning of|how does|how do)\b`)
	recallPattern    = regexp.MustCompile(`(?i)\b(remember|recall|what did|when did|where did|last time|previously|earlier)\b`)
)

// DetectIntent classifies a query with keyword heuristics. Patterns are
// checked from most to least specific; an unmatched query defaults to
// recall, the dominant intent for a memory system.
func DetectIntent(query string) Intent {
	q := strings.TrimSpace(query)
	if q == "" {
		return IntentRecall
	}

	switch {
	case planningPattern.MatchString(q):
		return IntentPlanning
	case recallPattern.MatchString(q):
		return IntentRecall
	case reasoningPattern.MatchString(q):
		return IntentReasoning
	case personalPattern.MatchString(q):
		return IntentPersonal
	case knowledgePattern.MatchString(q):
		return IntentKnowledge
	default:
		return IntentRecall
	}
}
