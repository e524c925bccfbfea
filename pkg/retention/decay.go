// Package retention implements the keep-or-forget policy: a retention
// score combining expected value, decay, and storage cost, plus the
// consolidation engine that compresses episodic clusters into semantic
// memories.
package retention

import (
	"math"
	"time"

	"github.com/memcore-ai/memcore-go/pkg/memory"
)

// Policy thresholds and coefficients.
const (
	// DefaultTauDelete is the deletion threshold. Memories strictly below
	// it are deleted; a memory exactly at the threshold is retained.
	DefaultTauDelete = 0.08

	// DefaultTauCompact is the compaction threshold. Memories between the
	// two thresholds are classified compactable; no compaction action is
	// taken yet.
	DefaultTauCompact = 0.2

	// DefaultDecayLambda is the decay rate per day.
	DefaultDecayLambda = 0.1

	// storageCostPerChar prices a memory's footprint.
	storageCostPerChar = 0.001
)

// Action is the retention classification of a memory.
type Action int

const (
	// ActionRetain keeps the memory as is.
	ActionRetain Action = iota

	// ActionCompact marks the memory as a compaction candidate. Reserved:
	// classification exists but no compaction is performed.
	ActionCompact

	// ActionDelete removes the memory.
	ActionDelete
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionRetain:
		return "retain"
	case ActionCompact:
		return "compact"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Policy holds the retention thresholds. Zero values select the defaults.
type Policy struct {
	TauDelete   float64
	TauCompact  float64
	DecayLambda float64
}

func (p Policy) withDefaults() Policy {
	if p.TauDelete <= 0 {
		p.TauDelete = DefaultTauDelete
	}
	if p.TauCompact <= 0 {
		p.TauCompact = DefaultTauCompact
	}
	if p.DecayLambda <= 0 {
		p.DecayLambda = DefaultDecayLambda
	}
	return p
}

// ExpectedValue scores how useful a memory is expected to be:
// 0.6 * floored utility + 0.4 * importance. A memory without a learned
// utility gets the neutral 0.5, and utility never drops below 0.2 so a
// pessimistic model cannot single-handedly doom an important memory.
func ExpectedValue(m *memory.Memory) float64 {
	utility := 0.5
	if m.UtilityScore != nil {
		utility = *m.UtilityScore
	}
	utility = math.Max(0.2, utility)

	return 0.6*utility + 0.4*m.Importance
}

// Discount computes the decay-based discount in [0,1]. Usage slows decay:
// the asymptotic discount falls from 0.9 for never-used memories to 0.5 at
// the usage cap.
func Discount(m *memory.Memory, lambda float64, now time.Time) float64 {
	ageDays := m.Age(now).Hours() / 24.0
	if ageDays < 0 {
		ageDays = 0
	}
	usage := math.Min(1.0, float64(m.UsageCount)/10.0)
	d := (1 - math.Exp(-lambda*ageDays)) * (0.9 - 0.4*usage)
	return memory.Clamp01(d)
}

// StorageCost prices the memory's text footprint, capped at 1.
func StorageCost(m *memory.Memory) float64 {
	return math.Min(1.0, storageCostPerChar*float64(len(m.Summary)+len(m.RawText)))
}

// Score computes the retention score: expected value discounted by decay,
// minus storage cost, floored at 0.
func (p Policy) Score(m *memory.Memory, now time.Time) float64 {
	p = p.withDefaults()
	pi := ExpectedValue(m)*(1-Discount(m, p.DecayLambda, now)) - StorageCost(m)
	if pi < 0 {
		return 0
	}
	return pi
}

// Classify maps a retention score to an action. The delete comparison is
// strict, so a score exactly at the delete threshold retains.
func (p Policy) Classify(pi float64) Action {
	p = p.withDefaults()
	switch {
	case pi < p.TauDelete:
		return ActionDelete
	case pi < p.TauCompact:
		return ActionCompact
	default:
		return ActionRetain
	}
}
