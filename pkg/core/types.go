// Package core provides the main MemCore client and the retrieval,
// ranking, and retention entry points built on top of it.
package core

import (
	"github.com/memcore-ai/memcore-go/pkg/memory"
)

// The domain types live in the memory package, which the retrieval,
// ranking, and retention stages import directly. The aliases below keep
// them available on the client's own import path.

// Memory is a single stored unit of agent-relevant knowledge.
// See memory.Memory.
type Memory = memory.Memory

// MemoryKind classifies a memory by how it was formed and how it should age.
// See memory.MemoryKind.
type MemoryKind = memory.MemoryKind

const (
	// KindEpisodic is a discrete event memory.
	KindEpisodic = memory.KindEpisodic

	// KindSemantic is a consolidated long-term insight.
	KindSemantic = memory.KindSemantic

	// KindProcedural is a skill or routine memory.
	KindProcedural = memory.KindProcedural
)

// Scored pairs a memory with a per-query relevance score.
type Scored = memory.Scored

// Centrality is the cached graph-derived importance signal for a memory.
type Centrality = memory.Centrality

// FeedbackRecord captures the outcome of one retrieval for training.
type FeedbackRecord = memory.FeedbackRecord

// ConsolidationReport summarizes one retention sweep for an owner.
type ConsolidationReport = memory.ConsolidationReport

// Clamp01 clamps v to [0,1].
func Clamp01(v float64) float64 {
	return memory.Clamp01(v)
}
