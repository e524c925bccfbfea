// Package memory defines the domain types shared by the retrieval,
// ranking, and retention stages. It has no dependencies on the rest of
// the module, so every stage can import it freely.
package memory

import (
	"math"
	"time"
)

// MemoryKind classifies a memory by how it was formed and how it should age.
//
// Kinds:
//   - KindEpisodic: a discrete event extracted from an interaction
//   - KindSemantic: a consolidated, stable insight derived from episodic memories
//   - KindProcedural: a how-to note (skills, routines)
type MemoryKind string

const (
	// KindEpisodic is a discrete event memory. Episodic memories are the
	// input of consolidation and decay fastest.
	KindEpisodic MemoryKind = "episodic"

	// KindSemantic is a consolidated long-term insight. Semantic memories
	// carry provenance pointing at the episodic memories they summarize.
	KindSemantic MemoryKind = "semantic"

	// KindProcedural is a skill or routine memory.
	KindProcedural MemoryKind = "procedural"
)

// Memory is a single stored unit of agent-relevant knowledge.
//
// A memory is created by ingestion or by consolidation (a derived semantic
// memory carrying the ids of its sources), mutated by usage and by
// correction, and destroyed when its retention score falls below the
// delete threshold.
//
// Example:
//
//	m := &memory.Memory{
//	    ID:         1234567890,
//	    OwnerID:    "user_001",
//	    Kind:       memory.KindEpisodic,
//	    Summary:    "We launched the beta last week",
//	    Importance: 0.8,
//	}
type Memory struct {
	// ID is the unique identifier of the memory.
	ID int64 `json:"id"`

	// OwnerID identifies the user who owns this memory.
	OwnerID string `json:"owner_id"`

	// Kind classifies the memory (episodic, semantic, procedural).
	Kind MemoryKind `json:"kind"`

	// Summary is the short text used for ranking, lexical indexing,
	// and consolidation.
	Summary string `json:"summary"`

	// RawText is the original text the memory was extracted from (optional).
	RawText string `json:"raw_text,omitempty"`

	// Embedding is the vector representation for similarity search.
	// Omitted from JSON to reduce payload size.
	Embedding []float64 `json:"embedding,omitempty"`

	// Entities are the entity names mentioned by the memory.
	Entities []string `json:"entities,omitempty"`

	// Emotion is an optional emotion tag attached at ingestion.
	Emotion string `json:"emotion,omitempty"`

	// Importance is the ingestion-time importance estimate, always in [0,1].
	Importance float64 `json:"importance"`

	// UsageCount is how many times the memory was used to answer a query.
	UsageCount int `json:"usage_count"`

	// CreatedAt is when the memory was created.
	CreatedAt time.Time `json:"created_at"`

	// LastUsed is when the memory last contributed to a response
	// (nil if never used).
	LastUsed *time.Time `json:"last_used,omitempty"`

	// UtilityScore is the learned utility estimate from the scoring model,
	// in [0,1]. Nil when no model has scored this memory yet.
	UtilityScore *float64 `json:"utility_score,omitempty"`

	// Provenance lists the ids of the source memories for consolidated
	// semantic memories. Empty for memories created by ingestion.
	Provenance []int64 `json:"provenance,omitempty"`
}

// Age returns the time since the memory was last used, falling back to the
// creation time when it was never used.
func (m *Memory) Age(now time.Time) time.Duration {
	t := m.CreatedAt
	if m.LastUsed != nil && m.LastUsed.After(t) {
		t = *m.LastUsed
	}
	return now.Sub(t)
}

// Scored pairs a memory with a per-query relevance score, as returned by
// similarity search.
type Scored struct {
	// Memory is the matched memory.
	Memory *Memory

	// Score is the similarity score in [0,1] (highest first).
	Score float64
}

// Centrality is the cached graph-derived importance signal for a memory.
//
// It is recomputed in the background from the entity graph and read
// best-effort during ranking; a missing entry degrades to a flat bonus.
type Centrality struct {
	// Pagerank is the PageRank score of the memory node.
	Pagerank float64 `json:"pagerank"`

	// Degree is the number of graph relationships of the memory node.
	Degree int `json:"degree"`
}

// FeedbackRecord captures which memories a retrieval returned, which of them
// were actually used, and the downstream reward. Records are append-only and
// consumed by scoring-model training, never by retrieval.
type FeedbackRecord struct {
	// ID is the unique identifier of the record.
	ID string `json:"id"`

	// OwnerID identifies the user the query belonged to.
	OwnerID string `json:"owner_id"`

	// Query is the original query text.
	Query string `json:"query"`

	// RetrievedIDs are the memory ids the ranking returned.
	RetrievedIDs []int64 `json:"retrieved_ids"`

	// UsedIDs are the memory ids that contributed to the response.
	UsedIDs []int64 `json:"used_ids"`

	// Reward is the downstream reward in [0,1].
	Reward float64 `json:"reward"`

	// CreatedAt is when the record was appended.
	CreatedAt time.Time `json:"created_at"`
}

// ConsolidationReport summarizes one retention sweep for an owner.
// The counts are observability output; they do not drive control flow.
type ConsolidationReport struct {
	// Clusters is the number of episodic clusters formed.
	Clusters int `json:"clusters"`

	// Created is the number of semantic memories created.
	Created int `json:"created"`

	// Deleted is the number of memories removed by the retention policy.
	Deleted int `json:"deleted"`
}

// Clamp01 clamps v to [0,1]. Importance, recency-derived scores, and learned
// utility are always stored clamped.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
