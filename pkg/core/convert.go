package core

import (
	"github.com/memcore-ai/memcore-go/pkg/storage"
)

// Converters between the public memory types and their storage mirrors.
// The storage package keeps its own copies of these types to avoid an
// import cycle with this package.

func toStorageMemory(m *Memory) *storage.Memory {
	return &storage.Memory{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		Kind:         string(m.Kind),
		Summary:      m.Summary,
		RawText:      m.RawText,
		Embedding:    m.Embedding,
		Entities:     m.Entities,
		Emotion:      m.Emotion,
		Importance:   m.Importance,
		UsageCount:   m.UsageCount,
		CreatedAt:    m.CreatedAt,
		LastUsed:     m.LastUsed,
		UtilityScore: m.UtilityScore,
		Provenance:   m.Provenance,
	}
}

func fromStorageMemory(m *storage.Memory) *Memory {
	if m == nil {
		return nil
	}
	return &Memory{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		Kind:         MemoryKind(m.Kind),
		Summary:      m.Summary,
		RawText:      m.RawText,
		Embedding:    m.Embedding,
		Entities:     m.Entities,
		Emotion:      m.Emotion,
		Importance:   m.Importance,
		UsageCount:   m.UsageCount,
		CreatedAt:    m.CreatedAt,
		LastUsed:     m.LastUsed,
		UtilityScore: m.UtilityScore,
		Provenance:   m.Provenance,
	}
}

func toStorageFeedback(r *FeedbackRecord) *storage.FeedbackRecord {
	return &storage.FeedbackRecord{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Query:        r.Query,
		RetrievedIDs: r.RetrievedIDs,
		UsedIDs:      r.UsedIDs,
		Reward:       r.Reward,
		CreatedAt:    r.CreatedAt,
	}
}

func fromStorageFeedback(r *storage.FeedbackRecord) *FeedbackRecord {
	if r == nil {
		return nil
	}
	return &FeedbackRecord{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Query:        r.Query,
		RetrievedIDs: r.RetrievedIDs,
		UsedIDs:      r.UsedIDs,
		Reward:       r.Reward,
		CreatedAt:    r.CreatedAt,
	}
}

func fromStorageCentrality(in map[int64]storage.Centrality) map[int64]Centrality {
	out := make(map[int64]Centrality, len(in))
	for id, c := range in {
		out[id] = Centrality{Pagerank: c.Pagerank, Degree: c.Degree}
	}
	return out
}
