// Package ranking provides the learned utility model for memories: the
// fixed-layout feature vector, a small feed-forward scoring model, pairwise
// training, and training-set construction from feedback logs.
package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/memcore-ai/memcore-go/pkg/memory"
)

// FeatureDim is the fixed length of a feature vector.
//
// Any change to the layout below invalidates previously trained model
// weights; bump FeatureVersion together with FeatureDim.
const FeatureDim = 11

// FeatureVersion identifies the feature layout a saved model was trained on.
const FeatureVersion = 1

// usageCap is the usage count at which the usage feature saturates.
const usageCap = 10.0

// noveltyPlaceholder fills the novelty slot until a distance-from-corpus
// signal is wired in.
const noveltyPlaceholder = 0.5

// Signals are the raw inputs of one feature vector.
//
// Both the online ranking path (from a fused candidate) and the offline
// training path (from a raw query/memory pair) reduce to Signals and then
// call Vector, so the two paths cannot drift apart.
type Signals struct {
	// Similarity is the query-memory embedding similarity in [0,1].
	Similarity float64

	// Recency is the exponential time-decay score in [0,1].
	Recency float64

	// Importance is the memory's stored importance in [0,1].
	Importance float64

	// UsageCount is the raw usage count; Vector normalizes it.
	UsageCount int

	// Pagerank is the cached graph centrality (0 when unavailable).
	Pagerank float64

	// EntityOverlap is |query entities ∩ memory entities| / |query entities|.
	EntityOverlap float64

	// HasEmotion reports whether the memory carries an emotion tag.
	HasEmotion bool

	// GraphDistance is the blended graph score of the candidate.
	GraphDistance float64

	// Intent is the detected query intent id (0..4).
	Intent Intent
}

// Vector builds the feature vector for the given signals.
//
// The layout is versioned and load-bearing for train/inference consistency:
//
//	[similarity, recency, importance, usage_norm, pagerank, entity_overlap,
//	 emotion_intensity, topic_match, novelty, graph_distance, intent/4]
//
// Vector is a pure function: identical signals yield identical output.
func Vector(s Signals) []float64 {
	usageNorm := 0.0
	if s.UsageCount > 0 {
		usageNorm = math.Min(1.0, float64(s.UsageCount)/usageCap)
	}
	emotionIntensity := 0.0
	if s.HasEmotion {
		emotionIntensity = 0.5
	}

	return []float64{
		memory.Clamp01(s.Similarity),
		memory.Clamp01(s.Recency),
		memory.Clamp01(s.Importance),
		usageNorm,
		s.Pagerank,
		memory.Clamp01(s.EntityOverlap),
		emotionIntensity,
		memory.Clamp01(s.Similarity), // topic_match
		noveltyPlaceholder,
		s.GraphDistance,
		float64(s.Intent) / 4.0,
	}
}

// MemorySignals derives Signals for a raw (query, memory) pair, the offline
// path used by training. Missing embeddings yield similarity 0, never an
// error.
//
// Parameters:
//   - queryEmbedding: embedding of the query text (may be nil)
//   - queryEntities: entity names extracted from the query text
//   - m: the memory to featurize
//   - lambda: recency decay rate per day
//   - now: evaluation time, passed explicitly for determinism
//   - intent: detected query intent
func MemorySignals(queryEmbedding []float64, queryEntities []string, m *memory.Memory, lambda float64, now time.Time, intent Intent) Signals {
	importance := m.Importance
	if importance == 0 {
		importance = 0.5
	}

	return Signals{
		Similarity:    CosineSimilarity(queryEmbedding, m.Embedding),
		Recency:       RecencyScore(m, lambda, now),
		Importance:    importance,
		UsageCount:    m.UsageCount,
		EntityOverlap: EntityOverlap(queryEntities, m.Entities),
		HasEmotion:    m.Emotion != "",
		Intent:        intent,
	}
}

// CosineSimilarity returns the cosine similarity of two vectors, or 0 when
// either is empty, mismatched in length, or zero-normed.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RecencyScore computes exp(-lambda * age_days) from the memory's most
// recent activity (last used, falling back to creation time).
func RecencyScore(m *memory.Memory, lambda float64, now time.Time) float64 {
	ageDays := m.Age(now).Hours() / 24.0
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-lambda * ageDays)
}

// EntityOverlap returns |query ∩ memory| / |query| over lower-cased entity
// names, or 0 when the query names no entities.
func EntityOverlap(queryEntities, memoryEntities []string) float64 {
	if len(queryEntities) == 0 {
		return 0
	}

	qset := make(map[string]struct{}, len(queryEntities))
	for _, e := range queryEntities {
		qset[strings.ToLower(e)] = struct{}{}
	}
	if len(qset) == 0 {
		return 0
	}

	matched := 0
	seen := make(map[string]struct{}, len(memoryEntities))
	for _, e := range memoryEntities {
		key := strings.ToLower(e)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := qset[key]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(qset))
}
