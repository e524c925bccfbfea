package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcore-ai/memcore-go/pkg/memory"
)

func TestVectorLayout(t *testing.T) {
	s := Signals{
		Similarity:    0.8,
		Recency:       0.5,
		Importance:    0.7,
		UsageCount:    5,
		Pagerank:      0.12,
		EntityOverlap: 0.5,
		HasEmotion:    true,
		GraphDistance: 0.3,
		Intent:        IntentKnowledge,
	}

	v := Vector(s)
	require.Len(t, v, FeatureDim)

	assert.Equal(t, 0.8, v[0])           // similarity
	assert.Equal(t, 0.5, v[1])           // recency
	assert.Equal(t, 0.7, v[2])           // importance
	assert.Equal(t, 0.5, v[3])           // usage_norm: 5/10
	assert.Equal(t, 0.12, v[4])          // pagerank
	assert.Equal(t, 0.5, v[5])           // entity_overlap
	assert.Equal(t, 0.5, v[6])           // emotion_intensity
	assert.Equal(t, 0.8, v[7])           // topic_match mirrors similarity
	assert.Equal(t, 0.5, v[8])           // novelty placeholder
	assert.Equal(t, 0.3, v[9])           // graph_distance
	assert.InDelta(t, 0.75, v[10], 1e-9) // intent 3/4
}

func TestVectorDeterministic(t *testing.T) {
	s := Signals{Similarity: 0.4, UsageCount: 3, Intent: IntentPlanning}
	assert.Equal(t, Vector(s), Vector(s))
}

func TestVectorUsageSaturates(t *testing.T) {
	v := Vector(Signals{UsageCount: 50})
	assert.Equal(t, 1.0, v[3])

	v = Vector(Signals{UsageCount: 0})
	assert.Equal(t, 0.0, v[3])
}

func TestVectorClampsOutOfRangeInputs(t *testing.T) {
	v := Vector(Signals{Similarity: 1.7, Recency: -0.2, Importance: 2.0})
	assert.Equal(t, 1.0, v[0])
	assert.Equal(t, 0.0, v[1])
	assert.Equal(t, 1.0, v[2])
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float64{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 2}, []float64{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}

func TestRecencyScore(t *testing.T) {
	now := time.Now()
	fresh := &memory.Memory{CreatedAt: now}
	assert.InDelta(t, 1.0, RecencyScore(fresh, 0.1, now), 1e-6)

	old := &memory.Memory{CreatedAt: now.AddDate(0, 0, -10)}
	// exp(-0.1 * 10)
	assert.InDelta(t, 0.3679, RecencyScore(old, 0.1, now), 1e-3)

	// Usage refreshes recency through last_used.
	used := now.AddDate(0, 0, -1)
	revived := &memory.Memory{CreatedAt: now.AddDate(0, 0, -30), LastUsed: &used}
	assert.Greater(t, RecencyScore(revived, 0.1, now), RecencyScore(old, 0.1, now))
}

func TestEntityOverlap(t *testing.T) {
	assert.Equal(t, 0.0, EntityOverlap(nil, []string{"Atlas"}))
	assert.Equal(t, 1.0, EntityOverlap([]string{"Atlas"}, []string{"atlas", "Beta"}))
	assert.Equal(t, 0.5, EntityOverlap([]string{"Atlas", "Sarah"}, []string{"Atlas"}))
	assert.Equal(t, 0.0, EntityOverlap([]string{"Atlas"}, nil))
}

func TestMemorySignalsDefaultsImportance(t *testing.T) {
	now := time.Now()
	m := &memory.Memory{CreatedAt: now, Embedding: []float64{1, 0}}

	s := MemorySignals([]float64{1, 0}, nil, m, 0.1, now, IntentRecall)
	assert.Equal(t, 0.5, s.Importance)
	assert.InDelta(t, 1.0, s.Similarity, 1e-9)

	m.Importance = 0.9
	s = MemorySignals([]float64{1, 0}, nil, m, 0.1, now, IntentRecall)
	assert.Equal(t, 0.9, s.Importance)
}

func TestMemorySignalsMissingEmbedding(t *testing.T) {
	now := time.Now()
	m := &memory.Memory{CreatedAt: now}
	s := MemorySignals(nil, nil, m, 0.1, now, IntentRecall)
	assert.Equal(t, 0.0, s.Similarity)
}
