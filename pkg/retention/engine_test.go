package retention

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcore-ai/memcore-go/pkg/memory"
)

type fakeMemStore struct {
	memories map[int64]*memory.Memory
	listErr  error
}

func newFakeMemStore(memories ...*memory.Memory) *fakeMemStore {
	s := &fakeMemStore{memories: make(map[int64]*memory.Memory)}
	for _, m := range memories {
		s.memories[m.ID] = m
	}
	return s
}

func (s *fakeMemStore) list(ownerID string, kind memory.MemoryKind, limit int) []*memory.Memory {
	var out []*memory.Memory
	for _, m := range s.memories {
		if m.OwnerID != ownerID {
			continue
		}
		if kind != "" && m.Kind != kind {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *fakeMemStore) ListEpisodic(_ context.Context, ownerID string, limit int) ([]*memory.Memory, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list(ownerID, memory.KindEpisodic, limit), nil
}

func (s *fakeMemStore) ListAll(_ context.Context, ownerID string, limit int) ([]*memory.Memory, error) {
	return s.list(ownerID, "", limit), nil
}

func (s *fakeMemStore) Insert(_ context.Context, m *memory.Memory) error {
	s.memories[m.ID] = m
	return nil
}

func (s *fakeMemStore) Remove(_ context.Context, id int64) (bool, error) {
	_, ok := s.memories[id]
	delete(s.memories, id)
	return ok, nil
}

type fakeEmbed struct {
	err error
}

func (f *fakeEmbed) Embed(_ context.Context, _ string) ([]float64, error) {
	return []float64{0.5, 0.5}, f.err
}

func (f *fakeEmbed) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.5, 0.5}
	}
	return out, f.err
}

func (f *fakeEmbed) Dimensions() int { return 2 }

func (f *fakeEmbed) Close() error { return nil }

type fakeIndexer struct {
	indexed []int64
	removed []int64
}

func (f *fakeIndexer) IndexMemory(m *memory.Memory) { f.indexed = append(f.indexed, m.ID) }

func (f *fakeIndexer) RemoveMemory(id int64) { f.removed = append(f.removed, id) }

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func episodic(id int64, summary string, embedding []float64, createdAt time.Time) *memory.Memory {
	return &memory.Memory{
		ID:         id,
		OwnerID:    "u1",
		Kind:       memory.KindEpisodic,
		Summary:    summary,
		Embedding:  embedding,
		Importance: 0.5,
		CreatedAt:  createdAt,
	}
}

func TestSweepConsolidatesAndPrunes(t *testing.T) {
	now := time.Now()
	store := newFakeMemStore(
		episodic(1, "coffee run", []float64{1, 0}, now),
		episodic(2, "another coffee run", []float64{0.99, 0.1}, now),
		episodic(3, "coffee again", []float64{0.98, 0.2}, now),
		// Old, unimportant, never used: falls below the delete threshold.
		&memory.Memory{
			ID: 4, OwnerID: "u1", Kind: memory.KindEpisodic,
			Summary: "noise", Importance: 0.0, UtilityScore: floatPtr(0.0),
			CreatedAt: now.AddDate(-2, 0, 0),
		},
	)
	indexer := &fakeIndexer{}

	engine := NewEngine(store, &fakeEmbed{}, NewSummarizer(nil, nil), nil, indexer,
		testNode(t), EngineConfig{}, nil, nil)

	report, err := engine.Sweep(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Clusters)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Deleted)

	// The cluster sources survive; only the stale memory is gone.
	for _, id := range []int64{1, 2, 3} {
		assert.Contains(t, store.memories, id)
	}
	assert.NotContains(t, store.memories, int64(4))
	assert.Equal(t, []int64{4}, indexer.removed)

	require.Len(t, indexer.indexed, 1)
	semantic := store.memories[indexer.indexed[0]]
	require.NotNil(t, semantic)
	assert.Equal(t, memory.KindSemantic, semantic.Kind)
	assert.Equal(t, semanticImportance, semantic.Importance)
	assert.Equal(t, []int64{1, 2, 3}, semantic.Provenance)
	assert.NotEmpty(t, semantic.Embedding)
}

func TestSweepSkipsLowRetentionClusters(t *testing.T) {
	now := time.Now()
	// Aged, unimportant, never used: mean retention score falls in the
	// compact band, below the summarization threshold but above delete.
	a := episodic(1, "one", []float64{1, 0}, now.AddDate(0, 0, -8))
	b := episodic(2, "two", []float64{0.99, 0.1}, now.AddDate(0, 0, -8))
	a.Importance, b.Importance = 0.2, 0.2
	a.UtilityScore = floatPtr(0.0)
	b.UtilityScore = floatPtr(0.0)
	store := newFakeMemStore(a, b)

	engine := NewEngine(store, &fakeEmbed{}, NewSummarizer(nil, nil), nil, nil,
		testNode(t), EngineConfig{}, nil, nil)

	report, err := engine.Sweep(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Clusters)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 0, report.Deleted)
}

func TestSweepConsolidatesFreshLowUtilityCluster(t *testing.T) {
	now := time.Now()
	// The model scored these memories poorly, but they are fresh and of
	// normal importance: the retention gate still consolidates them.
	a := episodic(1, "one", []float64{1, 0}, now)
	b := episodic(2, "two", []float64{0.99, 0.1}, now)
	a.UtilityScore = floatPtr(0.05)
	b.UtilityScore = floatPtr(0.05)
	store := newFakeMemStore(a, b)

	engine := NewEngine(store, &fakeEmbed{}, NewSummarizer(nil, nil), nil, nil,
		testNode(t), EngineConfig{}, nil, nil)

	report, err := engine.Sweep(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Clusters)
	assert.Equal(t, 1, report.Created)
}

func TestSweepDecisionsAreIdempotent(t *testing.T) {
	now := time.Now()
	store := newFakeMemStore(
		episodic(1, "coffee run", []float64{1, 0}, now),
		episodic(2, "another coffee run", []float64{0.99, 0.1}, now),
		episodic(3, "coffee again", []float64{0.98, 0.2}, now),
		&memory.Memory{
			ID: 4, OwnerID: "u1", Kind: memory.KindEpisodic,
			Summary: "noise", Importance: 0.0, UtilityScore: floatPtr(0.0),
			CreatedAt: now.AddDate(-2, 0, 0),
		},
	)

	engine := NewEngine(store, &fakeEmbed{}, NewSummarizer(nil, nil), nil, nil,
		testNode(t), EngineConfig{}, nil, nil)

	first, err := engine.Sweep(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, first.Deleted)

	// A second sweep over the surviving store reaches the same cluster
	// decisions and finds nothing left to delete.
	second, err := engine.Sweep(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, first.Clusters, second.Clusters)
	assert.Equal(t, first.Created, second.Created)
	assert.Equal(t, 0, second.Deleted)
	for _, id := range []int64{1, 2, 3} {
		assert.Contains(t, store.memories, id)
	}
}

func TestSweepRespectsSummaryCap(t *testing.T) {
	now := time.Now()
	store := newFakeMemStore(
		episodic(1, "one", []float64{1, 0}, now),
		episodic(2, "two", []float64{0.99, 0.1}, now),
		episodic(3, "three", []float64{0, 1}, now),
		episodic(4, "four", []float64{0.1, 0.99}, now),
	)

	engine := NewEngine(store, &fakeEmbed{}, NewSummarizer(nil, nil), nil, nil,
		testNode(t), EngineConfig{MaxSummaries: 1}, nil, nil)

	report, err := engine.Sweep(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Clusters)
	assert.Equal(t, 1, report.Created)
}

func TestSweepSkipsClusterOnEmbedFailure(t *testing.T) {
	now := time.Now()
	store := newFakeMemStore(
		episodic(1, "one", []float64{1, 0}, now),
		episodic(2, "two", []float64{0.99, 0.1}, now),
	)

	engine := NewEngine(store, &fakeEmbed{err: errors.New("quota exceeded")},
		NewSummarizer(nil, nil), nil, nil, testNode(t), EngineConfig{}, nil, nil)

	report, err := engine.Sweep(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Len(t, store.memories, 2)
}

func TestSweepPropagatesListError(t *testing.T) {
	store := newFakeMemStore()
	store.listErr = errors.New("connection reset")

	engine := NewEngine(store, &fakeEmbed{}, NewSummarizer(nil, nil), nil, nil,
		testNode(t), EngineConfig{}, nil, nil)

	_, err := engine.Sweep(context.Background(), "u1")
	assert.Error(t, err)
}
