package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcore-ai/memcore-go/pkg/storage"
)

// memStore is an in-memory storage.Store for client tests.
type memStore struct {
	mu         sync.Mutex
	memories   map[int64]*storage.Memory
	feedback   []*storage.FeedbackRecord
	centrality map[int64]storage.Centrality
}

func newMemStore() *memStore {
	return &memStore{
		memories:   make(map[int64]*storage.Memory),
		centrality: make(map[int64]storage.Centrality),
	}
}

func (s *memStore) Upsert(_ context.Context, m *storage.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *m
	s.memories[m.ID] = &clone
	return nil
}

func (s *memStore) Get(_ context.Context, id int64) (*storage.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (s *memStore) List(_ context.Context, opts *storage.ListOptions) ([]*storage.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*storage.Memory
	for _, m := range s.memories {
		if opts.OwnerID != "" && m.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Kind != "" && m.Kind != opts.Kind {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.memories[id]
	delete(s.memories, id)
	delete(s.centrality, id)
	return ok, nil
}

func (s *memStore) RecordUsage(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return nil
	}
	m.UsageCount++
	now := time.Now()
	m.LastUsed = &now
	return nil
}

func (s *memStore) UpdateFields(_ context.Context, id int64, summary *string, importance *float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return false, nil
	}
	if summary != nil {
		m.Summary = *summary
	}
	if importance != nil {
		m.Importance = *importance
	}
	return true, nil
}

func (s *memStore) Search(_ context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*storage.Memory
	for _, m := range s.memories {
		if opts.OwnerID != "" && m.OwnerID != opts.OwnerID {
			continue
		}
		if len(m.Embedding) == 0 {
			continue
		}
		clone := *m
		clone.Score = storage.CosineSimilarity(embedding, m.Embedding)
		out = append(out, &clone)
	}
	return storage.SortByScore(out, opts.Limit), nil
}

func (s *memStore) Owners(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, m := range s.memories {
		seen[m.OwnerID] = struct{}{}
	}
	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	if limit > 0 && len(owners) > limit {
		owners = owners[:limit]
	}
	return owners, nil
}

func (s *memStore) AppendFeedback(_ context.Context, record *storage.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, record)
	return nil
}

func (s *memStore) ReadFeedback(_ context.Context, limit int) ([]*storage.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*storage.FeedbackRecord, len(s.feedback))
	copy(out, s.feedback)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ReadCentrality(_ context.Context, ids []int64) (map[int64]storage.Centrality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]storage.Centrality)
	for _, id := range ids {
		if c, ok := s.centrality[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *memStore) WriteCentrality(_ context.Context, metrics map[int64]storage.Centrality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range metrics {
		s.centrality[id] = c
	}
	return nil
}

func (s *memStore) Close() error { return nil }

// stubEmbedder maps keyword presence to fixed vector components, so
// similarity is deterministic without a real embedding provider.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	t := strings.ToLower(text)
	v := []float64{0.1, 0.1}
	if strings.Contains(t, "beta") {
		v[0] += 1
	}
	if strings.Contains(t, "coffee") {
		v[1] += 1
	}
	return v, nil
}

func (e stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i], _ = e.Embed(ctx, text)
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int { return 2 }

func (stubEmbedder) Close() error { return nil }

func newTestClient(t *testing.T) *Client {
	t.Helper()
	config := &Config{
		Embedder: EmbedderConfig{Provider: "openai"},
		Store:    StoreConfig{Provider: "sqlite", Path: "./unused.db"},
		Ranking: RankingConfig{
			HiddenDim:     8,
			Margin:        0.2,
			LearningRate:  0.05,
			Epochs:        50,
			BatchSize:     8,
			FeedbackLimit: 100,
		},
	}
	client, err := New(config, WithStore(newMemStore()), WithEmbedder(stubEmbedder{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&Config{}, WithStore(newMemStore()), WithEmbedder(stubEmbedder{}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAddAndGet(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	mem, err := client.Add(ctx, "u1", "We launched the beta for Acme",
		WithImportance(0.8), WithEmotion("excited"))
	require.NoError(t, err)
	assert.NotZero(t, mem.ID)
	assert.Equal(t, KindEpisodic, mem.Kind)
	assert.Equal(t, 0.8, mem.Importance)
	assert.Contains(t, mem.Entities, "Acme")
	assert.NotEmpty(t, mem.Embedding)

	got, err := client.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, mem.Summary, got.Summary)
	assert.Equal(t, "excited", got.Emotion)

	_, err = client.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddValidatesInput(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Add(ctx, " ", "something")
	assert.ErrorIs(t, err, ErrInvalidOwner)

	_, err = client.Add(ctx, "u1", "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQueryRanksRelevantMemoryFirst(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	beta, err := client.Add(ctx, "u1", "we launched the beta last week")
	require.NoError(t, err)
	_, err = client.Add(ctx, "u1", "ordered a coffee this morning")
	require.NoError(t, err)

	result, err := client.Query(ctx, "u1", "when did the beta launch?", WithTopK(2))
	require.NoError(t, err)
	require.NotEmpty(t, result.Memories)
	assert.Equal(t, beta.ID, result.Memories[0].Memory.ID)
	assert.LessOrEqual(t, len(result.Memories), 2)
	assert.False(t, result.ModelUsed)
}

func TestQueryValidatesInput(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Query(ctx, "", "anything")
	assert.ErrorIs(t, err, ErrInvalidOwner)

	_, err = client.Query(ctx, "u1", "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestQueryIsolatesOwners(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Add(ctx, "u1", "we launched the beta last week")
	require.NoError(t, err)

	result, err := client.Query(ctx, "u2", "when did the beta launch?")
	require.NoError(t, err)
	assert.Empty(t, result.Memories)
}

func TestCorrectImportanceOnly(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	mem, err := client.Add(ctx, "u1", "we launched the beta")
	require.NoError(t, err)

	updated, err := client.Correct(ctx, mem.ID, WithCorrectedImportance(0.9))
	require.NoError(t, err)
	assert.Equal(t, 0.9, updated.Importance)
	assert.Equal(t, mem.Summary, updated.Summary)
}

func TestCorrectSummaryReindexes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	mem, err := client.Add(ctx, "u1", "meeting with Alice")
	require.NoError(t, err)

	updated, err := client.Correct(ctx, mem.ID, WithCorrectedSummary("meeting with Bob"))
	require.NoError(t, err)
	assert.Equal(t, "meeting with Bob", updated.Summary)
	assert.Contains(t, updated.Entities, "Bob")
	assert.NotContains(t, updated.Entities, "Alice")

	got, err := client.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, "meeting with Bob", got.Summary)
}

func TestCorrectValidatesInput(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Correct(ctx, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = client.Correct(ctx, 404, WithCorrectedImportance(0.5))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	mem, err := client.Add(ctx, "u1", "temporary note")
	require.NoError(t, err)

	deleted, err := client.Delete(ctx, mem.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = client.Delete(ctx, mem.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = client.Get(ctx, mem.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordFeedbackCountsUsage(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	mem, err := client.Add(ctx, "u1", "we launched the beta")
	require.NoError(t, err)

	err = client.RecordFeedback(ctx, "u1", "when did the beta launch?",
		[]int64{mem.ID, 999}, []int64{mem.ID}, 1.0)
	require.NoError(t, err)

	got, err := client.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
	assert.NotNil(t, got.LastUsed)
}

func TestConsolidateCreatesSemanticMemory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Add(ctx, "u1", "ordered a coffee before standup")
	require.NoError(t, err)
	_, err = client.Add(ctx, "u1", "ordered a coffee again after lunch")
	require.NoError(t, err)

	report, err := client.Consolidate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Clusters)
	assert.Equal(t, 1, report.Created)

	semantic, err := client.List(ctx, "u1", KindSemantic, 10)
	require.NoError(t, err)
	require.Len(t, semantic, 1)
	assert.Len(t, semantic[0].Provenance, 2)

	// Consolidation never deletes its sources.
	episodic, err := client.List(ctx, "u1", KindEpisodic, 10)
	require.NoError(t, err)
	assert.Len(t, episodic, 2)
}

func TestRetrainEnablesModelScoring(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Add(ctx, "u1", "we launched the beta last week")
	require.NoError(t, err)
	_, err = client.Add(ctx, "u1", "ordered a coffee this morning")
	require.NoError(t, err)

	// No feedback yet: retraining falls back to synthetic samples.
	require.NoError(t, client.Retrain(ctx))

	result, err := client.Query(ctx, "u1", "when did the beta launch?")
	require.NoError(t, err)
	assert.True(t, result.ModelUsed)

	// Retraining also refreshes persisted utility scores.
	memories, err := client.List(ctx, "u1", "", 10)
	require.NoError(t, err)
	for _, m := range memories {
		require.NotNil(t, m.UtilityScore)
		assert.GreaterOrEqual(t, *m.UtilityScore, 0.0)
		assert.LessOrEqual(t, *m.UtilityScore, 1.0)
	}
}

func TestRefreshCentrality(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	a, err := client.Add(ctx, "u1", "lunch with Alice at Acme")
	require.NoError(t, err)
	_, err = client.Add(ctx, "u1", "Alice joined the beta review")
	require.NoError(t, err)

	require.NoError(t, client.RefreshCentrality(ctx))

	cents, err := client.store.ReadCentrality(ctx, []int64{a.ID})
	require.NoError(t, err)
	require.Contains(t, cents, a.ID)
	assert.Greater(t, cents[a.ID].Degree, 0)
}

func TestOwners(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Add(ctx, "u2", "note two")
	require.NoError(t, err)
	_, err = client.Add(ctx, "u1", "note one")
	require.NoError(t, err)

	owners, err := client.Owners(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, owners)
}

func TestClosedClientRejectsOperations(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Close())
	// Close is idempotent.
	require.NoError(t, client.Close())

	_, err := client.Add(context.Background(), "u1", "too late")
	assert.ErrorIs(t, err, ErrClientClosed)

	_, err = client.Query(context.Background(), "u1", "anything")
	assert.ErrorIs(t, err, ErrClientClosed)
}
