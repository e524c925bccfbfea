package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcore-ai/memcore-go/pkg/extraction"
	"github.com/memcore-ai/memcore-go/pkg/memory"
)

type fakeVector struct {
	hits []VectorMatch
	err  error
}

func (f *fakeVector) SearchVectors(_ context.Context, _ string, _ []float64, _ int) ([]VectorMatch, error) {
	return f.hits, f.err
}

type fakeLoader struct {
	memories map[int64]*memory.Memory
}

func (f *fakeLoader) LoadMemory(_ context.Context, id int64) (*memory.Memory, error) {
	return f.memories[id], nil
}

type fixedExpander struct {
	ids []int64
}

func (f *fixedExpander) Expand(_ context.Context, _ []string, _ int) ([]int64, error) {
	return f.ids, nil
}

type blockingExpander struct{}

func (b *blockingExpander) Expand(ctx context.Context, _ []string, _ int) ([]int64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func fusionMemories(now time.Time) map[int64]*memory.Memory {
	return map[int64]*memory.Memory{
		1: {ID: 1, OwnerID: "u1", Summary: "shipping update", CreatedAt: now},
		2: {ID: 2, OwnerID: "u1", Summary: "beta notes", CreatedAt: now},
		3: {ID: 3, OwnerID: "u1", Summary: "atlas planning", CreatedAt: now},
		4: {ID: 4, OwnerID: "u1", Summary: "atlas retro", CreatedAt: now},
	}
}

func TestFuseMergesChannelsInOrder(t *testing.T) {
	now := time.Now()
	memories := fusionMemories(now)

	lexical := NewBM25Index()
	lexical.Add(2, "u1", "beta notes")
	lexical.Add(3, "u1", "atlas planning")

	fuser := NewFuser(
		&fakeVector{hits: []VectorMatch{
			{Memory: memories[1], Score: 0.9},
			{Memory: memories[2], Score: 0.8},
		}},
		lexical,
		&fixedExpander{ids: []int64{3, 4}},
		&fakeLoader{memories: memories},
		extraction.NewHeuristic(),
		FusionConfig{},
		nil,
	)

	result, err := fuser.Fuse(context.Background(), "u1", "Atlas beta", nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 4)

	// Vector first, then lexical-only, then graph-only additions.
	assert.Equal(t, int64(1), result.Candidates[0].Memory.ID)
	assert.Equal(t, int64(2), result.Candidates[1].Memory.ID)
	assert.Equal(t, int64(3), result.Candidates[2].Memory.ID)
	assert.Equal(t, int64(4), result.Candidates[3].Memory.ID)

	// A candidate surfaced by several channels keeps every flag.
	assert.True(t, result.Candidates[1].FromVector)
	assert.True(t, result.Candidates[1].FromLexical)
	assert.True(t, result.Candidates[2].FromLexical)
	assert.True(t, result.Candidates[2].FromGraph)
	assert.True(t, result.Candidates[3].FromGraph)
	assert.False(t, result.Candidates[3].FromVector)

	assert.Contains(t, result.QueryEntities, "Atlas")
}

func TestFuseAppliesMergeCapBeforeEnrichment(t *testing.T) {
	now := time.Now()
	memories := fusionMemories(now)

	fuser := NewFuser(
		&fakeVector{hits: []VectorMatch{
			{Memory: memories[1], Score: 0.9},
			{Memory: memories[2], Score: 0.8},
			{Memory: memories[3], Score: 0.7},
		}},
		NewBM25Index(),
		nil,
		&fakeLoader{memories: memories},
		nil,
		FusionConfig{MergeCap: 2},
		nil,
	)

	result, err := fuser.Fuse(context.Background(), "u1", "anything", nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	for _, c := range result.Candidates {
		assert.Greater(t, c.Recency, 0.9)
	}
}

func TestFuseGraphTimeoutDegradesToEmpty(t *testing.T) {
	now := time.Now()
	memories := fusionMemories(now)

	fuser := NewFuser(
		&fakeVector{hits: []VectorMatch{{Memory: memories[1], Score: 0.9}}},
		NewBM25Index(),
		&blockingExpander{},
		&fakeLoader{memories: memories},
		extraction.NewHeuristic(),
		FusionConfig{GraphTimeout: 10 * time.Millisecond},
		nil,
	)

	result, err := fuser.Fuse(context.Background(), "u1", "Atlas status", nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, int64(1), result.Candidates[0].Memory.ID)
}

func TestFuseSkipsForeignOwnerLoads(t *testing.T) {
	now := time.Now()
	memories := fusionMemories(now)
	memories[3].OwnerID = "someone_else"

	lexical := NewBM25Index()
	// The index row predates an ownership change; the loader is the
	// source of truth.
	lexical.Add(3, "u1", "atlas planning")

	fuser := NewFuser(
		&fakeVector{},
		lexical,
		nil,
		&fakeLoader{memories: memories},
		nil,
		FusionConfig{},
		nil,
	)

	result, err := fuser.Fuse(context.Background(), "u1", "atlas", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestFusePropagatesVectorError(t *testing.T) {
	fuser := NewFuser(
		&fakeVector{err: errors.New("store down")},
		NewBM25Index(),
		nil,
		&fakeLoader{},
		nil,
		FusionConfig{},
		nil,
	)
	_, err := fuser.Fuse(context.Background(), "u1", "anything", nil)
	assert.Error(t, err)
}
