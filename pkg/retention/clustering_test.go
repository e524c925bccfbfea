package retention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcore-ai/memcore-go/pkg/memory"
)

func TestClusterMemoriesGroupsNearDuplicates(t *testing.T) {
	memories := []*memory.Memory{
		{ID: 1, Embedding: []float64{1, 0}},
		{ID: 2, Embedding: []float64{0.99, 0.1}},
		{ID: 3, Embedding: []float64{0, 1}},
	}

	clusters := ClusterMemories(memories, 0, 0)
	require.Len(t, clusters, 1)
	assert.Equal(t, []int64{1, 2}, clusters[0].IDs())
}

func TestClusterMemoriesOrdersLargestFirst(t *testing.T) {
	memories := []*memory.Memory{
		{ID: 10, Embedding: []float64{0, 1}},
		{ID: 11, Embedding: []float64{0.1, 0.99}},
		{ID: 1, Embedding: []float64{1, 0}},
		{ID: 2, Embedding: []float64{0.99, 0.1}},
		{ID: 3, Embedding: []float64{0.98, 0.2}},
	}

	clusters := ClusterMemories(memories, 0, 0)
	require.Len(t, clusters, 2)
	assert.Equal(t, []int64{1, 2, 3}, clusters[0].IDs())
	assert.Equal(t, []int64{10, 11}, clusters[1].IDs())
}

func TestClusterMemoriesIgnoresUnembedded(t *testing.T) {
	memories := []*memory.Memory{
		{ID: 1, Embedding: []float64{1, 0}},
		{ID: 2},
		nil,
		{ID: 3, Embedding: []float64{0.99, 0.1}},
	}

	clusters := ClusterMemories(memories, 0, 0)
	require.Len(t, clusters, 1)
	assert.Equal(t, []int64{1, 3}, clusters[0].IDs())
}

func TestClusterMemoriesDropsSingletons(t *testing.T) {
	memories := []*memory.Memory{
		{ID: 1, Embedding: []float64{1, 0}},
		{ID: 2, Embedding: []float64{0, 1}},
	}
	assert.Empty(t, ClusterMemories(memories, 0, 0))
	assert.Empty(t, ClusterMemories(nil, 0, 0))
}

func TestClusterMemoriesMinSize(t *testing.T) {
	memories := []*memory.Memory{
		{ID: 1, Embedding: []float64{1, 0}},
		{ID: 2, Embedding: []float64{0.99, 0.1}},
	}
	assert.Empty(t, ClusterMemories(memories, 0, 3))
}
