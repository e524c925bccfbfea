package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFloats(t *testing.T) {
	encoded, err := EncodeFloats([]float64{0.5, -1.25})
	require.NoError(t, err)
	assert.Equal(t, "[0.5,-1.25]", encoded)

	decoded, err := DecodeFloats(encoded)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1.25}, decoded)

	// Nil and empty collapse to each other.
	encoded, err = EncodeFloats(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", encoded)

	decoded, err = DecodeFloats("")
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = DecodeFloats("not json")
	assert.Error(t, err)
}

func TestEncodeDecodeStrings(t *testing.T) {
	encoded, err := EncodeStrings([]string{"Alice", "Acme"})
	require.NoError(t, err)

	decoded, err := DecodeStrings(encoded)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Acme"}, decoded)

	decoded, err = DecodeStrings("[]")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestEncodeDecodeIDs(t *testing.T) {
	encoded, err := EncodeIDs([]int64{3, 1, 2})
	require.NoError(t, err)

	decoded, err := DecodeIDs(encoded)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, decoded)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 0}))
}

func TestSortByScore(t *testing.T) {
	memories := []*Memory{
		{ID: 3, Score: 0.5},
		{ID: 1, Score: 0.9},
		{ID: 4, Score: 0.5},
		{ID: 2, Score: 0.7},
	}

	sorted := SortByScore(memories, 3)
	require.Len(t, sorted, 3)
	assert.Equal(t, int64(1), sorted[0].ID)
	assert.Equal(t, int64(2), sorted[1].ID)
	// Ties break on ascending id.
	assert.Equal(t, int64(3), sorted[2].ID)

	assert.Len(t, SortByScore(memories, 0), 4)
}
