package ranking

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelScoreRange(t *testing.T) {
	model := NewModel(FeatureDim, 8, rand.New(rand.NewSource(7)))

	inputs := [][]float64{
		make([]float64, FeatureDim),
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{0.5, 0.2, 0.9, 0, 0.1, 1, 0.5, 0.5, 0.5, 0.3, 0.25},
	}
	for _, in := range inputs {
		score := model.Score(in)
		assert.Greater(t, score, 0.0)
		assert.Less(t, score, 1.0)
	}
}

func TestModelScoreBatch(t *testing.T) {
	model := NewModel(FeatureDim, 8, rand.New(rand.NewSource(7)))

	scores := model.ScoreBatch(nil)
	assert.Empty(t, scores)

	batch := [][]float64{
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}
	scores = model.ScoreBatch(batch)
	require.Len(t, scores, 2)
	assert.Equal(t, model.Score(batch[0]), scores[0])
	assert.Equal(t, model.Score(batch[1]), scores[1])
}

func TestTrainEmptySetReturnsUntrained(t *testing.T) {
	model := Train(nil, TrainConfig{})
	require.NotNil(t, model)
	assert.False(t, model.Trained)

	// Samples without usable pairs count as empty too.
	model = Train([]Sample{{Positive: []float64{1}}}, TrainConfig{})
	assert.False(t, model.Trained)
}

func TestTrainSeparatesPositivesFromNegatives(t *testing.T) {
	pos := Vector(Signals{Similarity: 0.9, Recency: 0.9, Importance: 0.8, UsageCount: 8})
	neg := Vector(Signals{Similarity: 0.1, Recency: 0.1, Importance: 0.2})

	samples := make([]Sample, 40)
	for i := range samples {
		samples[i] = Sample{Positive: pos, Negatives: [][]float64{neg}}
	}

	model := Train(samples, TrainConfig{
		HiddenDim:    16,
		LearningRate: 0.05,
		Epochs:       200,
		BatchSize:    8,
		Seed:         3,
	})
	require.True(t, model.Trained)
	assert.Greater(t, model.Score(pos), model.Score(neg))
}

func TestTrainDeterministicForSeed(t *testing.T) {
	pos := Vector(Signals{Similarity: 0.8, Recency: 0.7})
	neg := Vector(Signals{Similarity: 0.2, Recency: 0.1})
	samples := []Sample{{Positive: pos, Negatives: [][]float64{neg}}}

	cfg := TrainConfig{HiddenDim: 8, Epochs: 5, Seed: 11}
	a := Train(samples, cfg)
	b := Train(samples, cfg)
	assert.Equal(t, a.Score(pos), b.Score(pos))
}

func TestModelSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	model := NewModel(FeatureDim, 8, rand.New(rand.NewSource(5)))
	model.Trained = true
	require.NoError(t, model.Save(path))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.True(t, loaded.Trained)

	in := []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	assert.Equal(t, model.Score(in), loaded.Score(in))
}

func TestLoadModelRejectsWrongDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	model := NewModel(5, 4, rand.New(rand.NewSource(5)))
	require.NoError(t, model.Save(path))

	_, err := LoadModel(path)
	assert.Error(t, err)
}
