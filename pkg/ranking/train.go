package ranking

import (
	"math/rand"
)

// Training hyperparameters. Pairwise margin ranking with plain minibatch
// SGD is enough at this model size; anything fancier is wasted on 11 inputs.
const (
	// DefaultMargin is the hinge margin between positive and negative scores.
	DefaultMargin = 0.2

	// DefaultLearningRate is the SGD step size.
	DefaultLearningRate = 1e-3

	// DefaultEpochs is the number of passes over the pair set.
	DefaultEpochs = 10

	// DefaultBatchSize is the minibatch size.
	DefaultBatchSize = 32
)

// Sample is one training example: the feature vector of a memory the agent
// actually used for a query, paired with feature vectors of memories that
// were retrieved for the same query but ignored.
type Sample struct {
	Positive  []float64
	Negatives [][]float64
}

// TrainConfig holds training hyperparameters. Zero values select the
// package defaults.
type TrainConfig struct {
	HiddenDim    int
	Margin       float64
	LearningRate float64
	Epochs       int
	BatchSize    int

	// Seed fixes weight initialization and shuffle order. Zero selects
	// seed 1 so repeated Train calls on the same data agree.
	Seed int64
}

func (c TrainConfig) withDefaults() TrainConfig {
	if c.HiddenDim <= 0 {
		c.HiddenDim = DefaultHiddenDim
	}
	if c.Margin <= 0 {
		c.Margin = DefaultMargin
	}
	if c.LearningRate <= 0 {
		c.LearningRate = DefaultLearningRate
	}
	if c.Epochs <= 0 {
		c.Epochs = DefaultEpochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	return c
}

type pair struct {
	pos []float64
	neg []float64
}

// Train fits a model with a pairwise margin ranking loss: for each
// (positive, negative) pair it minimizes max(0, margin - s(pos) + s(neg)).
//
// An empty or degenerate sample set is not an error: Train returns a
// randomly initialized model with Trained left false, and callers fall back
// to heuristic ranking.
func Train(samples []Sample, cfg TrainConfig) *Model {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))
	model := NewModel(FeatureDim, cfg.HiddenDim, rng)

	var pairs []pair
	for _, s := range samples {
		if len(s.Positive) == 0 {
			continue
		}
		for _, neg := range s.Negatives {
			if len(neg) == 0 {
				continue
			}
			pairs = append(pairs, pair{pos: s.Positive, neg: neg})
		}
	}
	if len(pairs) == 0 {
		return model
	}

	grad := newGradients(model)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(len(pairs), func(i, j int) {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		})

		for start := 0; start < len(pairs); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(pairs) {
				end = len(pairs)
			}
			batch := pairs[start:end]

			grad.reset()
			active := 0
			for _, p := range batch {
				z1p, hp, sp := model.forward(p.pos)
				z1n, hn, sn := model.forward(p.neg)
				if cfg.Margin-sp+sn <= 0 {
					continue
				}
				active++
				// dLoss/ds(pos) = -1, dLoss/ds(neg) = +1.
				grad.accumulate(model, p.pos, z1p, hp, sp, -1)
				grad.accumulate(model, p.neg, z1n, hn, sn, +1)
			}
			if active == 0 {
				continue
			}
			grad.apply(model, cfg.LearningRate/float64(active))
		}
	}

	model.Trained = true
	return model
}

// gradients accumulates parameter gradients over a minibatch.
type gradients struct {
	w1 [][]float64
	b1 []float64
	w2 []float64
	b2 float64
}

func newGradients(m *Model) *gradients {
	g := &gradients{
		w1: make([][]float64, m.Hidden),
		b1: make([]float64, m.Hidden),
		w2: make([]float64, m.Hidden),
	}
	for j := range g.w1 {
		g.w1[j] = make([]float64, m.Dim)
	}
	return g
}

func (g *gradients) reset() {
	for j := range g.w1 {
		for d := range g.w1[j] {
			g.w1[j][d] = 0
		}
		g.b1[j] = 0
		g.w2[j] = 0
	}
	g.b2 = 0
}

// accumulate backpropagates dLoss/dScore = upstream through the network for
// a single input and adds the parameter gradients in place.
func (g *gradients) accumulate(m *Model, x, z1, h []float64, score, upstream float64) {
	// d(sigmoid)/dz2 = s * (1 - s)
	dz2 := upstream * score * (1 - score)

	g.b2 += dz2
	for j := 0; j < m.Hidden; j++ {
		g.w2[j] += dz2 * h[j]
		if z1[j] <= 0 {
			continue
		}
		dz1 := dz2 * m.W2[j]
		g.b1[j] += dz1
		row := g.w1[j]
		n := len(x)
		if n > m.Dim {
			n = m.Dim
		}
		for d := 0; d < n; d++ {
			row[d] += dz1 * x[d]
		}
	}
}

func (g *gradients) apply(m *Model, step float64) {
	for j := 0; j < m.Hidden; j++ {
		for d := 0; d < m.Dim; d++ {
			m.W1[j][d] -= step * g.w1[j][d]
		}
		m.B1[j] -= step * g.b1[j]
		m.W2[j] -= step * g.w2[j]
	}
	m.B2 -= step * g.b2
}
