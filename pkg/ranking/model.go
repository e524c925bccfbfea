package ranking

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// DefaultHiddenDim is the hidden layer width used when no override is given.
const DefaultHiddenDim = 64

// Model is a two-layer feed-forward network scoring feature vectors into
// (0,1) utility estimates: ReLU hidden layer, sigmoid output.
//
// A Model is immutable after training and safe for concurrent Score calls.
// Callers that hot-swap a retrained model should replace the whole handle
// atomically rather than mutating weights in place.
type Model struct {
	// Dim is the expected input length (FeatureDim).
	Dim int `json:"dim"`

	// Hidden is the hidden layer width.
	Hidden int `json:"hidden"`

	// W1 holds the input-to-hidden weights, one row per hidden unit.
	W1 [][]float64 `json:"w1"`

	// B1 holds the hidden biases.
	B1 []float64 `json:"b1"`

	// W2 holds the hidden-to-output weights.
	W2 []float64 `json:"w2"`

	// B2 is the output bias.
	B2 float64 `json:"b2"`

	// Trained reports whether the model has seen at least one training pair.
	// An untrained model scores inputs but callers should prefer the
	// heuristic ranking fallback over its random-initialization output.
	Trained bool `json:"trained"`

	// FeatureVersion records the feature layout the weights were trained on.
	FeatureVersion int `json:"feature_version"`
}

// NewModel creates a randomly initialized, untrained model. Weights use
// scaled uniform initialization so the sigmoid starts near 0.5.
func NewModel(dim, hidden int, rng *rand.Rand) *Model {
	if dim <= 0 {
		dim = FeatureDim
	}
	if hidden <= 0 {
		hidden = DefaultHiddenDim
	}

	scale1 := math.Sqrt(2.0 / float64(dim))
	scale2 := math.Sqrt(2.0 / float64(hidden))

	m := &Model{
		Dim:            dim,
		Hidden:         hidden,
		W1:             make([][]float64, hidden),
		B1:             make([]float64, hidden),
		W2:             make([]float64, hidden),
		FeatureVersion: FeatureVersion,
	}
	for h := 0; h < hidden; h++ {
		row := make([]float64, dim)
		for d := 0; d < dim; d++ {
			row[d] = (rng.Float64()*2 - 1) * scale1
		}
		m.W1[h] = row
		m.W2[h] = (rng.Float64()*2 - 1) * scale2
	}
	return m
}

// Score runs a forward pass over one feature vector.
func (m *Model) Score(features []float64) float64 {
	_, _, out := m.forward(features)
	return out
}

// ScoreBatch scores every feature vector in order. An empty batch returns
// an empty slice, never nil panics or errors.
func (m *Model) ScoreBatch(features [][]float64) []float64 {
	scores := make([]float64, len(features))
	for i, f := range features {
		scores[i] = m.Score(f)
	}
	return scores
}

// forward returns the pre-activations, hidden activations, and output.
// Inputs shorter than Dim are zero-padded; longer inputs are truncated.
func (m *Model) forward(features []float64) (z1, h []float64, out float64) {
	z1 = make([]float64, m.Hidden)
	h = make([]float64, m.Hidden)
	for j := 0; j < m.Hidden; j++ {
		sum := m.B1[j]
		row := m.W1[j]
		n := len(features)
		if n > m.Dim {
			n = m.Dim
		}
		for d := 0; d < n; d++ {
			sum += row[d] * features[d]
		}
		z1[j] = sum
		if sum > 0 {
			h[j] = sum
		}
	}

	z2 := m.B2
	for j := 0; j < m.Hidden; j++ {
		z2 += m.W2[j] * h[j]
	}
	return z1, h, sigmoid(z2)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Save writes the model weights as JSON, atomically via a temp file in the
// same directory.
func (m *Model) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

// LoadModel reads model weights saved by Save. It rejects weights trained
// on a different feature layout or dimension.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}
	if m.Dim != FeatureDim {
		return nil, fmt.Errorf("model dimension %d does not match feature dimension %d", m.Dim, FeatureDim)
	}
	if m.FeatureVersion != FeatureVersion {
		return nil, fmt.Errorf("model feature version %d does not match current version %d", m.FeatureVersion, FeatureVersion)
	}
	if len(m.W1) != m.Hidden || len(m.B1) != m.Hidden || len(m.W2) != m.Hidden {
		return nil, fmt.Errorf("model weight shapes are inconsistent with hidden dimension %d", m.Hidden)
	}
	return &m, nil
}
