package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// The SQL backends store vectors and id lists as JSON text columns; these
// helpers keep the three implementations byte-compatible with each other.

// EncodeFloats marshals a float slice to JSON text. Nil encodes as "[]".
func EncodeFloats(v []float64) (string, error) {
	if v == nil {
		v = []float64{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode floats: %w", err)
	}
	return string(data), nil
}

// DecodeFloats unmarshals JSON text to a float slice. Empty text decodes
// to nil.
func DecodeFloats(s string) ([]float64, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []float64
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode floats: %w", err)
	}
	return out, nil
}

// EncodeStrings marshals a string slice to JSON text. Nil encodes as "[]".
func EncodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode strings: %w", err)
	}
	return string(data), nil
}

// DecodeStrings unmarshals JSON text to a string slice. Empty text decodes
// to nil.
func DecodeStrings(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode strings: %w", err)
	}
	return out, nil
}

// EncodeIDs marshals an id slice to JSON text. Nil encodes as "[]".
func EncodeIDs(v []int64) (string, error) {
	if v == nil {
		v = []int64{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode ids: %w", err)
	}
	return string(data), nil
}

// DecodeIDs unmarshals JSON text to an id slice. Empty text decodes to nil.
func DecodeIDs(s string) ([]int64, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []int64
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode ids: %w", err)
	}
	return out, nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Mismatched or zero-normed vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SortByScore sorts memories by score descending, ties on ascending id,
// and truncates to limit when limit is positive.
func SortByScore(memories []*Memory, limit int) []*Memory {
	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].Score != memories[j].Score {
			return memories[i].Score > memories[j].Score
		}
		return memories[i].ID < memories[j].ID
	})
	if limit > 0 && len(memories) > limit {
		return memories[:limit]
	}
	return memories
}
