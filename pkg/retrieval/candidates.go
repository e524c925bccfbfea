package retrieval

import (
	"math"
	"regexp"

	"github.com/memcore-ai/memcore-go/pkg/memory"
)

// graphFallbackScore is assigned to graph-sourced candidates that carry no
// cached centrality, keeping them competitive until the next centrality
// refresh.
const graphFallbackScore = 0.3

// Candidate is one fused retrieval candidate with the per-channel evidence
// that ranking consumes.
type Candidate struct {
	Memory *memory.Memory

	// Similarity is the vector-channel score, 0 for candidates that only
	// arrived through the lexical or graph channel.
	Similarity float64

	// LexicalScore is the raw BM25 score, 0 outside the lexical channel.
	LexicalScore float64

	// Recency is exp(-lambda * age_days), filled after the merge cap.
	Recency float64

	// GraphScore blends normalized pagerank and degree over the candidate
	// set; see AttachGraphScores.
	GraphScore float64

	// Pagerank is the candidate's cached raw pagerank.
	Pagerank float64

	// Degree is the candidate's cached co-entity degree.
	Degree int

	// Channel provenance. A candidate surfaced by several channels keeps
	// every flag.
	FromVector  bool
	FromLexical bool
	FromGraph   bool
}

// AttachGraphScores fills GraphScore for every candidate from cached
// centrality: 0.6 * normalized pagerank + 0.4 * normalized degree, min-max
// normalized over this candidate set. When every candidate shares one value
// the normalized score is 0.5. Candidates absent from the cache score 0,
// except graph-sourced ones which get a flat fallback.
func AttachGraphScores(candidates []*Candidate, centrality map[int64]memory.Centrality) {
	if len(candidates) == 0 {
		return
	}

	loPR, hiPR := math.Inf(1), math.Inf(-1)
	loDeg, hiDeg := math.Inf(1), math.Inf(-1)
	for _, c := range candidates {
		cent, ok := centrality[c.Memory.ID]
		if !ok {
			continue
		}
		c.Pagerank = cent.Pagerank
		c.Degree = cent.Degree
		if cent.Pagerank < loPR {
			loPR = cent.Pagerank
		}
		if cent.Pagerank > hiPR {
			hiPR = cent.Pagerank
		}
		d := float64(cent.Degree)
		if d < loDeg {
			loDeg = d
		}
		if d > hiDeg {
			hiDeg = d
		}
	}

	for _, c := range candidates {
		if _, ok := centrality[c.Memory.ID]; !ok {
			if c.FromGraph {
				c.GraphScore = graphFallbackScore
			}
			continue
		}
		pr := normalize(c.Pagerank, loPR, hiPR)
		deg := normalize(float64(c.Degree), loDeg, hiDeg)
		c.GraphScore = 0.6*pr + 0.4*deg
	}
}

func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

var temporalPattern = regexp.MustCompile(`(?i)\b(yesterday|today|tonight|recently|last (night|week|month|year)|this (week|month|year|morning)|ago|latest|just now)\b`)

// TemporalScore returns the candidate's recency when the query carries a
// temporal expression, 0 otherwise. Fallback ranking uses it to favor
// fresh memories for time-anchored questions.
func TemporalScore(query string, c *Candidate) float64 {
	if !temporalPattern.MatchString(query) {
		return 0
	}
	return c.Recency
}

// FallbackScore is the heuristic blend used when no trained model is
// available:
//
//	0.4*similarity + 0.2*recency + 0.2*importance + 0.2*temporal + 0.1*graph flag
func FallbackScore(query string, c *Candidate) float64 {
	importance := c.Memory.Importance
	if importance == 0 {
		importance = 0.5
	}
	graphBonus := 0.0
	if c.FromGraph {
		graphBonus = 1.0
	}
	return 0.4*c.Similarity +
		0.2*c.Recency +
		0.2*importance +
		0.2*TemporalScore(query, c) +
		0.1*graphBonus
}

// BlendedScore combines the model's utility estimate with the channel
// evidence:
//
//	0.4*utility + 0.2*similarity + 0.15*recency + 0.15*importance + 0.1*graph score
func BlendedScore(utility float64, c *Candidate) float64 {
	importance := c.Memory.Importance
	if importance == 0 {
		importance = 0.5
	}
	return 0.4*utility +
		0.2*c.Similarity +
		0.15*c.Recency +
		0.15*importance +
		0.1*c.GraphScore
}
