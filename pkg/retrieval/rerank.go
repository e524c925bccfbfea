package retrieval

import "sort"

// DefaultRerankTopK is the final result count after reranking.
const DefaultRerankTopK = 5

// scoredCandidate pairs a candidate with its ranking-stage scores.
type scoredCandidate struct {
	candidate *Candidate

	// utility is the model's estimate, 0 when no trained model is
	// available.
	utility float64

	// rankScore is the blended ranking-stage score, kept for the final
	// result payload.
	rankScore float64
}

// rerankScore emphasizes graph structure over raw similarity for the final
// cut: 0.5*graph score + 0.3*utility + 0.2*similarity.
func rerankScore(sc scoredCandidate) float64 {
	return 0.5*sc.candidate.GraphScore + 0.3*sc.utility + 0.2*sc.candidate.Similarity
}

// rerank reorders the ranking stage's survivors by rerankScore and keeps at
// most k. The sort is stable, so candidates tied on every signal keep their
// ranking-stage order.
func rerank(scored []scoredCandidate, k int) []scoredCandidate {
	if k <= 0 {
		return nil
	}

	out := make([]scoredCandidate, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool {
		return rerankScore(out[i]) > rerankScore(out[j])
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
