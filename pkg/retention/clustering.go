package retention

import (
	"sort"

	"github.com/memcore-ai/memcore-go/pkg/memory"
	"github.com/memcore-ai/memcore-go/pkg/ranking"
)

// Clustering defaults.
const (
	// DefaultDistanceThreshold is the average-linkage cosine distance
	// above which clusters stop merging.
	DefaultDistanceThreshold = 0.35

	// DefaultMinClusterSize is the smallest cluster worth summarizing.
	DefaultMinClusterSize = 2
)

// Cluster is a group of related episodic memories.
type Cluster struct {
	Members []*memory.Memory
}

// IDs returns the member ids in cluster order.
func (c *Cluster) IDs() []int64 {
	ids := make([]int64, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ID
	}
	return ids
}

// ClusterMemories groups memories by embedding proximity with average-
// linkage agglomerative clustering over cosine distance. Merging stops
// when the closest pair of clusters is farther apart than the threshold.
// Memories without embeddings are ignored. Only clusters of at least
// minSize members are returned, largest first, ties on smallest member id
// for determinism.
//
// The O(n^2) distance matrix is acceptable at sweep scale; the engine caps
// the per-owner load well below the point where this matters.
func ClusterMemories(memories []*memory.Memory, distanceThreshold float64, minSize int) []*Cluster {
	if distanceThreshold <= 0 {
		distanceThreshold = DefaultDistanceThreshold
	}
	if minSize <= 0 {
		minSize = DefaultMinClusterSize
	}

	var embedded []*memory.Memory
	for _, m := range memories {
		if m != nil && len(m.Embedding) > 0 {
			embedded = append(embedded, m)
		}
	}
	n := len(embedded)
	if n == 0 {
		return nil
	}

	// dist[i][j] holds pairwise cosine distance between memories.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - ranking.CosineSimilarity(embedded[i].Embedding, embedded[j].Embedding)
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	avgLinkage := func(a, b []int) float64 {
		sum := 0.0
		for _, i := range a {
			for _, j := range b {
				sum += dist[i][j]
			}
		}
		return sum / float64(len(a)*len(b))
	}

	for len(clusters) > 1 {
		bestI, bestJ := -1, -1
		bestD := distanceThreshold
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				if d := avgLinkage(clusters[i], clusters[j]); d <= bestD {
					bestD = d
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 {
			break
		}
		clusters[bestI] = append(clusters[bestI], clusters[bestJ]...)
		clusters = append(clusters[:bestJ], clusters[bestJ+1:]...)
	}

	var out []*Cluster
	for _, idxs := range clusters {
		if len(idxs) < minSize {
			continue
		}
		sort.Ints(idxs)
		members := make([]*memory.Memory, len(idxs))
		for i, idx := range idxs {
			members[i] = embedded[idx]
		}
		out = append(out, &Cluster{Members: members})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return out[i].Members[0].ID < out[j].Members[0].ID
	})
	return out
}
