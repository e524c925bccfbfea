package graph

import (
	"github.com/memcore-ai/memcore-go/pkg/storage"
)

const (
	pagerankDamping    = 0.85
	pagerankIterations = 20
)

// Degree returns the relationship count per memory: the number of distinct
// other memories sharing at least one entity.
func (s *Store) Degree() map[int64]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]int, len(s.byMemory))
	for id := range s.byMemory {
		out[id] = len(s.neighborsLocked(id))
	}
	return out
}

// neighborsLocked returns the memories sharing an entity with id.
// Caller must hold at least a read lock.
func (s *Store) neighborsLocked(id int64) map[int64]struct{} {
	neighbors := make(map[int64]struct{})
	for e := range s.byMemory[id] {
		for other := range s.byEntity[e] {
			if other != id {
				neighbors[other] = struct{}{}
			}
		}
	}
	return neighbors
}

// Pagerank runs power iteration over the memory co-entity graph.
//
// Isolated memories receive the uniform baseline (1-d)/N. The result is not
// normalized to [0,1]; ranking normalizes per candidate set.
func (s *Store) Pagerank() map[int64]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.byMemory)
	if n == 0 {
		return map[int64]float64{}
	}

	neighbors := make(map[int64][]int64, n)
	for id := range s.byMemory {
		set := s.neighborsLocked(id)
		list := make([]int64, 0, len(set))
		for other := range set {
			list = append(list, other)
		}
		neighbors[id] = list
	}

	rank := make(map[int64]float64, n)
	for id := range s.byMemory {
		rank[id] = 1.0 / float64(n)
	}

	base := (1.0 - pagerankDamping) / float64(n)
	for i := 0; i < pagerankIterations; i++ {
		next := make(map[int64]float64, n)
		for id := range rank {
			next[id] = base
		}
		for id, out := range neighbors {
			if len(out) == 0 {
				continue
			}
			share := pagerankDamping * rank[id] / float64(len(out))
			for _, dst := range out {
				next[dst] += share
			}
		}
		rank = next
	}

	return rank
}

// Centrality computes the pagerank and degree snapshot for every indexed
// memory, in the shape the store's centrality cache persists.
func (s *Store) Centrality() map[int64]storage.Centrality {
	degree := s.Degree()
	pagerank := s.Pagerank()

	out := make(map[int64]storage.Centrality, len(degree))
	for id, d := range degree {
		out[id] = storage.Centrality{
			Pagerank: pagerank[id],
			Degree:   d,
		}
	}
	return out
}
