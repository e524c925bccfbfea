// Package graph provides the in-memory entity graph used for candidate
// expansion and for computing graph centrality signals.
//
// The graph links entity names to the memories that mention them. Expansion
// walks entity links breadth-first; centrality (pagerank, degree) is computed
// over the induced memory graph and cached in the durable store by a
// background job.
package graph

import (
	"context"
	"sort"
	"sync"
)

// Expander expands entity names into related memory ids.
//
// Implementations must honor context cancellation: fusion imposes a timeout
// on expansion and proceeds without graph contribution when it expires.
type Expander interface {
	// Expand traverses the graph from the given entity names up to depth
	// and returns the ids of reachable memories.
	Expand(ctx context.Context, entities []string, depth int) ([]int64, error)
}

// Store is an in-memory bipartite graph of entities and memories.
//
// It is safe for concurrent use: retrieval reads while ingestion and
// consolidation write.
type Store struct {
	mu sync.RWMutex

	// byEntity maps an entity name to the memory ids mentioning it.
	byEntity map[string]map[int64]struct{}

	// byMemory maps a memory id to the entity names it mentions.
	byMemory map[int64]map[string]struct{}
}

// NewStore creates an empty entity graph.
func NewStore() *Store {
	return &Store{
		byEntity: make(map[string]map[int64]struct{}),
		byMemory: make(map[int64]map[string]struct{}),
	}
}

// Index links a memory to the entities it mentions, replacing any previous
// links for the same memory id. Indexing with no entities removes the memory
// from the graph.
func (s *Store) Index(memoryID int64, entities []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(memoryID)
	if len(entities) == 0 {
		return
	}

	links := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if e == "" {
			continue
		}
		links[e] = struct{}{}
		if s.byEntity[e] == nil {
			s.byEntity[e] = make(map[int64]struct{})
		}
		s.byEntity[e][memoryID] = struct{}{}
	}
	s.byMemory[memoryID] = links
}

// Remove unlinks a memory from the graph.
func (s *Store) Remove(memoryID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(memoryID)
}

func (s *Store) removeLocked(memoryID int64) {
	for e := range s.byMemory[memoryID] {
		delete(s.byEntity[e], memoryID)
		if len(s.byEntity[e]) == 0 {
			delete(s.byEntity, e)
		}
	}
	delete(s.byMemory, memoryID)
}

// Expand walks the graph breadth-first from the given entity names.
//
// Depth counts entity hops: depth 1 returns memories directly mentioning a
// seed entity, depth 2 additionally follows the entities of those memories,
// and so on. Ids within one level come back in ascending order, so the same
// graph and seeds always yield the same output. Traversal checks ctx between
// levels and returns ctx.Err() when cancelled, so fusion can time-box the
// lookup.
func (s *Store) Expand(ctx context.Context, entities []string, depth int) ([]int64, error) {
	if len(entities) == 0 || depth <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	frontier := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		frontier[e] = struct{}{}
	}

	visitedEntities := make(map[string]struct{})
	seen := make(map[int64]struct{})
	var out []int64

	for level := 0; level < depth && len(frontier) > 0; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next := make(map[string]struct{})
		var levelIDs []int64
		for e := range frontier {
			if _, done := visitedEntities[e]; done {
				continue
			}
			visitedEntities[e] = struct{}{}

			for id := range s.byEntity[e] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				levelIDs = append(levelIDs, id)
				for linked := range s.byMemory[id] {
					if _, done := visitedEntities[linked]; !done {
						next[linked] = struct{}{}
					}
				}
			}
		}
		sort.Slice(levelIDs, func(i, j int) bool { return levelIDs[i] < levelIDs[j] })
		out = append(out, levelIDs...)
		frontier = next
	}

	return out, nil
}

// Size returns the number of indexed memories and entities.
func (s *Store) Size() (memories, entities int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byMemory), len(s.byEntity)
}
