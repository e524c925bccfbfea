package retrieval

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/memcore-ai/memcore-go/pkg/extraction"
	"github.com/memcore-ai/memcore-go/pkg/graph"
	"github.com/memcore-ai/memcore-go/pkg/memory"
	"github.com/memcore-ai/memcore-go/pkg/ranking"
)

// Fusion defaults.
const (
	// DefaultVectorK is the vector-channel candidate count.
	DefaultVectorK = 50

	// DefaultLexicalK is the lexical-channel candidate count.
	DefaultLexicalK = 30

	// DefaultGraphDepth bounds entity-hop expansion.
	DefaultGraphDepth = 2

	// DefaultGraphTimeout bounds the graph channel; on expiry the channel
	// contributes nothing rather than failing the query.
	DefaultGraphTimeout = 2500 * time.Millisecond

	// DefaultMergeCap truncates the fused set before feature enrichment.
	DefaultMergeCap = 100

	// DefaultDecayLambda is the recency decay rate per day.
	DefaultDecayLambda = 0.1
)

// VectorMatch is one vector-channel hit.
type VectorMatch struct {
	Memory *memory.Memory
	Score  float64
}

// VectorSearcher finds the k nearest memories of an owner by embedding
// similarity.
type VectorSearcher interface {
	SearchVectors(ctx context.Context, ownerID string, embedding []float64, k int) ([]VectorMatch, error)
}

// MemoryLoader resolves ids surfaced by the lexical and graph channels into
// memories. A missing id returns (nil, nil).
type MemoryLoader interface {
	LoadMemory(ctx context.Context, id int64) (*memory.Memory, error)
}

// FusionConfig tunes the candidate builder. Zero values select the package
// defaults.
type FusionConfig struct {
	VectorK      int
	LexicalK     int
	GraphDepth   int
	GraphTimeout time.Duration
	MergeCap     int
	DecayLambda  float64
}

func (c FusionConfig) withDefaults() FusionConfig {
	if c.VectorK <= 0 {
		c.VectorK = DefaultVectorK
	}
	if c.LexicalK <= 0 {
		c.LexicalK = DefaultLexicalK
	}
	if c.GraphDepth <= 0 {
		c.GraphDepth = DefaultGraphDepth
	}
	if c.GraphTimeout <= 0 {
		c.GraphTimeout = DefaultGraphTimeout
	}
	if c.MergeCap <= 0 {
		c.MergeCap = DefaultMergeCap
	}
	if c.DecayLambda <= 0 {
		c.DecayLambda = DefaultDecayLambda
	}
	return c
}

// FusionResult is the fused candidate set plus the query analysis the
// ranking stage reuses.
type FusionResult struct {
	Candidates    []*Candidate
	QueryEntities []string
}

// Fuser merges the vector, lexical, and graph retrieval channels into one
// deduplicated candidate list.
type Fuser struct {
	vector    VectorSearcher
	lexical   *BM25Index
	graph     graph.Expander
	loader    MemoryLoader
	extractor extraction.Extractor
	cfg       FusionConfig
	logger    *zap.Logger
}

// NewFuser creates a candidate builder. The graph expander and extractor
// may be nil, which disables the graph channel and the entity features.
func NewFuser(vector VectorSearcher, lexical *BM25Index, g graph.Expander, loader MemoryLoader, extractor extraction.Extractor, cfg FusionConfig, logger *zap.Logger) *Fuser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fuser{
		vector:    vector,
		lexical:   lexical,
		graph:     g,
		loader:    loader,
		extractor: extractor,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Fuse runs the three channels concurrently and merges their results.
//
// The vector channel is the seed set; lexical adds keyword matches vector
// search misses; the graph channel runs only when the query names entities,
// under its own timeout, and degrades to empty on expiry. Candidates merge
// in the fixed order vector, lexical, graph, so the output order is
// deterministic for a given store state. The merged list is truncated to
// the merge cap before recency enrichment.
func (f *Fuser) Fuse(ctx context.Context, ownerID, query string, queryEmbedding []float64) (*FusionResult, error) {
	var queryEntities []string
	if f.extractor != nil {
		queryEntities = f.extractor.Extract(query)
	}

	var (
		vectorHits  []VectorMatch
		lexicalHits []LexicalMatch
		graphIDs    []int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := f.vector.SearchVectors(gctx, ownerID, queryEmbedding, f.cfg.VectorK)
		if err != nil {
			return err
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		lexicalHits = f.lexical.Search(query, ownerID, f.cfg.LexicalK)
		return nil
	})
	if f.graph != nil && len(queryEntities) > 0 {
		g.Go(func() error {
			graphCtx, cancel := context.WithTimeout(gctx, f.cfg.GraphTimeout)
			defer cancel()
			ids, err := f.graph.Expand(graphCtx, queryEntities, f.cfg.GraphDepth)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					f.logger.Warn("graph expansion timed out, continuing without graph channel",
						zap.String("owner_id", ownerID),
						zap.Duration("timeout", f.cfg.GraphTimeout))
					return nil
				}
				return err
			}
			graphIDs = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int64]*Candidate, len(vectorHits)+len(lexicalHits)+len(graphIDs))
	var merged []*Candidate

	for _, hit := range vectorHits {
		if hit.Memory == nil {
			continue
		}
		c := &Candidate{Memory: hit.Memory, Similarity: hit.Score, FromVector: true}
		seen[hit.Memory.ID] = c
		merged = append(merged, c)
	}

	for _, hit := range lexicalHits {
		if existing, ok := seen[hit.ID]; ok {
			existing.FromLexical = true
			existing.LexicalScore = hit.Score
			continue
		}
		m, err := f.loader.LoadMemory(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		if m == nil || m.OwnerID != ownerID {
			continue
		}
		c := &Candidate{Memory: m, LexicalScore: hit.Score, FromLexical: true}
		seen[hit.ID] = c
		merged = append(merged, c)
	}

	for _, id := range graphIDs {
		if existing, ok := seen[id]; ok {
			existing.FromGraph = true
			continue
		}
		m, err := f.loader.LoadMemory(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil || m.OwnerID != ownerID {
			continue
		}
		c := &Candidate{Memory: m, FromGraph: true}
		seen[id] = c
		merged = append(merged, c)
	}

	if len(merged) > f.cfg.MergeCap {
		merged = merged[:f.cfg.MergeCap]
	}

	now := time.Now()
	for _, c := range merged {
		c.Recency = ranking.RecencyScore(c.Memory, f.cfg.DecayLambda, now)
	}

	return &FusionResult{Candidates: merged, QueryEntities: queryEntities}, nil
}
