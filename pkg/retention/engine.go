package retention

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/memcore-ai/memcore-go/internal/metrics"
	"github.com/memcore-ai/memcore-go/pkg/embedder"
	"github.com/memcore-ai/memcore-go/pkg/extraction"
	"github.com/memcore-ai/memcore-go/pkg/memory"
)

// Engine defaults.
const (
	// DefaultSweepLimit caps how many memories one sweep loads per owner.
	DefaultSweepLimit = 2000

	// DefaultMaxSummaries caps semantic memories created per sweep, so one
	// run cannot flood the store.
	DefaultMaxSummaries = 50

	// DefaultClusterUtilityThreshold is the minimum mean retention score a
	// cluster needs to be worth summarizing. Retention score, not learned
	// utility: a fresh cluster the model has not vouched for yet still
	// deserves consolidation.
	DefaultClusterUtilityThreshold = 0.15

	// semanticImportance is the importance assigned to consolidated
	// memories.
	semanticImportance = 0.6
)

// MemoryStore is the slice of storage the engine needs, expressed over
// domain types so the engine stays decoupled from the storage schema.
type MemoryStore interface {
	// ListEpisodic returns up to limit episodic memories of an owner.
	ListEpisodic(ctx context.Context, ownerID string, limit int) ([]*memory.Memory, error)

	// ListAll returns up to limit memories of an owner, any kind.
	ListAll(ctx context.Context, ownerID string, limit int) ([]*memory.Memory, error)

	// Insert persists a new memory.
	Insert(ctx context.Context, m *memory.Memory) error

	// Remove deletes a memory, reporting whether it existed.
	Remove(ctx context.Context, id int64) (bool, error)
}

// Indexer is notified of memories the engine creates or deletes so the
// lexical and graph indexes stay in sync with the store.
type Indexer interface {
	IndexMemory(m *memory.Memory)
	RemoveMemory(id int64)
}

// EngineConfig tunes the consolidation sweep. Zero values select the
// package defaults.
type EngineConfig struct {
	SweepLimit              int
	DistanceThreshold       float64
	MinClusterSize          int
	MaxSummaries            int
	ClusterUtilityThreshold float64
	Policy                  Policy
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.SweepLimit <= 0 {
		c.SweepLimit = DefaultSweepLimit
	}
	if c.DistanceThreshold <= 0 {
		c.DistanceThreshold = DefaultDistanceThreshold
	}
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = DefaultMinClusterSize
	}
	if c.MaxSummaries <= 0 {
		c.MaxSummaries = DefaultMaxSummaries
	}
	if c.ClusterUtilityThreshold <= 0 {
		c.ClusterUtilityThreshold = DefaultClusterUtilityThreshold
	}
	c.Policy = c.Policy.withDefaults()
	return c
}

// Engine runs consolidation sweeps: cluster an owner's episodic memories,
// compress worthwhile clusters into semantic memories, then apply the
// retention policy across the whole corpus.
type Engine struct {
	store      MemoryStore
	embed      embedder.Provider
	summarizer *Summarizer
	extractor  extraction.Extractor
	indexer    Indexer
	node       *snowflake.Node
	cfg        EngineConfig
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewEngine assembles a consolidation engine. The extractor, indexer, and
// collector may be nil.
func NewEngine(store MemoryStore, embed embedder.Provider, summarizer *Summarizer, extractor extraction.Extractor, indexer Indexer, node *snowflake.Node, cfg EngineConfig, collector *metrics.Collector, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:      store,
		embed:      embed,
		summarizer: summarizer,
		extractor:  extractor,
		indexer:    indexer,
		node:       node,
		cfg:        cfg.withDefaults(),
		collector:  collector,
		logger:     logger,
	}
}

// Sweep consolidates one owner's memories.
//
// Clusters are summarized in descending mean retention-score order, so the
// most valuable material is compressed first when the per-run summary cap
// bites. Summarization never deletes its source memories; only the
// retention pass deletes, and it judges every memory independently,
// including freshly created semantic ones. Store failures on individual
// memories are logged and skipped, never failing the sweep.
func (e *Engine) Sweep(ctx context.Context, ownerID string) (*memory.ConsolidationReport, error) {
	now := time.Now()
	report := &memory.ConsolidationReport{}

	episodic, err := e.store.ListEpisodic(ctx, ownerID, e.cfg.SweepLimit)
	if err != nil {
		return nil, err
	}

	clusters := ClusterMemories(episodic, e.cfg.DistanceThreshold, e.cfg.MinClusterSize)
	report.Clusters = len(clusters)

	sort.SliceStable(clusters, func(i, j int) bool {
		return meanRetention(e.cfg.Policy, clusters[i], now) > meanRetention(e.cfg.Policy, clusters[j], now)
	})

	for _, cluster := range clusters {
		if report.Created >= e.cfg.MaxSummaries {
			break
		}
		if meanRetention(e.cfg.Policy, cluster, now) < e.cfg.ClusterUtilityThreshold {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		summary := e.summarizer.Summarize(ctx, cluster)
		embedding, err := e.embed.Embed(ctx, summary)
		if err != nil {
			e.logger.Warn("skipping cluster, summary embedding failed",
				zap.String("owner_id", ownerID),
				zap.Int("cluster_size", len(cluster.Members)),
				zap.Error(err))
			continue
		}

		var entities []string
		if e.extractor != nil {
			entities = e.extractor.Extract(summary)
		}

		semantic := &memory.Memory{
			ID:         e.node.Generate().Int64(),
			OwnerID:    ownerID,
			Kind:       memory.KindSemantic,
			Summary:    summary,
			Embedding:  embedding,
			Entities:   entities,
			Importance: semanticImportance,
			CreatedAt:  now,
			Provenance: cluster.IDs(),
		}
		if err := e.store.Insert(ctx, semantic); err != nil {
			e.logger.Warn("skipping cluster, semantic memory insert failed",
				zap.String("owner_id", ownerID),
				zap.Error(err))
			continue
		}
		if e.indexer != nil {
			e.indexer.IndexMemory(semantic)
		}
		report.Created++
	}

	all, err := e.store.ListAll(ctx, ownerID, e.cfg.SweepLimit)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		pi := e.cfg.Policy.Score(m, now)
		if e.cfg.Policy.Classify(pi) != ActionDelete {
			continue
		}
		deleted, err := e.store.Remove(ctx, m.ID)
		if err != nil {
			e.logger.Warn("retention delete failed",
				zap.Int64("memory_id", m.ID),
				zap.Error(err))
			continue
		}
		if deleted {
			if e.indexer != nil {
				e.indexer.RemoveMemory(m.ID)
			}
			report.Deleted++
		}
	}

	e.collector.ObserveConsolidation(report.Created, report.Deleted)
	e.logger.Info("consolidation sweep completed",
		zap.String("owner_id", ownerID),
		zap.Int("clusters", report.Clusters),
		zap.Int("created", report.Created),
		zap.Int("deleted", report.Deleted))
	return report, nil
}
