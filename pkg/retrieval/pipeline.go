package retrieval

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/memcore-ai/memcore-go/internal/metrics"
	"github.com/memcore-ai/memcore-go/pkg/memory"
	"github.com/memcore-ai/memcore-go/pkg/ranking"
)

// DefaultRankTopN is how many ranked candidates survive into the rerank
// stage.
const DefaultRankTopN = 20

// CentralityReader serves cached graph centrality for a set of memory ids.
// Ids without cached values are simply absent from the result.
type CentralityReader interface {
	ReadCentrality(ctx context.Context, ids []int64) (map[int64]memory.Centrality, error)
}

// ModelProvider returns the current scoring model, or nil when none is
// trained yet. The pipeline reads it once per query so a concurrent
// retrain never changes scores mid-ranking.
type ModelProvider func() *ranking.Model

// PipelineConfig tunes the ranking stages. Zero values select the package
// defaults.
type PipelineConfig struct {
	RankTopN    int
	RerankTopK  int
	DecayLambda float64
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.RankTopN <= 0 {
		c.RankTopN = DefaultRankTopN
	}
	if c.RerankTopK <= 0 {
		c.RerankTopK = DefaultRerankTopK
	}
	if c.DecayLambda <= 0 {
		c.DecayLambda = DefaultDecayLambda
	}
	return c
}

// Timings is the per-stage latency breakdown of one query.
type Timings struct {
	Fusion  time.Duration
	Ranking time.Duration
	Rerank  time.Duration
	Total   time.Duration
}

// Result is the outcome of one retrieval query.
type Result struct {
	// Memories holds the final results, best first, with their blended
	// ranking scores.
	Memories []*memory.Scored

	// Intent is the detected query intent.
	Intent ranking.Intent

	// QueryEntities are the entities extracted from the query.
	QueryEntities []string

	// ModelUsed reports whether a trained model scored this query.
	ModelUsed bool

	// Timings is the stage latency breakdown.
	Timings Timings
}

// Pipeline runs the full read path: fuse, score, blend, rerank.
type Pipeline struct {
	fuser      *Fuser
	centrality CentralityReader
	model      ModelProvider
	cfg        PipelineConfig
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewPipeline assembles the read path. The model provider may return nil,
// which selects the heuristic fallback blend; the collector may be nil.
func NewPipeline(fuser *Fuser, centrality CentralityReader, model ModelProvider, cfg PipelineConfig, collector *metrics.Collector, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fuser:      fuser,
		centrality: centrality,
		model:      model,
		cfg:        cfg.withDefaults(),
		collector:  collector,
		logger:     logger,
	}
}

// Query retrieves the best memories for the query, at most min(k,
// rerank top-k) of them.
//
// Scoring uses the trained model when one is available, blended with the
// channel evidence; otherwise the heuristic fallback blend. The sort is
// stable in both paths, so equal scores keep fusion order.
func (p *Pipeline) Query(ctx context.Context, ownerID, query string, queryEmbedding []float64, k int) (*Result, error) {
	start := time.Now()
	intent := ranking.DetectIntent(query)

	fusionStart := time.Now()
	fused, err := p.fuser.Fuse(ctx, ownerID, query, queryEmbedding)
	if err != nil {
		return nil, err
	}
	fusionDur := time.Since(fusionStart)
	p.collector.ObserveStage("fusion", fusionDur)
	p.collector.ObserveFusedCandidates(len(fused.Candidates))

	rankStart := time.Now()
	candidates := fused.Candidates
	if len(candidates) > 0 && p.centrality != nil {
		ids := make([]int64, len(candidates))
		for i, c := range candidates {
			ids[i] = c.Memory.ID
		}
		cents, err := p.centrality.ReadCentrality(ctx, ids)
		if err != nil {
			p.logger.Warn("centrality lookup failed, ranking without graph scores",
				zap.String("owner_id", ownerID),
				zap.Error(err))
		} else {
			AttachGraphScores(candidates, cents)
		}
	}

	var model *ranking.Model
	if p.model != nil {
		if m := p.model(); m != nil && m.Trained {
			model = m
		}
	}

	scored := make([]scoredCandidate, len(candidates))
	if model != nil {
		features := make([][]float64, len(candidates))
		for i, c := range candidates {
			features[i] = ranking.Vector(p.signals(c, fused.QueryEntities, intent))
		}
		utilities := model.ScoreBatch(features)
		for i, c := range candidates {
			scored[i] = scoredCandidate{
				candidate: c,
				utility:   utilities[i],
				rankScore: BlendedScore(utilities[i], c),
			}
		}
	} else {
		// No utility estimate without a trained model: the rerank stage
		// then weighs graph and similarity evidence alone, instead of
		// double-counting the heuristic blend.
		for i, c := range candidates {
			scored[i] = scoredCandidate{
				candidate: c,
				rankScore: FallbackScore(query, c),
			}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].rankScore > scored[j].rankScore
	})
	if len(scored) > p.cfg.RankTopN {
		scored = scored[:p.cfg.RankTopN]
	}
	rankDur := time.Since(rankStart)
	p.collector.ObserveStage("ranking", rankDur)

	rerankStart := time.Now()
	finalK := p.cfg.RerankTopK
	if k > 0 && k < finalK {
		finalK = k
	}
	final := rerank(scored, finalK)
	rerankDur := time.Since(rerankStart)
	p.collector.ObserveStage("rerank", rerankDur)

	memories := make([]*memory.Scored, len(final))
	for i, sc := range final {
		memories[i] = &memory.Scored{Memory: sc.candidate.Memory, Score: sc.rankScore}
	}

	total := time.Since(start)
	p.collector.ObserveQuery(intent.String(), model != nil)
	p.logger.Debug("retrieval query completed",
		zap.String("owner_id", ownerID),
		zap.String("intent", intent.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(memories)),
		zap.Bool("model_used", model != nil),
		zap.Duration("total", total))

	return &Result{
		Memories:      memories,
		Intent:        intent,
		QueryEntities: fused.QueryEntities,
		ModelUsed:     model != nil,
		Timings: Timings{
			Fusion:  fusionDur,
			Ranking: rankDur,
			Rerank:  rerankDur,
			Total:   total,
		},
	}, nil
}

func (p *Pipeline) signals(c *Candidate, queryEntities []string, intent ranking.Intent) ranking.Signals {
	importance := c.Memory.Importance
	if importance == 0 {
		importance = 0.5
	}
	return ranking.Signals{
		Similarity:    c.Similarity,
		Recency:       c.Recency,
		Importance:    importance,
		UsageCount:    c.Memory.UsageCount,
		Pagerank:      c.Pagerank,
		EntityOverlap: ranking.EntityOverlap(queryEntities, c.Memory.Entities),
		HasEmotion:    c.Memory.Emotion != "",
		GraphDistance: c.GraphScore,
		Intent:        intent,
	}
}
