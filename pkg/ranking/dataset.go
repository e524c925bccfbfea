package ranking

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/memcore-ai/memcore-go/pkg/extraction"
	"github.com/memcore-ai/memcore-go/pkg/memory"
)

// DefaultMaxNegatives caps the negatives drawn per feedback record.
const DefaultMaxNegatives = 5

// EmbedFunc produces the embedding for a query text. Dataset building
// tolerates embedding failures by skipping the record, never aborting the
// whole set.
type EmbedFunc func(ctx context.Context, text string) ([]float64, error)

// MemoryGetter loads a memory by id, returning (nil, nil) when it no longer
// exists.
type MemoryGetter func(ctx context.Context, id int64) (*memory.Memory, error)

// DatasetBuilder turns feedback logs, or the memory corpus itself, into
// pairwise training samples. Both paths run every memory through
// MemorySignals and Vector so the training features match inference
// features exactly.
type DatasetBuilder struct {
	// Lambda is the recency decay rate per day.
	Lambda float64

	// MaxNegatives caps negatives per sample. Zero selects
	// DefaultMaxNegatives.
	MaxNegatives int

	// Extractor pulls query entities for the overlap feature. Nil disables
	// the feature (overlap is 0 for every sample).
	Extractor extraction.Extractor

	// Logger reports skipped records. Nil disables logging.
	Logger *zap.Logger
}

func (b *DatasetBuilder) maxNegatives() int {
	if b.MaxNegatives > 0 {
		return b.MaxNegatives
	}
	return DefaultMaxNegatives
}

func (b *DatasetBuilder) logger() *zap.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return zap.NewNop()
}

func (b *DatasetBuilder) queryEntities(query string) []string {
	if b.Extractor == nil {
		return nil
	}
	return b.Extractor.Extract(query)
}

// FromFeedback builds samples from recorded retrieval feedback. Memories
// the agent used become positives; retrieved-but-unused memories from the
// same query become negatives, capped at MaxNegatives per record. Records
// whose memories have been deleted, or with no used ids, are skipped.
func (b *DatasetBuilder) FromFeedback(ctx context.Context, records []*memory.FeedbackRecord, get MemoryGetter, embed EmbedFunc, now time.Time) []Sample {
	log := b.logger()
	var samples []Sample

	for _, rec := range records {
		if rec == nil || len(rec.UsedIDs) == 0 {
			continue
		}

		queryEmb, err := embed(ctx, rec.Query)
		if err != nil {
			log.Warn("skipping feedback record, query embedding failed",
				zap.String("feedback_id", rec.ID),
				zap.Error(err))
			continue
		}
		entities := b.queryEntities(rec.Query)
		intent := DetectIntent(rec.Query)

		used := make(map[int64]struct{}, len(rec.UsedIDs))
		for _, id := range rec.UsedIDs {
			used[id] = struct{}{}
		}

		var negatives [][]float64
		for _, id := range rec.RetrievedIDs {
			if _, isPos := used[id]; isPos {
				continue
			}
			if len(negatives) >= b.maxNegatives() {
				break
			}
			m, err := get(ctx, id)
			if err != nil || m == nil {
				continue
			}
			negatives = append(negatives, Vector(MemorySignals(queryEmb, entities, m, b.Lambda, now, intent)))
		}

		for _, id := range rec.UsedIDs {
			m, err := get(ctx, id)
			if err != nil || m == nil {
				continue
			}
			samples = append(samples, Sample{
				Positive:  Vector(MemorySignals(queryEmb, entities, m, b.Lambda, now, intent)),
				Negatives: negatives,
			})
		}
	}

	return samples
}

// Synthetic builds bootstrap samples when no feedback exists yet. Each
// memory's own summary stands in as a query, the memory itself is the
// positive, and randomly drawn other memories are negatives. The memory's
// stored embedding serves as the proxy-query embedding.
func (b *DatasetBuilder) Synthetic(memories []*memory.Memory, negPerSample int, rng *rand.Rand, now time.Time) []Sample {
	if len(memories) < 2 {
		return nil
	}
	if negPerSample <= 0 {
		negPerSample = 2
	}

	var samples []Sample
	for i, m := range memories {
		if m == nil || len(m.Embedding) == 0 {
			continue
		}
		entities := b.queryEntities(m.Summary)
		intent := DetectIntent(m.Summary)

		var negatives [][]float64
		for _, j := range rng.Perm(len(memories)) {
			if j == i || memories[j] == nil {
				continue
			}
			negatives = append(negatives, Vector(MemorySignals(m.Embedding, entities, memories[j], b.Lambda, now, intent)))
			if len(negatives) >= negPerSample {
				break
			}
		}
		if len(negatives) == 0 {
			continue
		}

		samples = append(samples, Sample{
			Positive:  Vector(MemorySignals(m.Embedding, entities, m, b.Lambda, now, intent)),
			Negatives: negatives,
		})
	}
	return samples
}
