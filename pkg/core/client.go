package core

import (
	"context"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/memcore-ai/memcore-go/internal/metrics"
	"github.com/memcore-ai/memcore-go/pkg/embedder"
	embedderopenai "github.com/memcore-ai/memcore-go/pkg/embedder/openai"
	"github.com/memcore-ai/memcore-go/pkg/extraction"
	"github.com/memcore-ai/memcore-go/pkg/graph"
	"github.com/memcore-ai/memcore-go/pkg/llm"
	llmopenai "github.com/memcore-ai/memcore-go/pkg/llm/openai"
	"github.com/memcore-ai/memcore-go/pkg/ranking"
	"github.com/memcore-ai/memcore-go/pkg/retention"
	"github.com/memcore-ai/memcore-go/pkg/retrieval"
	"github.com/memcore-ai/memcore-go/pkg/storage"
	"github.com/memcore-ai/memcore-go/pkg/storage/mysql"
	"github.com/memcore-ai/memcore-go/pkg/storage/postgres"
	"github.com/memcore-ai/memcore-go/pkg/storage/sqlite"
)

// defaultImportance is assigned to memories added without an explicit
// importance.
const defaultImportance = 0.5

// Client is the MemCore memory engine client.
//
// It owns the durable store, the in-memory lexical and entity-graph
// indexes, the retrieval pipeline, the scoring model, and the retention
// engine. A Client is safe for concurrent use; Close releases every
// resource and stops the background scheduler.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, err := core.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	mem, _ := client.Add(ctx, "user_001", "We launched the beta last week")
//	result, _ := client.Query(ctx, "user_001", "when did the beta launch?")
type Client struct {
	config *Config
	logger *zap.Logger

	store     storage.Store
	embedder  embedder.Provider
	llm       llm.Provider
	extractor extraction.Extractor

	lexical *retrieval.BM25Index
	graph   *graph.Store

	pipeline  *retrieval.Pipeline
	engine    *retention.Engine
	dataset   *ranking.DatasetBuilder
	node      *snowflake.Node
	collector *metrics.Collector
	scheduler *Scheduler

	// model is the current scoring model handle. Retraining swaps the
	// whole pointer; queries read it once and never observe a partial
	// update.
	model atomic.Pointer[ranking.Model]

	closed atomic.Bool
}

// ClientOption configures client construction.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger    *zap.Logger
	store     storage.Store
	embedder  embedder.Provider
	llm       llm.Provider
	collector *metrics.Collector
}

// WithLogger sets the client logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithStore injects a pre-built store, overriding the configured backend.
func WithStore(store storage.Store) ClientOption {
	return func(o *clientOptions) {
		o.store = store
	}
}

// WithEmbedder injects a pre-built embedding provider.
func WithEmbedder(provider embedder.Provider) ClientOption {
	return func(o *clientOptions) {
		o.embedder = provider
	}
}

// WithLLM injects a pre-built LLM provider.
func WithLLM(provider llm.Provider) ClientOption {
	return func(o *clientOptions) {
		o.llm = provider
	}
}

// WithMetrics registers the engine's Prometheus metrics against reg.
func WithMetrics(reg prometheus.Registerer, logger *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		o.collector = metrics.NewCollector(reg, logger)
	}
}

// New creates a MemCore client from the configuration.
//
// Construction opens the store, builds the providers, rebuilds the
// in-memory lexical and graph indexes from the stored memories, loads the
// persisted scoring model when one exists, and starts the background
// scheduler when jobs are enabled.
func New(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, NewEngineError("New", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := o.store
	if store == nil {
		var err error
		store, err = openStore(config)
		if err != nil {
			return nil, err
		}
	}

	embedProvider := o.embedder
	if embedProvider == nil {
		var err error
		embedProvider, err = openEmbedder(config)
		if err != nil {
			return nil, err
		}
	}

	llmProvider := o.llm
	if llmProvider == nil && config.LLM.Provider != "" {
		var err error
		llmProvider, err = openLLM(config)
		if err != nil {
			return nil, err
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewEngineError("New", err)
	}

	c := &Client{
		config:    config,
		logger:    logger,
		store:     store,
		embedder:  embedProvider,
		llm:       llmProvider,
		extractor: extraction.NewHeuristic(),
		lexical:   retrieval.NewBM25Index(),
		graph:     graph.NewStore(),
		node:      node,
		collector: o.collector,
	}

	c.dataset = &ranking.DatasetBuilder{
		Lambda:    config.Retention.DecayLambda,
		Extractor: c.extractor,
		Logger:    logger,
	}

	fuser := retrieval.NewFuser(
		&storeSearcher{store: store},
		c.lexical,
		c.graph,
		&storeLoader{store: store},
		c.extractor,
		retrieval.FusionConfig{
			VectorK:      config.Retrieval.VectorK,
			LexicalK:     config.Retrieval.LexicalK,
			GraphDepth:   config.Retrieval.GraphDepth,
			GraphTimeout: config.Retrieval.GraphTimeout,
			MergeCap:     config.Retrieval.MergeCap,
			DecayLambda:  config.Retention.DecayLambda,
		},
		logger,
	)
	c.pipeline = retrieval.NewPipeline(
		fuser,
		&storeCentrality{store: store},
		func() *ranking.Model { return c.model.Load() },
		retrieval.PipelineConfig{
			RankTopN:    config.Retrieval.RankTopN,
			RerankTopK:  config.Retrieval.RerankTopK,
			DecayLambda: config.Retention.DecayLambda,
		},
		c.collector,
		logger,
	)

	c.engine = retention.NewEngine(
		&storeMemories{store: store},
		embedProvider,
		retention.NewSummarizer(llmProvider, logger),
		c.extractor,
		&clientIndexer{client: c},
		node,
		retention.EngineConfig{
			SweepLimit:              config.Retention.SweepLimit,
			DistanceThreshold:       config.Retention.DistanceThreshold,
			MinClusterSize:          config.Retention.MinClusterSize,
			MaxSummaries:            config.Retention.MaxSummaries,
			ClusterUtilityThreshold: config.Retention.ClusterUtilityThreshold,
			Policy: retention.Policy{
				TauDelete:   config.Retention.TauDelete,
				TauCompact:  config.Retention.TauCompact,
				DecayLambda: config.Retention.DecayLambda,
			},
		},
		c.collector,
		logger,
	)

	if config.Ranking.ModelPath != "" {
		if model, err := ranking.LoadModel(config.Ranking.ModelPath); err == nil {
			c.model.Store(model)
			logger.Info("loaded scoring model", zap.String("path", config.Ranking.ModelPath))
		} else {
			logger.Info("no usable scoring model on disk, starting with heuristic ranking",
				zap.String("path", config.Ranking.ModelPath),
				zap.Error(err))
		}
	}

	if err := c.rebuildIndexes(context.Background()); err != nil {
		return nil, err
	}

	if config.Jobs.Enabled {
		c.scheduler = NewScheduler(c, config.Jobs, logger)
		c.scheduler.Start()
	}

	return c, nil
}

func openStore(config *Config) (storage.Store, error) {
	switch config.Store.Provider {
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{DBPath: config.Store.Path})
	case "postgres":
		return postgres.NewClient(&postgres.Config{DSN: config.Store.DSN})
	case "mysql":
		return mysql.NewClient(&mysql.Config{DSN: config.Store.DSN})
	default:
		return nil, NewEngineError("New", ErrInvalidConfig)
	}
}

func openEmbedder(config *Config) (embedder.Provider, error) {
	switch config.Embedder.Provider {
	case "openai":
		return embedderopenai.NewClient(&embedderopenai.Config{
			APIKey:     config.Embedder.APIKey,
			Model:      config.Embedder.Model,
			BaseURL:    config.Embedder.BaseURL,
			Dimensions: config.Embedder.Dimensions,
		})
	default:
		return nil, NewEngineError("New", ErrInvalidConfig)
	}
}

func openLLM(config *Config) (llm.Provider, error) {
	switch config.LLM.Provider {
	case "openai":
		return llmopenai.NewClient(&llmopenai.Config{
			APIKey:  config.LLM.APIKey,
			Model:   config.LLM.Model,
			BaseURL: config.LLM.BaseURL,
		})
	default:
		return nil, NewEngineError("New", ErrInvalidConfig)
	}
}

// rebuildIndexes loads every stored memory into the lexical and graph
// indexes. Both indexes are in-memory and derived entirely from the store.
func (c *Client) rebuildIndexes(ctx context.Context) error {
	memories, err := c.store.List(ctx, &storage.ListOptions{})
	if err != nil {
		return NewEngineError("New", err)
	}
	for _, sm := range memories {
		m := fromStorageMemory(sm)
		c.indexMemory(m)
	}
	_, entities := c.graph.Size()
	c.logger.Info("rebuilt in-memory indexes",
		zap.Int("memories", len(memories)),
		zap.Int("graph_entities", entities))
	return nil
}

func (c *Client) indexMemory(m *Memory) {
	c.lexical.Add(m.ID, m.OwnerID, strings.TrimSpace(m.Summary+" "+m.RawText))
	c.graph.Index(m.ID, m.Entities)
}

func (c *Client) removeFromIndexes(id int64) {
	c.lexical.Remove(id)
	c.graph.Remove(id)
}

func (c *Client) checkOpen(op string) error {
	if c.closed.Load() {
		return NewEngineError(op, ErrClientClosed)
	}
	return nil
}

// Add stores a new memory for an owner and indexes it for retrieval.
//
// The summary is embedded and entity-extracted; the memory immediately
// participates in vector, lexical, and graph retrieval.
func (c *Client) Add(ctx context.Context, ownerID, summary string, opts ...AddOption) (*Memory, error) {
	if err := c.checkOpen("Add"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, NewEngineError("Add", ErrInvalidOwner)
	}
	if strings.TrimSpace(summary) == "" {
		return nil, NewEngineError("Add", ErrInvalidInput)
	}

	options := &AddOptions{Kind: KindEpisodic}
	for _, opt := range opts {
		opt(options)
	}

	embedding, err := c.embedder.Embed(ctx, summary)
	if err != nil {
		return nil, NewEngineError("Add", err)
	}

	entities := options.Entities
	if entities == nil {
		entities = c.extractor.Extract(summary)
	}

	importance := defaultImportance
	if options.Importance != nil {
		importance = *options.Importance
	}
	createdAt := options.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	memory := &Memory{
		ID:         c.node.Generate().Int64(),
		OwnerID:    ownerID,
		Kind:       options.Kind,
		Summary:    summary,
		RawText:    options.RawText,
		Embedding:  embedding,
		Entities:   entities,
		Emotion:    options.Emotion,
		Importance: Clamp01(importance),
		CreatedAt:  createdAt,
	}

	if err := c.store.Upsert(ctx, toStorageMemory(memory)); err != nil {
		return nil, NewEngineError("Add", err)
	}
	c.indexMemory(memory)

	c.logger.Debug("memory added",
		zap.Int64("memory_id", memory.ID),
		zap.String("owner_id", ownerID),
		zap.String("kind", string(memory.Kind)),
		zap.Int("entities", len(entities)))
	return memory, nil
}

// Get retrieves a memory by id. Returns ErrNotFound when it does not
// exist.
func (c *Client) Get(ctx context.Context, id int64) (*Memory, error) {
	if err := c.checkOpen("Get"); err != nil {
		return nil, err
	}
	sm, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, NewEngineError("Get", err)
	}
	if sm == nil {
		return nil, NewEngineError("Get", ErrNotFound)
	}
	return fromStorageMemory(sm), nil
}

// List returns an owner's memories, newest first, optionally filtered by
// kind.
func (c *Client) List(ctx context.Context, ownerID string, kind MemoryKind, limit int) ([]*Memory, error) {
	if err := c.checkOpen("List"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, NewEngineError("List", ErrInvalidOwner)
	}
	stored, err := c.store.List(ctx, &storage.ListOptions{OwnerID: ownerID, Kind: string(kind), Limit: limit})
	if err != nil {
		return nil, NewEngineError("List", err)
	}
	memories := make([]*Memory, len(stored))
	for i, sm := range stored {
		memories[i] = fromStorageMemory(sm)
	}
	return memories, nil
}

// Query retrieves the most relevant memories for a query.
//
// The result carries the detected intent, the query entities, whether the
// trained model scored the query, and a per-stage latency breakdown.
func (c *Client) Query(ctx context.Context, ownerID, query string, opts ...QueryOption) (*retrieval.Result, error) {
	if err := c.checkOpen("Query"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, NewEngineError("Query", ErrInvalidOwner)
	}
	if strings.TrimSpace(query) == "" {
		return nil, NewEngineError("Query", ErrEmptyQuery)
	}

	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	embedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewEngineError("Query", err)
	}

	result, err := c.pipeline.Query(ctx, ownerID, query, embedding, options.TopK)
	if err != nil {
		return nil, NewEngineError("Query", err)
	}
	return result, nil
}

// Correct patches a memory's summary and/or importance.
//
// A summary correction re-embeds the text, re-extracts entities, and
// refreshes the lexical and graph indexes; an importance-only correction
// is a cheap field patch.
func (c *Client) Correct(ctx context.Context, id int64, opts ...CorrectOption) (*Memory, error) {
	if err := c.checkOpen("Correct"); err != nil {
		return nil, err
	}

	options := &CorrectOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Summary == nil && options.Importance == nil {
		return nil, NewEngineError("Correct", ErrInvalidInput)
	}

	if options.Summary == nil {
		updated, err := c.store.UpdateFields(ctx, id, nil, options.Importance)
		if err != nil {
			return nil, NewEngineError("Correct", err)
		}
		if !updated {
			return nil, NewEngineError("Correct", ErrNotFound)
		}
		return c.Get(ctx, id)
	}

	sm, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, NewEngineError("Correct", err)
	}
	if sm == nil {
		return nil, NewEngineError("Correct", ErrNotFound)
	}
	memory := fromStorageMemory(sm)

	memory.Summary = *options.Summary
	if options.Importance != nil {
		memory.Importance = *options.Importance
	}
	memory.Embedding, err = c.embedder.Embed(ctx, memory.Summary)
	if err != nil {
		return nil, NewEngineError("Correct", err)
	}
	memory.Entities = c.extractor.Extract(memory.Summary)

	if err := c.store.Upsert(ctx, toStorageMemory(memory)); err != nil {
		return nil, NewEngineError("Correct", err)
	}
	c.indexMemory(memory)
	return memory, nil
}

// Delete removes a memory and its index entries. Returns true when the
// memory existed.
func (c *Client) Delete(ctx context.Context, id int64) (bool, error) {
	if err := c.checkOpen("Delete"); err != nil {
		return false, err
	}
	deleted, err := c.store.Delete(ctx, id)
	if err != nil {
		return false, NewEngineError("Delete", err)
	}
	if deleted {
		c.removeFromIndexes(id)
	}
	return deleted, nil
}

// RecordFeedback appends a feedback record for a past query and counts a
// usage on every memory the agent actually used.
func (c *Client) RecordFeedback(ctx context.Context, ownerID, query string, retrievedIDs, usedIDs []int64, reward float64) error {
	if err := c.checkOpen("RecordFeedback"); err != nil {
		return err
	}
	if strings.TrimSpace(ownerID) == "" {
		return NewEngineError("RecordFeedback", ErrInvalidOwner)
	}

	record := &FeedbackRecord{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Query:        query,
		RetrievedIDs: retrievedIDs,
		UsedIDs:      usedIDs,
		Reward:       Clamp01(reward),
		CreatedAt:    time.Now(),
	}
	if err := c.store.AppendFeedback(ctx, toStorageFeedback(record)); err != nil {
		return NewEngineError("RecordFeedback", err)
	}

	for _, id := range usedIDs {
		if err := c.store.RecordUsage(ctx, id); err != nil {
			c.logger.Warn("usage update failed",
				zap.Int64("memory_id", id),
				zap.Error(err))
		}
	}
	return nil
}

// Consolidate runs one consolidation sweep for an owner: cluster episodic
// memories, compress worthwhile clusters into semantic memories, then
// apply the retention policy.
func (c *Client) Consolidate(ctx context.Context, ownerID string) (*ConsolidationReport, error) {
	if err := c.checkOpen("Consolidate"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, NewEngineError("Consolidate", ErrInvalidOwner)
	}
	report, err := c.engine.Sweep(ctx, ownerID)
	if err != nil {
		return nil, NewEngineError("Consolidate", err)
	}
	return report, nil
}

// Retrain rebuilds the scoring model from the feedback log, falling back
// to synthetic self-supervision when no feedback exists yet. The new model
// replaces the old one atomically and is persisted when a model path is
// configured.
func (c *Client) Retrain(ctx context.Context) error {
	if err := c.checkOpen("Retrain"); err != nil {
		return err
	}

	records, err := c.store.ReadFeedback(ctx, c.config.Ranking.FeedbackLimit)
	if err != nil {
		return NewEngineError("Retrain", err)
	}
	feedback := make([]*FeedbackRecord, len(records))
	for i, r := range records {
		feedback[i] = fromStorageFeedback(r)
	}

	now := time.Now()
	samples := c.dataset.FromFeedback(ctx, feedback,
		func(ctx context.Context, id int64) (*Memory, error) {
			sm, err := c.store.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			return fromStorageMemory(sm), nil
		},
		c.embedder.Embed,
		now,
	)

	if len(samples) == 0 {
		stored, err := c.store.List(ctx, &storage.ListOptions{Limit: c.config.Retention.SweepLimit})
		if err != nil {
			return NewEngineError("Retrain", err)
		}
		memories := make([]*Memory, len(stored))
		for i, sm := range stored {
			memories[i] = fromStorageMemory(sm)
		}
		rng := rand.New(rand.NewSource(now.UnixNano()))
		samples = c.dataset.Synthetic(memories, 2, rng, now)
	}

	model := ranking.Train(samples, ranking.TrainConfig{
		HiddenDim:    c.config.Ranking.HiddenDim,
		Margin:       c.config.Ranking.Margin,
		LearningRate: c.config.Ranking.LearningRate,
		Epochs:       c.config.Ranking.Epochs,
		BatchSize:    c.config.Ranking.BatchSize,
	})
	c.collector.ObserveTraining(len(samples))

	if !model.Trained {
		c.logger.Info("no training data available, keeping current scoring model")
		return nil
	}

	c.model.Store(model)
	if c.config.Ranking.ModelPath != "" {
		if err := model.Save(c.config.Ranking.ModelPath); err != nil {
			c.logger.Warn("scoring model save failed",
				zap.String("path", c.config.Ranking.ModelPath),
				zap.Error(err))
		}
	}

	if err := c.updateUtilityScores(ctx, model, now); err != nil {
		c.logger.Warn("utility score refresh failed", zap.Error(err))
	}

	c.logger.Info("scoring model retrained", zap.Int("samples", len(samples)))
	return nil
}

// updateUtilityScores persists a model utility estimate on every memory,
// scoring each against itself as a proxy query. Retention reads these
// scores when weighing what to keep.
func (c *Client) updateUtilityScores(ctx context.Context, model *ranking.Model, now time.Time) error {
	stored, err := c.store.List(ctx, &storage.ListOptions{Limit: c.config.Retention.SweepLimit})
	if err != nil {
		return err
	}
	for _, sm := range stored {
		m := fromStorageMemory(sm)
		if len(m.Embedding) == 0 {
			continue
		}
		signals := ranking.MemorySignals(m.Embedding, m.Entities, m,
			c.config.Retention.DecayLambda, now, ranking.DetectIntent(m.Summary))
		utility := Clamp01(model.Score(ranking.Vector(signals)))
		sm.UtilityScore = &utility
		if err := c.store.Upsert(ctx, sm); err != nil {
			c.logger.Warn("utility score write failed",
				zap.Int64("memory_id", sm.ID),
				zap.Error(err))
		}
	}
	return nil
}

// RefreshCentrality recomputes pagerank and degree over the entity graph
// and caches the results in the store for the ranking stage.
func (c *Client) RefreshCentrality(ctx context.Context) error {
	if err := c.checkOpen("RefreshCentrality"); err != nil {
		return err
	}
	centrality := c.graph.Centrality()
	if len(centrality) == 0 {
		return nil
	}
	if err := c.store.WriteCentrality(ctx, centrality); err != nil {
		return NewEngineError("RefreshCentrality", err)
	}
	c.logger.Debug("centrality cache refreshed", zap.Int("memories", len(centrality)))
	return nil
}

// Owners returns up to limit distinct owner ids with stored memories.
func (c *Client) Owners(ctx context.Context, limit int) ([]string, error) {
	if err := c.checkOpen("Owners"); err != nil {
		return nil, err
	}
	owners, err := c.store.Owners(ctx, limit)
	if err != nil {
		return nil, NewEngineError("Owners", err)
	}
	return owners, nil
}

// Close stops the background scheduler and releases the store and
// provider connections. Close is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.scheduler != nil {
		c.scheduler.Stop()
	}

	var firstErr error
	if c.llm != nil {
		if err := c.llm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return NewEngineError("Close", firstErr)
	}
	return nil
}

// storeSearcher adapts storage.Store to retrieval.VectorSearcher.
type storeSearcher struct {
	store storage.Store
}

func (s *storeSearcher) SearchVectors(ctx context.Context, ownerID string, embedding []float64, k int) ([]retrieval.VectorMatch, error) {
	results, err := s.store.Search(ctx, embedding, &storage.SearchOptions{OwnerID: ownerID, Limit: k})
	if err != nil {
		return nil, err
	}
	matches := make([]retrieval.VectorMatch, len(results))
	for i, sm := range results {
		matches[i] = retrieval.VectorMatch{Memory: fromStorageMemory(sm), Score: sm.Score}
	}
	return matches, nil
}

// storeLoader adapts storage.Store to retrieval.MemoryLoader.
type storeLoader struct {
	store storage.Store
}

func (l *storeLoader) LoadMemory(ctx context.Context, id int64) (*Memory, error) {
	sm, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromStorageMemory(sm), nil
}

// storeCentrality adapts storage.Store to retrieval.CentralityReader.
type storeCentrality struct {
	store storage.Store
}

func (r *storeCentrality) ReadCentrality(ctx context.Context, ids []int64) (map[int64]Centrality, error) {
	cents, err := r.store.ReadCentrality(ctx, ids)
	if err != nil {
		return nil, err
	}
	return fromStorageCentrality(cents), nil
}

// storeMemories adapts storage.Store to retention.MemoryStore.
type storeMemories struct {
	store storage.Store
}

func (s *storeMemories) ListEpisodic(ctx context.Context, ownerID string, limit int) ([]*Memory, error) {
	return s.list(ctx, ownerID, string(KindEpisodic), limit)
}

func (s *storeMemories) ListAll(ctx context.Context, ownerID string, limit int) ([]*Memory, error) {
	return s.list(ctx, ownerID, "", limit)
}

func (s *storeMemories) list(ctx context.Context, ownerID, kind string, limit int) ([]*Memory, error) {
	stored, err := s.store.List(ctx, &storage.ListOptions{OwnerID: ownerID, Kind: kind, Limit: limit})
	if err != nil {
		return nil, err
	}
	memories := make([]*Memory, len(stored))
	for i, sm := range stored {
		memories[i] = fromStorageMemory(sm)
	}
	return memories, nil
}

func (s *storeMemories) Insert(ctx context.Context, m *Memory) error {
	return s.store.Upsert(ctx, toStorageMemory(m))
}

func (s *storeMemories) Remove(ctx context.Context, id int64) (bool, error) {
	return s.store.Delete(ctx, id)
}

// clientIndexer adapts the client's index maintenance to
// retention.Indexer.
type clientIndexer struct {
	client *Client
}

func (i *clientIndexer) IndexMemory(m *Memory) {
	i.client.indexMemory(m)
}

func (i *clientIndexer) RemoveMemory(id int64) {
	i.client.removeFromIndexes(id)
}
