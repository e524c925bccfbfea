// Package storage provides interfaces and types for durable memory stores.
//
// It defines the Store interface that all storage implementations must
// satisfy, along with the storage-side memory type and per-operation
// option structs.
package storage

import (
	"context"
	"time"
)

// Memory represents a memory row as persisted by a store.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. It mirrors the core.Memory structure.
type Memory struct {
	// ID is the unique identifier of the memory.
	ID int64

	// OwnerID identifies the user who owns this memory.
	OwnerID string

	// Kind is the memory kind (episodic, semantic, procedural).
	Kind string

	// Summary is the ranking and indexing text of the memory.
	Summary string

	// RawText is the original text the memory was extracted from.
	RawText string

	// Embedding is the vector embedding for similarity search.
	Embedding []float64

	// Entities are the entity names mentioned by the memory.
	Entities []string

	// Emotion is the optional emotion tag.
	Emotion string

	// Importance is the ingestion-time importance in [0,1].
	Importance float64

	// UsageCount is how many times the memory answered a query.
	UsageCount int

	// CreatedAt is when the memory was created.
	CreatedAt time.Time

	// LastUsed is when the memory last answered a query (nil if never).
	LastUsed *time.Time

	// UtilityScore is the learned utility estimate (nil if unscored).
	UtilityScore *float64

	// Provenance lists source memory ids for consolidated memories.
	Provenance []int64

	// Score is the similarity score from search operations.
	Score float64
}

// FeedbackRecord is the storage-side mirror of core.FeedbackRecord.
type FeedbackRecord struct {
	// ID is the unique identifier of the record.
	ID string

	// OwnerID identifies the user the query belonged to.
	OwnerID string

	// Query is the original query text.
	Query string

	// RetrievedIDs are the memory ids the ranking returned.
	RetrievedIDs []int64

	// UsedIDs are the memory ids that contributed to the response.
	UsedIDs []int64

	// Reward is the downstream reward in [0,1].
	Reward float64

	// CreatedAt is when the record was appended.
	CreatedAt time.Time
}

// Centrality is the cached graph signal (pagerank, degree) for a memory.
type Centrality struct {
	// Pagerank is the PageRank score of the memory node.
	Pagerank float64

	// Degree is the relationship count of the memory node.
	Degree int
}

// Store defines the interface for durable memory stores.
//
// All storage implementations (SQLite, PostgreSQL, MySQL) must implement
// this interface. Writes are single-record upserts and deletes; no
// implementation provides cross-record transactions, so callers must
// tolerate partial completion of multi-record sweeps.
type Store interface {
	// Upsert inserts or replaces a memory. Mutable fields (summary,
	// importance, embedding, usage, utility score) are overwritten;
	// identity fields (id, owner) never change.
	Upsert(ctx context.Context, memory *Memory) error

	// Get retrieves a memory by id. Returns nil and no error when the
	// memory does not exist.
	Get(ctx context.Context, id int64) (*Memory, error)

	// List returns memories for an owner, newest first, optionally
	// filtered by kind, bounded by opts.Limit.
	List(ctx context.Context, opts *ListOptions) ([]*Memory, error)

	// Delete removes a memory by id. Returns true when a row was deleted.
	Delete(ctx context.Context, id int64) (bool, error)

	// RecordUsage increments the usage count and sets last_used to now.
	RecordUsage(ctx context.Context, id int64) error

	// UpdateFields patches summary and/or importance (correction path).
	// Nil fields are left unchanged. Returns true when a row was updated.
	UpdateFields(ctx context.Context, id int64, summary *string, importance *float64) (bool, error)

	// Search performs vector similarity search over stored embeddings.
	// Results are sorted by similarity, highest first.
	Search(ctx context.Context, embedding []float64, opts *SearchOptions) ([]*Memory, error)

	// Owners returns up to limit distinct owner ids that have memories.
	Owners(ctx context.Context, limit int) ([]string, error)

	// AppendFeedback appends a feedback record. Records are append-only.
	AppendFeedback(ctx context.Context, record *FeedbackRecord) error

	// ReadFeedback returns up to limit feedback records, newest first.
	ReadFeedback(ctx context.Context, limit int) ([]*FeedbackRecord, error)

	// ReadCentrality returns the cached centrality for the given ids.
	// Missing ids are simply absent from the result map.
	ReadCentrality(ctx context.Context, ids []int64) (map[int64]Centrality, error)

	// WriteCentrality replaces the cached centrality for the given ids.
	WriteCentrality(ctx context.Context, metrics map[int64]Centrality) error

	// Close closes the store and releases resources.
	Close() error
}

// ListOptions contains options for List operations.
type ListOptions struct {
	// OwnerID filters results to a specific owner.
	OwnerID string

	// Kind filters results to a specific memory kind. Empty matches all.
	Kind string

	// Limit sets the maximum number of results to return.
	Limit int
}

// SearchOptions contains options for similarity search operations.
type SearchOptions struct {
	// OwnerID filters results to a specific owner. Empty matches all.
	OwnerID string

	// Kind filters results to a specific memory kind. Empty matches all.
	Kind string

	// Limit sets the maximum number of results to return.
	Limit int

	// MinScore sets the minimum similarity score for results.
	MinScore float64
}
