// Package sqlite provides the SQLite memory store.
//
// SQLite is a lightweight, file-based database suitable for local
// development and single-process deployments. Vectors are stored as JSON
// strings in TEXT fields, and similarity search uses in-memory cosine
// similarity calculation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/memcore-ai/memcore-go/pkg/storage"
)

// Client implements storage.Store using SQLite as the backend.
type Client struct {
	db *sql.DB
}

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewClient creates a new SQLite store client.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{db: db}
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY,
			owner_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			summary TEXT NOT NULL,
			raw_text TEXT NOT NULL DEFAULT '',
			embedding TEXT NOT NULL,
			entities TEXT NOT NULL DEFAULT '[]',
			emotion TEXT NOT NULL DEFAULT '',
			importance REAL NOT NULL DEFAULT 0.5,
			usage_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			last_used DATETIME,
			utility_score REAL,
			provenance TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_owner_kind ON memories(owner_id, kind)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			query TEXT NOT NULL,
			retrieved_ids TEXT NOT NULL DEFAULT '[]',
			used_ids TEXT NOT NULL DEFAULT '[]',
			reward REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at)`,
		`CREATE TABLE IF NOT EXISTS centrality (
			memory_id INTEGER PRIMARY KEY,
			pagerank REAL NOT NULL DEFAULT 0,
			degree INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces a memory.
func (c *Client) Upsert(ctx context.Context, memory *storage.Memory) error {
	embedding, err := storage.EncodeFloats(memory.Embedding)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	entities, err := storage.EncodeStrings(memory.Entities)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	provenance, err := storage.EncodeIDs(memory.Provenance)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	createdAt := memory.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO memories
		(id, owner_id, kind, summary, raw_text, embedding, entities, emotion,
		 importance, usage_count, created_at, last_used, utility_score, provenance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			summary = excluded.summary,
			raw_text = excluded.raw_text,
			embedding = excluded.embedding,
			entities = excluded.entities,
			emotion = excluded.emotion,
			importance = excluded.importance,
			usage_count = excluded.usage_count,
			last_used = excluded.last_used,
			utility_score = excluded.utility_score,
			provenance = excluded.provenance
	`
	_, err = c.db.ExecContext(ctx, query,
		memory.ID,
		memory.OwnerID,
		memory.Kind,
		memory.Summary,
		memory.RawText,
		embedding,
		entities,
		memory.Emotion,
		memory.Importance,
		memory.UsageCount,
		createdAt,
		memory.LastUsed,
		memory.UtilityScore,
		provenance,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

const memoryColumns = `id, owner_id, kind, summary, raw_text, embedding, entities, emotion,
	importance, usage_count, created_at, last_used, utility_score, provenance`

// Get retrieves a memory by id. Returns nil and no error when the memory
// does not exist.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Memory, error) {
	query := fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, memoryColumns)
	row := c.db.QueryRowContext(ctx, query, id)

	memory, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return memory, nil
}

// List returns memories for an owner, newest first.
func (c *Client) List(ctx context.Context, opts *storage.ListOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}

	var conditions []string
	var args []interface{}
	if opts.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM memories %s ORDER BY created_at DESC, id DESC`, memoryColumns, whereClause)
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		memories = append(memories, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return memories, nil
}

// Delete removes a memory by id, along with its cached centrality.
func (c *Client) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM centrality WHERE memory_id = ?`, id); err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	return affected > 0, nil
}

// RecordUsage increments the usage count and sets last_used to now.
func (c *Client) RecordUsage(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE memories SET usage_count = usage_count + 1, last_used = ? WHERE id = ?`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("RecordUsage: %w", err)
	}
	return nil
}

// UpdateFields patches summary and/or importance. Nil fields are left
// unchanged.
func (c *Client) UpdateFields(ctx context.Context, id int64, summary *string, importance *float64) (bool, error) {
	var sets []string
	var args []interface{}
	if summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, *summary)
	}
	if importance != nil {
		sets = append(sets, "importance = ?")
		args = append(args, *importance)
	}
	if len(sets) == 0 {
		row := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM memories WHERE id = ?`, id)
		var n int
		if err := row.Scan(&n); err != nil {
			return false, fmt.Errorf("UpdateFields: %w", err)
		}
		return n > 0, nil
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE memories SET %s WHERE id = ?`, strings.Join(sets, ", "))
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("UpdateFields: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("UpdateFields: %w", err)
	}
	return affected > 0, nil
}

// Search performs vector similarity search using cosine similarity.
//
// SQLite has no native vector operations, so similarity is calculated in
// memory after loading the owner's rows.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.SearchOptions{}
	}

	var conditions []string
	var args []interface{}
	if opts.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM memories %s ORDER BY id`, memoryColumns, whereClause)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		score := storage.CosineSimilarity(embedding, memory.Embedding)
		memory.Score = score
		if score >= opts.MinScore {
			memories = append(memories, memory)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}

	return storage.SortByScore(memories, opts.Limit), nil
}

// Owners returns up to limit distinct owner ids that have memories.
func (c *Client) Owners(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT DISTINCT owner_id FROM memories ORDER BY owner_id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Owners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("Owners: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Owners: %w", err)
	}
	return owners, nil
}

// AppendFeedback appends a feedback record.
func (c *Client) AppendFeedback(ctx context.Context, record *storage.FeedbackRecord) error {
	retrieved, err := storage.EncodeIDs(record.RetrievedIDs)
	if err != nil {
		return fmt.Errorf("AppendFeedback: %w", err)
	}
	used, err := storage.EncodeIDs(record.UsedIDs)
	if err != nil {
		return fmt.Errorf("AppendFeedback: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO feedback (id, owner_id, query, retrieved_ids, used_ids, reward, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.OwnerID, record.Query, retrieved, used, record.Reward, createdAt)
	if err != nil {
		return fmt.Errorf("AppendFeedback: %w", err)
	}
	return nil
}

// ReadFeedback returns up to limit feedback records, newest first.
func (c *Client) ReadFeedback(ctx context.Context, limit int) ([]*storage.FeedbackRecord, error) {
	query := `
		SELECT id, owner_id, query, retrieved_ids, used_ids, reward, created_at
		FROM feedback ORDER BY created_at DESC, id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReadFeedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.FeedbackRecord
	for rows.Next() {
		var record storage.FeedbackRecord
		var retrieved, used string
		if err := rows.Scan(&record.ID, &record.OwnerID, &record.Query, &retrieved, &used, &record.Reward, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("ReadFeedback: %w", err)
		}
		if record.RetrievedIDs, err = storage.DecodeIDs(retrieved); err != nil {
			return nil, fmt.Errorf("ReadFeedback: %w", err)
		}
		if record.UsedIDs, err = storage.DecodeIDs(used); err != nil {
			return nil, fmt.Errorf("ReadFeedback: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReadFeedback: %w", err)
	}
	return records, nil
}

// ReadCentrality returns the cached centrality for the given ids.
func (c *Client) ReadCentrality(ctx context.Context, ids []int64) (map[int64]storage.Centrality, error) {
	out := make(map[int64]storage.Centrality, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT memory_id, pagerank, degree FROM centrality WHERE memory_id IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReadCentrality: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var cent storage.Centrality
		if err := rows.Scan(&id, &cent.Pagerank, &cent.Degree); err != nil {
			return nil, fmt.Errorf("ReadCentrality: %w", err)
		}
		out[id] = cent
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReadCentrality: %w", err)
	}
	return out, nil
}

// WriteCentrality replaces the cached centrality for the given ids.
func (c *Client) WriteCentrality(ctx context.Context, metrics map[int64]storage.Centrality) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WriteCentrality: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO centrality (memory_id, pagerank, degree) VALUES (?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET pagerank = excluded.pagerank, degree = excluded.degree
	`)
	if err != nil {
		return fmt.Errorf("WriteCentrality: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for id, cent := range metrics {
		if _, err := stmt.ExecContext(ctx, id, cent.Pagerank, cent.Degree); err != nil {
			return fmt.Errorf("WriteCentrality: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("WriteCentrality: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
