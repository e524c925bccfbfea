package postgres

import (
	"database/sql"

	"github.com/memcore-ai/memcore-go/pkg/storage"
)

// rowScanner abstracts sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory scans a memory from a database row or rows.
func scanMemory(scanner rowScanner) (*storage.Memory, error) {
	var memory storage.Memory
	var embedding, entities, provenance string
	var lastUsed sql.NullTime
	var utility sql.NullFloat64

	err := scanner.Scan(
		&memory.ID,
		&memory.OwnerID,
		&memory.Kind,
		&memory.Summary,
		&memory.RawText,
		&embedding,
		&entities,
		&memory.Emotion,
		&memory.Importance,
		&memory.UsageCount,
		&memory.CreatedAt,
		&lastUsed,
		&utility,
		&provenance,
	)
	if err != nil {
		return nil, err
	}

	if memory.Embedding, err = storage.DecodeFloats(embedding); err != nil {
		return nil, err
	}
	if memory.Entities, err = storage.DecodeStrings(entities); err != nil {
		return nil, err
	}
	if memory.Provenance, err = storage.DecodeIDs(provenance); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		memory.LastUsed = &lastUsed.Time
	}
	if utility.Valid {
		memory.UtilityScore = &utility.Float64
	}
	return &memory, nil
}
