package core

import "time"

// AddOptions contains options for adding a memory.
type AddOptions struct {
	// Kind classifies the new memory. Defaults to KindEpisodic.
	Kind MemoryKind

	// RawText preserves the original text the summary came from.
	RawText string

	// Emotion attaches an emotion tag.
	Emotion string

	// Importance overrides the default importance of 0.5.
	Importance *float64

	// Entities overrides heuristic entity extraction.
	Entities []string

	// CreatedAt backdates the memory, for imports. Zero means now.
	CreatedAt time.Time
}

// AddOption is a function type for configuring Add.
type AddOption func(*AddOptions)

// WithKind sets the memory kind.
func WithKind(kind MemoryKind) AddOption {
	return func(opts *AddOptions) {
		opts.Kind = kind
	}
}

// WithRawText preserves the original text alongside the summary.
func WithRawText(raw string) AddOption {
	return func(opts *AddOptions) {
		opts.RawText = raw
	}
}

// WithEmotion attaches an emotion tag to the memory.
func WithEmotion(emotion string) AddOption {
	return func(opts *AddOptions) {
		opts.Emotion = emotion
	}
}

// WithImportance sets the ingestion-time importance, clamped to [0,1].
func WithImportance(importance float64) AddOption {
	return func(opts *AddOptions) {
		v := Clamp01(importance)
		opts.Importance = &v
	}
}

// WithEntities overrides heuristic entity extraction with explicit names.
func WithEntities(entities []string) AddOption {
	return func(opts *AddOptions) {
		opts.Entities = entities
	}
}

// WithCreatedAt backdates the memory, for imports.
func WithCreatedAt(t time.Time) AddOption {
	return func(opts *AddOptions) {
		opts.CreatedAt = t
	}
}

// QueryOptions contains options for Query.
type QueryOptions struct {
	// TopK caps the result count. The effective count never exceeds the
	// configured rerank top-k.
	TopK int
}

// QueryOption is a function type for configuring Query.
type QueryOption func(*QueryOptions)

// WithTopK caps the number of results returned.
func WithTopK(k int) QueryOption {
	return func(opts *QueryOptions) {
		opts.TopK = k
	}
}

// CorrectOptions contains options for Correct.
type CorrectOptions struct {
	// Summary replaces the memory's summary when non-nil. The embedding
	// and lexical index entry are rebuilt from the new text.
	Summary *string

	// Importance replaces the memory's importance when non-nil.
	Importance *float64
}

// CorrectOption is a function type for configuring Correct.
type CorrectOption func(*CorrectOptions)

// WithCorrectedSummary replaces the memory's summary.
func WithCorrectedSummary(summary string) CorrectOption {
	return func(opts *CorrectOptions) {
		opts.Summary = &summary
	}
}

// WithCorrectedImportance replaces the memory's importance, clamped to
// [0,1].
func WithCorrectedImportance(importance float64) CorrectOption {
	return func(opts *CorrectOptions) {
		v := Clamp01(importance)
		opts.Importance = &v
	}
}
