package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a MemCore client.
//
// It covers the embedding and LLM providers, the durable store, and the
// tuning knobs of the retrieval, ranking, and retention stages. Every knob
// has a sensible default; a minimal configuration only names the store and
// the embedder.
//
// Example:
//
//	config := &core.Config{
//	    Embedder: core.EmbedderConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	    },
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        Path:     "./memcore.db",
//	    },
//	}
type Config struct {
	// LLM configures the summarization provider. An empty provider
	// disables the LLM; consolidation then uses its deterministic
	// fallback summarizer.
	LLM LLMConfig `json:"llm" envPrefix:"LLM_"`

	// Embedder configures the embedding provider (required).
	Embedder EmbedderConfig `json:"embedder" envPrefix:"EMBEDDING_"`

	// Store configures the durable memory store.
	Store StoreConfig `json:"store" envPrefix:"STORE_"`

	// Retrieval tunes candidate fusion.
	Retrieval RetrievalConfig `json:"retrieval" envPrefix:"RETRIEVAL_"`

	// Ranking tunes the scoring model and its training.
	Ranking RankingConfig `json:"ranking" envPrefix:"RANKING_"`

	// Retention tunes the keep-or-forget policy and consolidation.
	Retention RetentionConfig `json:"retention" envPrefix:"RETENTION_"`

	// Jobs tunes the background maintenance schedule.
	Jobs JobsConfig `json:"jobs" envPrefix:"JOBS_"`
}

// LLMConfig contains configuration for the LLM provider.
type LLMConfig struct {
	// Provider is the LLM provider name. Supported: openai. Empty
	// disables LLM summarization.
	Provider string `json:"provider" env:"PROVIDER"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key" env:"API_KEY"`

	// Model is the model name, e.g. "gpt-4o-mini".
	Model string `json:"model" env:"MODEL"`

	// BaseURL overrides the provider's API address (optional).
	BaseURL string `json:"base_url,omitempty" env:"BASE_URL"`
}

// EmbedderConfig contains configuration for the embedding provider.
type EmbedderConfig struct {
	// Provider is the embedding provider name. Supported: openai.
	Provider string `json:"provider" env:"PROVIDER" envDefault:"openai"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key" env:"API_KEY"`

	// Model is the embedding model name.
	Model string `json:"model" env:"MODEL" envDefault:"text-embedding-3-small"`

	// BaseURL overrides the provider's API address (optional).
	BaseURL string `json:"base_url,omitempty" env:"BASE_URL"`

	// Dimensions is the embedding vector dimension.
	Dimensions int `json:"dimensions,omitempty" env:"DIMENSIONS" envDefault:"1536"`
}

// StoreConfig contains configuration for the durable store.
type StoreConfig struct {
	// Provider is the store backend name: sqlite, postgres, or mysql.
	Provider string `json:"provider" env:"PROVIDER" envDefault:"sqlite"`

	// Path is the database file path (sqlite only).
	Path string `json:"path,omitempty" env:"PATH" envDefault:"./memcore.db"`

	// DSN is the connection string (postgres and mysql).
	DSN string `json:"dsn,omitempty" env:"DSN"`
}

// RetrievalConfig tunes candidate fusion.
type RetrievalConfig struct {
	// VectorK is the vector-channel candidate count.
	VectorK int `json:"vector_k" env:"VECTOR_K" envDefault:"50"`

	// LexicalK is the lexical-channel candidate count.
	LexicalK int `json:"lexical_k" env:"LEXICAL_K" envDefault:"30"`

	// GraphDepth bounds entity-hop expansion.
	GraphDepth int `json:"graph_depth" env:"GRAPH_DEPTH" envDefault:"2"`

	// GraphTimeout bounds the graph channel per query.
	GraphTimeout time.Duration `json:"graph_timeout" env:"GRAPH_TIMEOUT" envDefault:"2500ms"`

	// MergeCap truncates the fused candidate set.
	MergeCap int `json:"merge_cap" env:"MERGE_CAP" envDefault:"100"`

	// RankTopN is how many ranked candidates reach the rerank stage.
	RankTopN int `json:"rank_top_n" env:"RANK_TOP_N" envDefault:"20"`

	// RerankTopK is the final result count.
	RerankTopK int `json:"rerank_top_k" env:"RERANK_TOP_K" envDefault:"5"`
}

// RankingConfig tunes the scoring model and its training.
type RankingConfig struct {
	// ModelPath is where trained weights are persisted. Empty keeps the
	// model in memory only.
	ModelPath string `json:"model_path,omitempty" env:"MODEL_PATH"`

	// HiddenDim is the hidden layer width.
	HiddenDim int `json:"hidden_dim" env:"HIDDEN_DIM" envDefault:"64"`

	// Margin is the pairwise ranking hinge margin.
	Margin float64 `json:"margin" env:"MARGIN" envDefault:"0.2"`

	// LearningRate is the SGD step size.
	LearningRate float64 `json:"learning_rate" env:"LEARNING_RATE" envDefault:"0.001"`

	// Epochs is the number of training passes.
	Epochs int `json:"epochs" env:"EPOCHS" envDefault:"10"`

	// BatchSize is the SGD minibatch size.
	BatchSize int `json:"batch_size" env:"BATCH_SIZE" envDefault:"32"`

	// FeedbackLimit caps how many feedback records one retrain reads.
	FeedbackLimit int `json:"feedback_limit" env:"FEEDBACK_LIMIT" envDefault:"5000"`
}

// RetentionConfig tunes the keep-or-forget policy and consolidation.
type RetentionConfig struct {
	// DecayLambda is the decay rate per day.
	DecayLambda float64 `json:"decay_lambda" env:"DECAY_LAMBDA" envDefault:"0.1"`

	// TauDelete is the deletion threshold.
	TauDelete float64 `json:"tau_delete" env:"TAU_DELETE" envDefault:"0.08"`

	// TauCompact is the compaction threshold (classification only).
	TauCompact float64 `json:"tau_compact" env:"TAU_COMPACT" envDefault:"0.2"`

	// DistanceThreshold is the clustering cosine-distance cutoff.
	DistanceThreshold float64 `json:"distance_threshold" env:"DISTANCE_THRESHOLD" envDefault:"0.35"`

	// MinClusterSize is the smallest cluster worth summarizing.
	MinClusterSize int `json:"min_cluster_size" env:"MIN_CLUSTER_SIZE" envDefault:"2"`

	// MaxSummaries caps semantic memories created per sweep.
	MaxSummaries int `json:"max_summaries" env:"MAX_SUMMARIES" envDefault:"50"`

	// ClusterUtilityThreshold is the minimum mean cluster utility to
	// summarize.
	ClusterUtilityThreshold float64 `json:"cluster_utility_threshold" env:"CLUSTER_UTILITY_THRESHOLD" envDefault:"0.15"`

	// SweepLimit caps how many memories one sweep loads per owner.
	SweepLimit int `json:"sweep_limit" env:"SWEEP_LIMIT" envDefault:"2000"`
}

// JobsConfig tunes the background maintenance schedule.
type JobsConfig struct {
	// Enabled starts the background scheduler with the client.
	Enabled bool `json:"enabled" env:"ENABLED" envDefault:"false"`

	// Interval is the period between maintenance runs (consolidation,
	// retraining, centrality refresh).
	Interval time.Duration `json:"interval" env:"INTERVAL" envDefault:"6h"`

	// OwnerLimit caps how many owners one maintenance run sweeps.
	OwnerLimit int `json:"owner_limit" env:"OWNER_LIMIT" envDefault:"1000"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for a .env file (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses MEMCORE_-prefixed variables into a Config
//
// Variables follow the struct layout, e.g. MEMCORE_STORE_PROVIDER,
// MEMCORE_EMBEDDING_API_KEY, MEMCORE_RETRIEVAL_VECTOR_K.
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	var config Config
	if err := env.ParseWithOptions(&config, env.Options{Prefix: "MEMCORE_"}); err != nil {
		return nil, NewEngineError("LoadConfigFromEnv", err)
	}
	return &config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file. Fields absent
// from the file keep their zero values; Validate applies defaults where a
// zero value has one.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewEngineError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewEngineError("LoadConfigFromJSON", err)
	}
	return &config, nil
}

// Validate validates the configuration.
//
// Checks that the embedder and store are usable and that the retention
// thresholds are ordered. Returns an error wrapping ErrInvalidConfig when
// validation fails.
func (c *Config) Validate() error {
	if c.Embedder.Provider == "" {
		return NewEngineError("Validate", ErrInvalidConfig)
	}
	switch c.Store.Provider {
	case "sqlite":
		if c.Store.Path == "" {
			return NewEngineError("Validate", ErrInvalidConfig)
		}
	case "postgres", "mysql":
		if c.Store.DSN == "" {
			return NewEngineError("Validate", ErrInvalidConfig)
		}
	default:
		return NewEngineError("Validate", ErrInvalidConfig)
	}
	if c.Retention.TauDelete > 0 && c.Retention.TauCompact > 0 &&
		c.Retention.TauDelete >= c.Retention.TauCompact {
		return NewEngineError("Validate", ErrInvalidConfig)
	}
	return nil
}

// FindEnvFile searches for a .env file.
//
// The search checks the current directory, then up to 5 directory levels
// up, and returns the first .env file found.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
