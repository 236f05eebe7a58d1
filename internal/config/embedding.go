package config

import "time"

// EmbeddingConfig configures the vector embedding engine.
// Supports a local hashing engine, Ollama (local) and GenAI (cloud) backends.
type EmbeddingConfig struct {
	// Provider: "hash", "ollama" or "genai"
	Provider string `yaml:"provider" json:"provider"`

	// Ollama Configuration (local embedding server)
	OllamaEndpoint string `yaml:"ollama_endpoint" json:"ollama_endpoint"` // Default: "http://localhost:11434"
	OllamaModel    string `yaml:"ollama_model" json:"ollama_model"`       // Default: "embeddinggemma"

	// GenAI Configuration (Google cloud embedding)
	GenAIAPIKey string `yaml:"genai_api_key" json:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model" json:"genai_model"` // Default: "gemini-embedding-001"

	// TaskType for GenAI embeddings: SEMANTIC_SIMILARITY, RETRIEVAL_QUERY, ...
	TaskType string `yaml:"task_type" json:"task_type"`

	// Hash engine width (offline / tests)
	HashDimensions int `yaml:"hash_dimensions" json:"hash_dimensions"`

	// Memo cache and batching
	CacheSize int `yaml:"cache_size" json:"cache_size"` // Default: 4096 entries
	BatchSize int `yaml:"batch_size" json:"batch_size"` // Default: 32 texts per EmbedBatch

	// Weight of the vector component in the hybrid score; fuzzy gets 1-w.
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	Timeout string `yaml:"timeout" json:"timeout"`
}

// GetEmbeddingTimeout returns the per-call embedding timeout.
func (c *Config) GetEmbeddingTimeout() time.Duration {
	d, err := time.ParseDuration(c.Embedding.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
