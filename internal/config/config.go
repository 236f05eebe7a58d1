package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all orderbot configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Embedding engine and memo cache
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Storage backends
	Store StoreConfig `yaml:"store"`

	// Conversation session lifetime
	Session SessionConfig `yaml:"session"`

	// Locale pattern files
	Patterns PatternsConfig `yaml:"patterns"`

	// Catalog search parameters
	Search SearchConfig `yaml:"search"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "orderbot",
		Version: "0.4.0",

		Embedding: EmbeddingConfig{
			Provider:       "hash",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
			HashDimensions: 256,
			CacheSize:      4096,
			BatchSize:      32,
			VectorWeight:   0.7,
			Timeout:        "30s",
		},

		Store: StoreConfig{
			SessionBackend: "sqlite",
			DatabasePath:   "data/orderbot.db",
			RedisURL:       "redis://localhost:6379/0",
		},

		Session: SessionConfig{
			TTL:          "30m",
			CompletedTTL: "5m",
			MaxRetries:   3,
		},

		Patterns: PatternsConfig{
			Dir:   "config",
			Watch: false,
		},

		Search: SearchConfig{
			MenuTopK:       5,
			MenuScoreFloor: 0.2,
			PackagingTopK:  3,
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
			Dir:       "logs",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
	}
	if p := os.Getenv("ORDERBOT_EMBEDDING_PROVIDER"); p != "" {
		c.Embedding.Provider = p
	}
	if url := os.Getenv("OLLAMA_HOST"); url != "" {
		c.Embedding.OllamaEndpoint = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		c.Store.RedisURL = url
	}
	if b := os.Getenv("ORDERBOT_SESSION_BACKEND"); b != "" {
		c.Store.SessionBackend = b
	}
	if path := os.Getenv("ORDERBOT_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if dir := os.Getenv("ORDERBOT_PATTERNS_DIR"); dir != "" {
		c.Patterns.Dir = dir
	}
	if w := os.Getenv("ORDERBOT_VECTOR_WEIGHT"); w != "" {
		if f, err := strconv.ParseFloat(w, 64); err == nil {
			c.Embedding.VectorWeight = f
		}
	}
	if v := os.Getenv("ORDERBOT_DEFAULT_QUANTITY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.DefaultQuantityWhenMissing = b
		}
	}
	if os.Getenv("ORDERBOT_DEBUG") == "1" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// ValidProviders lists all supported embedding providers.
var ValidProviders = []string{"hash", "ollama", "genai"}

// ValidSessionBackends lists all supported session stores.
var ValidSessionBackends = []string{"sqlite", "redis", "memory"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidProviders, c.Embedding.Provider) {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", c.Embedding.Provider, ValidProviders)
	}
	if c.Embedding.Provider == "genai" && c.Embedding.GenAIAPIKey == "" {
		return fmt.Errorf("GenAI API key not configured (set GEMINI_API_KEY)")
	}
	if !contains(ValidSessionBackends, c.Store.SessionBackend) {
		return fmt.Errorf("invalid session backend: %s (valid: %v)", c.Store.SessionBackend, ValidSessionBackends)
	}
	if c.Embedding.VectorWeight < 0 || c.Embedding.VectorWeight > 1 {
		return fmt.Errorf("vector_weight must be within [0,1], got %v", c.Embedding.VectorWeight)
	}
	switch c.Search.PackagingFallback {
	case "", "takeout", "dine_in":
	default:
		return fmt.Errorf("invalid packaging_fallback: %q", c.Search.PackagingFallback)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
