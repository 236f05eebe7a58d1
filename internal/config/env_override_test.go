package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("GEMINI_API_KEY fills the genai key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "g-key", cfg.Embedding.GenAIAPIKey)
		assert.Empty(t, cfg.Embedding.Provider)
	})

	t.Run("provider and backends", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERBOT_EMBEDDING_PROVIDER", "ollama")
		t.Setenv("OLLAMA_HOST", "http://gpu:11434")
		t.Setenv("ORDERBOT_SESSION_BACKEND", "redis")
		t.Setenv("REDIS_URL", "redis://cache:6379/2")
		t.Setenv("ORDERBOT_DB", "/tmp/o.db")
		t.Setenv("ORDERBOT_PATTERNS_DIR", "/etc/orderbot")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "ollama", cfg.Embedding.Provider)
		assert.Equal(t, "http://gpu:11434", cfg.Embedding.OllamaEndpoint)
		assert.Equal(t, "redis", cfg.Store.SessionBackend)
		assert.Equal(t, "redis://cache:6379/2", cfg.Store.RedisURL)
		assert.Equal(t, "/tmp/o.db", cfg.Store.DatabasePath)
		assert.Equal(t, "/etc/orderbot", cfg.Patterns.Dir)
	})

	t.Run("vector weight ignores garbage", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERBOT_VECTOR_WEIGHT", "heavy")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.InDelta(t, 0.7, cfg.Embedding.VectorWeight, 1e-9)

		t.Setenv("ORDERBOT_VECTOR_WEIGHT", "0.5")
		cfg.applyEnvOverrides()
		assert.InDelta(t, 0.5, cfg.Embedding.VectorWeight, 1e-9)
	})

	t.Run("default quantity switch", func(t *testing.T) {
		clearEnv(t)
		cfg := DefaultConfig()
		assert.False(t, cfg.Search.DefaultQuantityWhenMissing)

		t.Setenv("ORDERBOT_DEFAULT_QUANTITY", "true")
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Search.DefaultQuantityWhenMissing)

		t.Setenv("ORDERBOT_DEFAULT_QUANTITY", "maybe")
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Search.DefaultQuantityWhenMissing)
	})

	t.Run("debug switch", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERBOT_DEBUG", "1")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Logging.DebugMode)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}
