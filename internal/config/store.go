package config

import "time"

// StoreConfig configures persistence.
type StoreConfig struct {
	// SessionBackend: sqlite, redis, memory
	SessionBackend string `yaml:"session_backend"`

	// SQLite database holding the catalog index, sessions and ledger
	DatabasePath string `yaml:"database_path"`

	// Redis connection URL (redis://host:6379/0)
	RedisURL string `yaml:"redis_url"`
}

// SessionConfig configures session lifetimes.
type SessionConfig struct {
	TTL          string `yaml:"ttl"`
	CompletedTTL string `yaml:"completed_ttl"`
	MaxRetries   int    `yaml:"max_retries"` // CAS retries per mutation
}

// PatternsConfig locates the locale pattern files.
type PatternsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// SearchConfig configures index lookups.
type SearchConfig struct {
	MenuTopK          int     `yaml:"menu_top_k"`
	MenuScoreFloor    float64 `yaml:"menu_score_floor"`
	PackagingTopK     int     `yaml:"packaging_top_k"`
	PackagingFallback string  `yaml:"packaging_fallback"` // "" keeps unresolved, or takeout/dine_in

	// DefaultQuantityWhenMissing accepts items named without a quantity,
	// ordering the pattern files' default_quantity.
	DefaultQuantityWhenMissing bool `yaml:"default_quantity_when_missing"`
}

// GetSessionTTL returns the session TTL as a duration.
func (c *Config) GetSessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// GetCompletedTTL returns how long a finalized session stays readable.
func (c *Config) GetCompletedTTL() time.Duration {
	d, err := time.ParseDuration(c.Session.CompletedTTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
