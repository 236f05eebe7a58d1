package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`   // Master toggle - false = no logging (production)
	Level      string          `yaml:"level" json:"level,omitempty"`             // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format" json:"json_format,omitempty"` // zap JSON encoder instead of console
	Dir        string          `yaml:"dir" json:"dir,omitempty"`                 // per-category files land here
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`   // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false (production mode).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
