package patterns

import (
	"fmt"
	"sync"
	"sync/atomic"

	"voiceorder/internal/logging"
)

// Cache holds the current Snapshot. Readers call Current and never lock;
// Reload builds a new snapshot off to the side and swaps it in atomically.
type Cache struct {
	dir     string
	current atomic.Pointer[Snapshot]

	mu        sync.Mutex // serializes reloads and listener changes
	listeners []func(*Snapshot)
	reloads   atomic.Int64
}

// NewCache loads dir and compiles the first snapshot. An empty dir uses the
// built-in defaults.
func NewCache(dir string) (*Cache, error) {
	c := &Cache{dir: dir}
	if _, err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewStaticCache wraps an already-built config; Reload re-compiles it as-is.
func NewStaticCache(cfg *Config) (*Cache, error) {
	snap, err := Compile(cfg)
	if err != nil {
		return nil, err
	}
	c := &Cache{}
	c.current.Store(snap)
	return c, nil
}

// Current returns the active snapshot.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// Dir returns the directory the cache loads from.
func (c *Cache) Dir() string { return c.dir }

// Reloads returns how many successful reloads have happened.
func (c *Cache) Reloads() int64 { return c.reloads.Load() }

// OnReload registers fn to run after each successful swap.
func (c *Cache) OnReload(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Reload re-reads the pattern files and swaps in a fresh snapshot. Files
// that are missing or malformed fall back to defaults; see the report.
func (c *Cache) Reload() (*LoadReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cfg *Config
	var report *LoadReport
	if c.dir == "" && c.current.Load() != nil {
		cfg = c.current.Load().Config
		report = &LoadReport{Sources: map[string]string{}}
	} else {
		cfg, report = Load(c.dir)
	}
	for _, w := range report.Warnings {
		logging.PatternsWarn("pattern load: %v", w)
	}

	snap, err := Compile(cfg)
	if err != nil {
		return report, fmt.Errorf("compile patterns: %w", err)
	}
	c.current.Store(snap)
	c.reloads.Add(1)
	logging.Patterns("pattern snapshot loaded from %q: %d numerals, %d units, %d separators, unit_required=%v",
		c.dir, len(cfg.Numerals), len(cfg.Units), len(cfg.Separators), cfg.UnitRequired)

	for _, fn := range c.listeners {
		fn(snap)
	}
	return report, nil
}
