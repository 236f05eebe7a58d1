package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"voiceorder/internal/logging"
)

// Cache memoizes embeddings by lower-cased text in a bounded LRU. Concurrent
// misses for the same key share one engine call. Cache itself satisfies
// EmbeddingEngine so it can be handed to anything expecting an engine.
type Cache struct {
	engine    EmbeddingEngine
	memo      *lru.Cache[string, []float32]
	group     singleflight.Group
	batchSize int

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports memo effectiveness.
type CacheStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// NewCache wraps engine with a memo of at most size entries.
// batchSize bounds how many texts Warm sends per EmbedBatch call.
func NewCache(engine EmbeddingEngine, size, batchSize int) (*Cache, error) {
	if engine == nil {
		return nil, fmt.Errorf("embedding engine is required")
	}
	if size <= 0 {
		size = 4096
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	memo, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding memo: %w", err)
	}
	return &Cache{engine: engine, memo: memo, batchSize: batchSize}, nil
}

func cacheKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Embed returns the memoized embedding for text, computing it on a miss.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := c.memo.Get(key); ok {
		c.hits.Add(1)
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.memo.Get(key); ok {
			return v, nil
		}
		c.misses.Add(1)
		vec, err := c.engine.Embed(ctx, key)
		if err != nil {
			return nil, err
		}
		c.memo.Add(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", key, err)
	}
	return v.([]float32), nil
}

// EmbedBatch returns embeddings for texts, warming misses first.
func (c *Cache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.Warm(ctx, texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Warm batch-embeds every text not already memoized. Chunks of batchSize run
// concurrently; the first failure cancels the rest.
func (c *Cache) Warm(ctx context.Context, texts []string) error {
	seen := make(map[string]bool, len(texts))
	var missing []string
	for _, t := range texts {
		key := cacheKey(t)
		if seen[key] || c.memo.Contains(key) {
			continue
		}
		seen[key] = true
		missing = append(missing, key)
	}
	if len(missing) == 0 {
		return nil
	}

	timer := logging.StartTimer(logging.CategoryEmbedding, "Warm")
	defer timer.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for start := 0; start < len(missing); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		chunk := missing[start:end]
		g.Go(func() error {
			vecs, err := c.engine.EmbedBatch(gctx, chunk)
			if err != nil {
				return fmt.Errorf("warm batch of %d: %w", len(chunk), err)
			}
			if len(vecs) != len(chunk) {
				return fmt.Errorf("engine returned %d vectors for %d texts", len(vecs), len(chunk))
			}
			for i, key := range chunk {
				c.memo.Add(key, vecs[i])
			}
			c.misses.Add(int64(len(chunk)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.EmbeddingWarn("warm-up failed: %v", err)
		return err
	}
	logging.EmbeddingDebug("warmed %d embeddings", len(missing))
	return nil
}

// Invalidate drops every memoized embedding.
func (c *Cache) Invalidate() {
	c.memo.Purge()
}

// Stats returns a snapshot of memo counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Entries: c.memo.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Dimensions returns the wrapped engine's dimensionality.
func (c *Cache) Dimensions() int { return c.engine.Dimensions() }

// Name returns the wrapped engine's name.
func (c *Cache) Name() string { return c.engine.Name() }
