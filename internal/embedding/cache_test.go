package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEngine struct {
	inner      *HashEngine
	embeds     atomic.Int64
	batches    atomic.Int64
	batchItems atomic.Int64
	fail       bool
}

func (c *countingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embeds.Add(1)
	if c.fail {
		return nil, errors.New("backend down")
	}
	return c.inner.Embed(ctx, text)
}

func (c *countingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches.Add(1)
	c.batchItems.Add(int64(len(texts)))
	if c.fail {
		return nil, errors.New("backend down")
	}
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEngine) Dimensions() int { return c.inner.Dimensions() }
func (c *countingEngine) Name() string    { return "counting" }

func TestCache_MemoizesCaseInsensitive(t *testing.T) {
	eng := &countingEngine{inner: NewHashEngine(32)}
	c, err := NewCache(eng, 16, 4)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := c.Embed(ctx, "Latte")
	require.NoError(t, err)
	b, err := c.Embed(ctx, "latte ")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.EqualValues(t, 1, eng.embeds.Load())
	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
}

func TestCache_ConcurrentMissesCollapse(t *testing.T) {
	eng := &countingEngine{inner: NewHashEngine(32)}
	c, err := NewCache(eng, 16, 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Embed(context.Background(), "카페라떼")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, eng.embeds.Load(), int64(16))
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestCache_WarmBatchesMisses(t *testing.T) {
	eng := &countingEngine{inner: NewHashEngine(32)}
	c, err := NewCache(eng, 64, 2)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Embed(ctx, "아메리카노")
	require.NoError(t, err)

	require.NoError(t, c.Warm(ctx, []string{"아메리카노", "카페라떼", "카푸치노", "카페라떼", "레몬에이드"}))
	assert.EqualValues(t, 3, eng.batchItems.Load(), "only unseen, deduplicated texts are sent")
	assert.EqualValues(t, 2, eng.batches.Load(), "3 misses in chunks of 2")

	before := eng.embeds.Load()
	_, err = c.Embed(ctx, "카푸치노")
	require.NoError(t, err)
	assert.Equal(t, before, eng.embeds.Load())
}

func TestCache_WarmPropagatesErrors(t *testing.T) {
	eng := &countingEngine{inner: NewHashEngine(8), fail: true}
	c, err := NewCache(eng, 8, 8)
	require.NoError(t, err)

	assert.Error(t, c.Warm(context.Background(), []string{"a", "b"}))
	_, err = c.Embed(context.Background(), "a")
	assert.Error(t, err)
	assert.Zero(t, c.Stats().Entries)
}

func TestCache_Invalidate(t *testing.T) {
	eng := &countingEngine{inner: NewHashEngine(8)}
	c, err := NewCache(eng, 8, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = c.Embed(ctx, "x")
	c.Invalidate()
	assert.Zero(t, c.Stats().Entries)
	_, _ = c.Embed(ctx, "x")
	assert.EqualValues(t, 2, eng.embeds.Load())
}

func TestCache_EmbedBatchPreservesOrder(t *testing.T) {
	eng := &countingEngine{inner: NewHashEngine(16)}
	c, err := NewCache(eng, 8, 8)
	require.NoError(t, err)
	ctx := context.Background()

	out, err := c.EmbedBatch(ctx, []string{"b", "a"})
	require.NoError(t, err)
	wantB, _ := eng.inner.Embed(ctx, "b")
	assert.Equal(t, wantB, out[0])
}

func TestNewCache_RequiresEngine(t *testing.T) {
	_, err := NewCache(nil, 1, 1)
	assert.Error(t, err)
}
