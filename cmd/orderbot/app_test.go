package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceorder/internal/config"
	"voiceorder/internal/patterns"
)

func TestApp_PatternReloadClearsEmbeddingMemo(t *testing.T) {
	a := newMemoryApp(t)
	ctx := context.Background()

	_, _, err := a.service.ResolveText(ctx, "아메리카노 2개")
	require.NoError(t, err)
	require.NotZero(t, a.embeddings.Stats().Entries)

	_, err = a.patterns.Reload()
	require.NoError(t, err)
	assert.Zero(t, a.embeddings.Stats().Entries)

	lines, _, err := a.service.ResolveText(ctx, "아메리카노 2개")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "아메리카노", lines[0].MenuName)
}

func TestApp_DefaultQuantityFromConfig(t *testing.T) {
	ctx := context.Background()
	write := func(c *config.Config) {
		require.NoError(t, os.WriteFile(filepath.Join(c.Patterns.Dir, patterns.QuantityFile),
			[]byte(`{"default_quantity": 2}`), 0o644))
	}

	strict := newMemoryApp(t, write)
	_, _, err := strict.service.ResolveText(ctx, "아메리카노")
	assert.Error(t, err)

	lenient := newMemoryApp(t, write, func(c *config.Config) {
		c.Search.DefaultQuantityWhenMissing = true
	})
	lines, _, err := lenient.service.ResolveText(ctx, "아메리카노")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}
