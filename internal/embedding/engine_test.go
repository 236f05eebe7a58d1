package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Zero(t, sim)

	_, err = CosineSimilarity([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}

func TestFindTopK(t *testing.T) {
	corpus := [][]float32{{0, 1}, {1, 0}, {1, 1}, {1}}
	res := FindTopK([]float32{1, 0}, corpus, 2)
	require.Len(t, res, 2)
	assert.Equal(t, 1, res[0].Index)
	assert.Equal(t, 2, res[1].Index)
}

func TestNewEngine(t *testing.T) {
	eng, err := NewEngine(Config{Provider: "hash", HashDimensions: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, eng.Dimensions())
	assert.Equal(t, "hash:64", eng.Name())

	_, err = NewEngine(Config{Provider: "bert"})
	assert.Error(t, err)

	_, err = NewEngine(Config{Provider: "genai"})
	assert.Error(t, err, "genai requires an API key")
}

func TestHashEngine_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewHashEngine(128)

	a, err := e.Embed(ctx, "아메리카노")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "아메리카노")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	same, _ := CosineSimilarity(a, b)
	assert.InDelta(t, 1.0, same, 1e-6)

	near, _ := e.Embed(ctx, "아메리카노 라지")
	far, _ := e.Embed(ctx, "치즈케이크")
	simNear, _ := CosineSimilarity(a, near)
	simFar, _ := CosineSimilarity(a, far)
	assert.Greater(t, simNear, simFar)
}

func TestHashEngine_EmptyText(t *testing.T) {
	v, err := NewHashEngine(0).Embed(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, v, 256)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestHashEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEngine(8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
