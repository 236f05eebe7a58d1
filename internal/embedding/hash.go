package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEngine embeds text by hashing character n-grams (1 to 3 runes) into a
// fixed-width signed vector. It needs no model or network, so it backs
// offline runs and tests. Identical text always maps to the identical vector.
type HashEngine struct {
	dims int
}

// NewHashEngine creates a hashing engine; dims <= 0 selects 256.
func NewHashEngine(dims int) *HashEngine {
	if dims <= 0 {
		dims = 256
	}
	return &HashEngine{dims: dims}
}

// Embed generates an L2-normalised vector for text.
func (e *HashEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, e.dims)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) {
		runes := []rune(" " + word + " ")
		for n := 1; n <= 3; n++ {
			weight := float64(n)
			for i := 0; i+n <= len(runes); i++ {
				gram := string(runes[i : i+n])
				if strings.TrimSpace(gram) == "" {
					continue
				}
				h := fnv.New64a()
				_, _ = h.Write([]byte(gram))
				sum := h.Sum64()
				idx := int(sum % uint64(e.dims))
				if sum>>63 == 1 {
					vec[idx] -= weight
				} else {
					vec[idx] += weight
				}
			}
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch embeds each text in order.
func (e *HashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the vector width.
func (e *HashEngine) Dimensions() int { return e.dims }

// Name returns the engine name.
func (e *HashEngine) Name() string { return fmt.Sprintf("hash:%d", e.dims) }
