// Package similarity computes the hybrid score used to rank catalog
// candidates: a weighted blend of embedding cosine similarity and the best
// of three fuzzy string ratios.
package similarity

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"voiceorder/internal/embedding"
	"voiceorder/internal/fuzzy"
	"voiceorder/internal/logging"
)

// DefaultVectorWeight is the vector share of the final score.
const DefaultVectorWeight = 0.7

// Score is a hybrid similarity. All components lie in [0,1].
type Score struct {
	Final  float64
	Vector float64
	Fuzzy  float64
}

// Embedder is the slice of embedding.Cache the scorer needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Warm(ctx context.Context, texts []string) error
}

var _ Embedder = (*embedding.Cache)(nil)

// Scorer computes hybrid scores. It is safe for concurrent use.
type Scorer struct {
	embedder Embedder
	weight   func() float64
}

// NewScorer builds a scorer. weight is consulted on every call so a pattern
// reload can retune it; nil means DefaultVectorWeight.
func NewScorer(embedder Embedder, weight func() float64) *Scorer {
	if weight == nil {
		weight = func() float64 { return DefaultVectorWeight }
	}
	return &Scorer{embedder: embedder, weight: weight}
}

// Normalize case-folds and NFC-composes text; both sides of every
// comparison go through it. Casers carry state, so each call gets its own.
func (s *Scorer) Normalize(text string) string {
	return norm.NFC.String(cases.Fold().String(strings.TrimSpace(text)))
}

// Score compares a and b.
func (s *Scorer) Score(ctx context.Context, a, b string) (Score, error) {
	a, b = s.Normalize(a), s.Normalize(b)

	va, err := s.embedder.Embed(ctx, a)
	if err != nil {
		return Score{}, fmt.Errorf("embed %q: %w", a, err)
	}
	vb, err := s.embedder.Embed(ctx, b)
	if err != nil {
		return Score{}, fmt.Errorf("embed %q: %w", b, err)
	}
	cos, err := embedding.CosineSimilarity(va, vb)
	if err != nil {
		return Score{}, err
	}

	sc := Score{
		Vector: clamp01(cos),
		Fuzzy:  fuzzy.Best(a, b) / 100,
	}
	w := clamp01(s.weight())
	sc.Final = w*sc.Vector + (1-w)*sc.Fuzzy

	logging.SimilarityDebug("score(%q, %q) final=%.3f vector=%.3f fuzzy=%.3f", a, b, sc.Final, sc.Vector, sc.Fuzzy)
	return sc, nil
}

// ScoreAll scores query against every candidate, warming all embeddings in
// one batch first. Results are in candidate order.
func (s *Scorer) ScoreAll(ctx context.Context, query string, candidates []string) ([]Score, error) {
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, s.Normalize(query))
	for _, c := range candidates {
		texts = append(texts, s.Normalize(c))
	}
	if err := s.Warm(ctx, texts); err != nil {
		return nil, err
	}

	out := make([]Score, len(candidates))
	for i, c := range candidates {
		sc, err := s.Score(ctx, query, c)
		if err != nil {
			return nil, err
		}
		out[i] = sc
	}
	return out, nil
}

// Warm pre-embeds texts so a following resolution burst hits the memo.
func (s *Scorer) Warm(ctx context.Context, texts []string) error {
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = s.Normalize(t)
	}
	return s.embedder.Warm(ctx, normalized)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
