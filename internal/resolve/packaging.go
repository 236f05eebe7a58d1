package resolve

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"voiceorder/internal/catalog"
	"voiceorder/internal/logging"
	"voiceorder/internal/patterns"
	"voiceorder/internal/similarity"
)

// PackagingMethod records how a packaging choice was reached.
type PackagingMethod string

const (
	MethodKeyword PackagingMethod = "keyword"
	MethodVector  PackagingMethod = "vector"
	MethodNone    PackagingMethod = "none"
)

// PackagingMatch is the tagged result of a packaging resolution.
type PackagingMatch struct {
	Outcome Outcome
	Type    catalog.PackagingType
	Method  PackagingMethod
	Keyword string  // matched keyword for MethodKeyword
	Phrase  string  // matched index phrase for MethodVector
	Score   float64 // 1.0 for keywords
	Cause   error
}

// OK reports whether packaging resolved.
func (m PackagingMatch) OK() bool { return m.Outcome == Resolved }

// OrDefault returns the resolved type, or def when unresolved. Callers that
// prefer a re-prompt check OK instead.
func (m PackagingMatch) OrDefault(def catalog.PackagingType) catalog.PackagingType {
	if m.Outcome == Resolved {
		return m.Type
	}
	return def
}

// PackagingResolver turns free text into takeout or dine-in.
type PackagingResolver struct {
	patterns *patterns.Cache
	index    catalog.Searcher
	embedder Embedder
	scorer   *similarity.Scorer
	topK     int
}

// NewPackagingResolver wires a resolver over index. topK <= 0 means 3.
func NewPackagingResolver(pc *patterns.Cache, index catalog.Searcher, embedder Embedder, scorer *similarity.Scorer, topK int) *PackagingResolver {
	if topK <= 0 {
		topK = 3
	}
	return &PackagingResolver{patterns: pc, index: index, embedder: embedder, scorer: scorer, topK: topK}
}

// Resolve checks takeout keywords, then dine-in keywords, then falls back to
// the packaging phrase index.
func (r *PackagingResolver) Resolve(ctx context.Context, text string) PackagingMatch {
	cfg := r.patterns.Current().Config
	if typ, kw, ok := matchKeyword(cfg, text); ok {
		logging.ResolveDebug("packaging %q -> %s by keyword %q", text, typ, kw)
		return PackagingMatch{Outcome: Resolved, Type: typ, Method: MethodKeyword, Keyword: kw, Score: 1.0}
	}

	m := PackagingMatch{Outcome: Unresolved, Method: MethodNone}
	query := strings.TrimSpace(text)
	if query == "" {
		return m
	}

	vec, err := r.embedder.Embed(ctx, r.scorer.Normalize(query))
	if err != nil {
		return r.backendError(m, query, err)
	}
	hits, err := r.index.SearchPackaging(ctx, vec, r.topK)
	if err != nil {
		return r.backendError(m, query, err)
	}

	th := cfg.Thresholds
	var kept []catalog.PackagingHit
	for _, h := range hits {
		if h.Score >= th.PackagingScoreFloor {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		logging.ResolveDebug("packaging %q: no index hits", query)
		return m
	}

	phrases := make([]string, len(kept))
	for i, h := range kept {
		phrases[i] = h.Option.Phrase
	}
	scores, err := r.scorer.ScoreAll(ctx, query, phrases)
	if err != nil {
		return r.backendError(m, query, err)
	}
	order := make([]int, len(kept))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]].Final > scores[order[j]].Final })

	best := order[0]
	m.Score = scores[best].Final
	if m.Score < th.Packaging {
		logging.Resolve("packaging %q: best %q scored %.3f below %.2f", query, kept[best].Option.Phrase, m.Score, th.Packaging)
		logging.Audit().ResolveMiss("packaging", query, m.Score, nil)
		return m
	}
	m.Outcome = Resolved
	m.Type = kept[best].Option.Type
	m.Method = MethodVector
	m.Phrase = kept[best].Option.Phrase
	logging.Resolve("packaging %q -> %s by phrase %q (%.3f)", query, m.Type, m.Phrase, m.Score)
	return m
}

func (r *PackagingResolver) backendError(m PackagingMatch, query string, err error) PackagingMatch {
	logging.ResolveWarn("packaging %q: search backend failure: %v", query, err)
	logging.Audit().ResolveMiss("packaging", query, 0, err)
	m.Outcome = BackendError
	m.Cause = err
	return m
}

// StripKeywords removes every packaging keyword from text and reports the
// packaging they imply, so "아메리카노 2개 포장" orders "아메리카노 2개".
func (r *PackagingResolver) StripKeywords(text string) (string, catalog.PackagingType, bool) {
	cfg := r.patterns.Current().Config
	typ, _, ok := matchKeyword(cfg, text)
	if !ok {
		return text, "", false
	}

	kws := append(append([]string(nil), cfg.TakeoutKeywords...), cfg.DineInKeywords...)
	sort.SliceStable(kws, func(i, j int) bool { return len(kws[i]) > len(kws[j]) })
	cleaned := text
	for _, kw := range kws {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
		cleaned = re.ReplaceAllString(cleaned, " ")
	}
	return strings.Join(strings.Fields(cleaned), " "), typ, true
}

func matchKeyword(cfg *patterns.Config, text string) (catalog.PackagingType, string, bool) {
	low := strings.ToLower(text)
	for _, set := range []struct {
		typ catalog.PackagingType
		kws []string
	}{
		{catalog.PackagingTakeout, cfg.TakeoutKeywords},
		{catalog.PackagingDineIn, cfg.DineInKeywords},
	} {
		for _, kw := range set.kws {
			k := strings.ToLower(strings.TrimSpace(kw))
			if k != "" && strings.Contains(low, k) {
				return set.typ, kw, true
			}
		}
	}
	return "", "", false
}
