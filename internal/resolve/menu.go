package resolve

import (
	"context"
	"sort"
	"strings"
	"time"

	"voiceorder/internal/catalog"
	"voiceorder/internal/logging"
	"voiceorder/internal/parse"
	"voiceorder/internal/patterns"
	"voiceorder/internal/similarity"
)

// Candidate is one reranked index hit.
type Candidate struct {
	Entry catalog.Entry
	Score similarity.Score
	// Final is Score.Final plus the popularity bonus.
	Final float64
}

// MenuMatch is the tagged result of a menu resolution.
type MenuMatch struct {
	Outcome Outcome
	Span    string
	// Query is the span after temperature stripping; it is what got searched.
	Query               string
	Temperature         catalog.Temperature
	TemperatureDetected bool
	// Entry is a copy of the winning catalog entry when Resolved.
	Entry      catalog.Entry
	Final      float64
	Candidates []Candidate
	Cause      error // set when BackendError
}

// OK reports whether the match resolved.
func (m MenuMatch) OK() bool { return m.Outcome == Resolved }

// MenuOptions tunes the index query. Zero values use the pattern snapshot.
type MenuOptions struct {
	TopK       int
	ScoreFloor float64
}

// MenuResolver resolves item spans to catalog entries.
type MenuResolver struct {
	patterns *patterns.Cache
	parser   *parse.Parser
	index    catalog.Searcher
	embedder Embedder
	scorer   *similarity.Scorer
	opts     MenuOptions
}

// NewMenuResolver wires a resolver over index.
func NewMenuResolver(pc *patterns.Cache, index catalog.Searcher, embedder Embedder, scorer *similarity.Scorer, opts MenuOptions) *MenuResolver {
	return &MenuResolver{
		patterns: pc,
		parser:   parse.New(pc),
		index:    index,
		embedder: embedder,
		scorer:   scorer,
		opts:     opts,
	}
}

// Resolve matches span against the catalog. A detected temperature is a
// strict filter; otherwise every variant competes and the tie-break prefers
// the default temperature.
func (r *MenuResolver) Resolve(ctx context.Context, span string) MenuMatch {
	timer := logging.StartTimer(logging.CategoryResolve, "menu.Resolve")
	defer timer.StopWithThreshold(200 * time.Millisecond)

	snap := r.patterns.Current()
	th := snap.Config.Thresholds
	det := r.parser.DetectTemperature(span)

	m := MenuMatch{
		Outcome:             NotFound,
		Span:                span,
		Query:               strings.TrimSpace(det.Cleaned),
		Temperature:         det.Temperature,
		TemperatureDetected: det.Detected,
	}
	if m.Query == "" {
		return m
	}

	vec, err := r.embedder.Embed(ctx, r.scorer.Normalize(m.Query))
	if err != nil {
		return r.backendError(m, err)
	}

	opts := catalog.SearchOptions{Limit: r.opts.TopK, ScoreFloor: r.opts.ScoreFloor}
	if opts.Limit <= 0 {
		opts.Limit = th.MenuSearchLimit
	}
	if opts.ScoreFloor <= 0 {
		opts.ScoreFloor = 0.2
	}
	if det.Detected {
		opts.Temperature = det.Temperature
	}
	hits, err := r.index.SearchMenu(ctx, vec, opts)
	if err != nil {
		return r.backendError(m, err)
	}
	if len(hits) == 0 {
		logging.ResolveDebug("menu %q: no index hits (temp filter %q)", m.Query, opts.Temperature)
		logging.Audit().ResolveMiss("menu", m.Query, 0, nil)
		return m
	}

	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Entry.Name
	}
	scores, err := r.scorer.ScoreAll(ctx, m.Query, names)
	if err != nil {
		return r.backendError(m, err)
	}

	m.Candidates = make([]Candidate, len(hits))
	for i, h := range hits {
		c := Candidate{Entry: h.Entry, Score: scores[i], Final: scores[i].Final}
		if h.Entry.Popular {
			c.Final += th.PopularBonus
		}
		m.Candidates[i] = c
	}
	rank(m.Candidates, catalog.Temperature(snap.Config.DefaultTemperature))

	best := m.Candidates[0]
	for _, c := range m.Candidates {
		logging.ResolveDebug("  %s(%d원) final=%.3f vector=%.3f fuzzy=%.3f",
			c.Entry.DisplayName(), c.Entry.Price, c.Final, c.Score.Vector, c.Score.Fuzzy)
	}
	m.Final = best.Final
	if best.Final < th.Menu {
		logging.Resolve("menu %q: best %q scored %.3f below %.2f", m.Query, best.Entry.Name, best.Final, th.Menu)
		logging.Audit().ResolveMiss("menu", m.Query, best.Final, nil)
		return m
	}

	m.Outcome = Resolved
	m.Entry = best.Entry
	logging.Resolve("menu %q -> %s #%d (%.3f)", span, m.Entry.DisplayName(), m.Entry.ID, m.Final)
	return m
}

func (r *MenuResolver) backendError(m MenuMatch, err error) MenuMatch {
	logging.ResolveWarn("menu %q: search backend failure: %v", m.Query, err)
	logging.Audit().ResolveMiss("menu", m.Query, 0, err)
	m.Outcome = BackendError
	m.Cause = err
	return m
}

// rank orders candidates by final score, then the default-temperature
// variant, then lower catalog id.
func rank(cands []Candidate, defaultTemp catalog.Temperature) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Final != b.Final {
			return a.Final > b.Final
		}
		ad, bd := a.Entry.Temperature == defaultTemp, b.Entry.Temperature == defaultTemp
		if ad != bd {
			return ad
		}
		return a.Entry.ID < b.Entry.ID
	})
}

// Variant looks up the sibling of entry served at temp.
func (r *MenuResolver) Variant(ctx context.Context, name string, temp catalog.Temperature) (catalog.Entry, bool, error) {
	entries, err := r.index.MenuByName(ctx, name)
	if err != nil {
		return catalog.Entry{}, false, err
	}
	for _, e := range entries {
		if e.Temperature == temp {
			return e, true, nil
		}
	}
	return catalog.Entry{}, false, nil
}
