package catalog

import (
	"context"
	"fmt"
	"sync"

	"voiceorder/internal/embedding"
)

// MemoryIndex is an in-process Index backed by brute-force cosine search.
type MemoryIndex struct {
	mu         sync.RWMutex
	menu       []Entry
	menuVecs   [][]float32
	pack       []PackagingOption
	packVecs   [][]float32
	menuByID   map[int64]int
	packByID   map[int64]int
	searchHook func() error
}

// NewMemoryIndex returns an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{menuByID: map[int64]int{}, packByID: map[int64]int{}}
}

// FailSearchesWith makes every search return err (nil restores normal
// behaviour). Used to exercise backend-failure paths.
func (m *MemoryIndex) FailSearchesWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.searchHook = nil
		return
	}
	m.searchHook = func() error { return err }
}

// UpsertMenu validates and stores entries with their vectors.
func (m *MemoryIndex) UpsertMenu(ctx context.Context, entries []Entry, vecs [][]float32) error {
	if len(entries) != len(vecs) {
		return fmt.Errorf("upsert menu: %d entries but %d vectors", len(entries), len(vecs))
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range entries {
		if idx, ok := m.menuByID[e.ID]; ok {
			m.menu[idx], m.menuVecs[idx] = e, vecs[i]
			continue
		}
		m.menuByID[e.ID] = len(m.menu)
		m.menu = append(m.menu, e)
		m.menuVecs = append(m.menuVecs, vecs[i])
	}
	return nil
}

// UpsertPackaging validates and stores packaging options with their vectors.
func (m *MemoryIndex) UpsertPackaging(ctx context.Context, options []PackagingOption, vecs [][]float32) error {
	if len(options) != len(vecs) {
		return fmt.Errorf("upsert packaging: %d options but %d vectors", len(options), len(vecs))
	}
	for _, o := range options {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range options {
		if idx, ok := m.packByID[o.ID]; ok {
			m.pack[idx], m.packVecs[idx] = o, vecs[i]
			continue
		}
		m.packByID[o.ID] = len(m.pack)
		m.pack = append(m.pack, o)
		m.packVecs = append(m.packVecs, vecs[i])
	}
	return nil
}

// SearchMenu returns the nearest entries at or above opts.ScoreFloor.
func (m *MemoryIndex) SearchMenu(ctx context.Context, vec []float32, opts SearchOptions) ([]MenuHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.searchHook != nil {
		if err := m.searchHook(); err != nil {
			return nil, err
		}
	}

	var entries []Entry
	var corpus [][]float32
	for i, e := range m.menu {
		if opts.Temperature != "" && e.Temperature != opts.Temperature {
			continue
		}
		entries = append(entries, e)
		corpus = append(corpus, m.menuVecs[i])
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}
	var hits []MenuHit
	for _, r := range embedding.FindTopK(vec, corpus, limit) {
		if r.Similarity < opts.ScoreFloor {
			continue
		}
		hits = append(hits, MenuHit{Entry: entries[r.Index], Score: r.Similarity})
	}
	return hits, nil
}

// SearchPackaging returns the nearest packaging phrases.
func (m *MemoryIndex) SearchPackaging(ctx context.Context, vec []float32, limit int) ([]PackagingHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.searchHook != nil {
		if err := m.searchHook(); err != nil {
			return nil, err
		}
	}
	var hits []PackagingHit
	for _, r := range embedding.FindTopK(vec, m.packVecs, limit) {
		hits = append(hits, PackagingHit{Option: m.pack[r.Index], Score: r.Similarity})
	}
	return hits, nil
}

// MenuByName returns every variant stored under name, in insertion order.
func (m *MemoryIndex) MenuByName(ctx context.Context, name string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, e := range m.menu {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out, nil
}
