package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"voiceorder/internal/embedding"
	"voiceorder/internal/logging"
)

// SeedData is the on-disk catalog seed. YAML and JSON are both accepted.
type SeedData struct {
	Menu      []Entry           `yaml:"menu" json:"menu"`
	Packaging []PackagingOption `yaml:"packaging" json:"packaging"`
}

// DefaultSeed returns the built-in menu and packaging phrases.
func DefaultSeed() *SeedData {
	return &SeedData{Menu: DefaultMenu(), Packaging: DefaultPackagingOptions()}
}

// LoadSeed reads a seed file. Entries without an ID are numbered after the
// highest explicit one; a missing temp reads as "none".
func LoadSeed(path string) (*SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	var seed SeedData
	// JSON is a subset of YAML, so one decoder covers both.
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed %s: %w", filepath.Base(path), err)
	}
	if err := seed.normalize(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *SeedData) normalize() error {
	var next int64
	for _, e := range s.Menu {
		if e.ID > next {
			next = e.ID
		}
	}
	seen := make(map[string]bool, len(s.Menu))
	for i := range s.Menu {
		e := &s.Menu[i]
		if e.ID == 0 {
			next++
			e.ID = next
		}
		t, err := ParseTemperature(string(e.Temperature))
		if err != nil {
			return fmt.Errorf("menu entry %q: %w", e.Name, err)
		}
		e.Temperature = t
		key := e.Name + "/" + string(e.Temperature)
		if seen[key] {
			return fmt.Errorf("duplicate menu variant %s", key)
		}
		seen[key] = true
		if err := e.Validate(); err != nil {
			return err
		}
	}

	var nextPack int64
	for _, p := range s.Packaging {
		if p.ID > nextPack {
			nextPack = p.ID
		}
	}
	for i := range s.Packaging {
		p := &s.Packaging[i]
		if p.ID == 0 {
			nextPack++
			p.ID = nextPack
		}
		t, err := ParsePackagingType(string(p.Type))
		if err != nil {
			return fmt.Errorf("packaging phrase %q: %w", p.Phrase, err)
		}
		p.Type = t
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IndexText is the text embedded for an entry. Variants of one item share a
// vector; the temperature filter and tie-break tell them apart.
func IndexText(e Entry) string {
	return strings.ToLower(strings.TrimSpace(e.Name))
}

// Seed embeds every entry and phrase and upserts them into idx.
func Seed(ctx context.Context, idx Indexer, engine embedding.EmbeddingEngine, seed *SeedData) error {
	timer := logging.StartTimer(logging.CategoryStore, "catalog.Seed")
	defer timer.Stop()

	if len(seed.Menu) > 0 {
		texts := make([]string, len(seed.Menu))
		for i, e := range seed.Menu {
			texts[i] = IndexText(e)
		}
		vecs, err := engine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed menu: %w", err)
		}
		if err := idx.UpsertMenu(ctx, seed.Menu, vecs); err != nil {
			return fmt.Errorf("upsert menu: %w", err)
		}
	}

	if len(seed.Packaging) > 0 {
		texts := make([]string, len(seed.Packaging))
		for i, p := range seed.Packaging {
			texts[i] = strings.ToLower(p.Phrase)
		}
		vecs, err := engine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed packaging: %w", err)
		}
		if err := idx.UpsertPackaging(ctx, seed.Packaging, vecs); err != nil {
			return fmt.Errorf("upsert packaging: %w", err)
		}
	}

	logging.Store("seeded catalog: %d menu variants, %d packaging phrases", len(seed.Menu), len(seed.Packaging))
	return nil
}
