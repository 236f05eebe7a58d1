// Package catalog defines the typed payloads stored in the menu and
// packaging search indexes and the contract those indexes satisfy.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Temperature is the served temperature of a catalog variant.
type Temperature string

const (
	TempHot  Temperature = "hot"
	TempIce  Temperature = "ice"
	TempNone Temperature = "none" // desserts and other items without a variant
)

// ParseTemperature accepts the stored spellings of a variant.
func ParseTemperature(s string) (Temperature, error) {
	switch Temperature(strings.ToLower(strings.TrimSpace(s))) {
	case TempHot:
		return TempHot, nil
	case TempIce, "iced", "cold":
		return TempIce, nil
	case TempNone, "":
		return TempNone, nil
	default:
		return "", fmt.Errorf("unknown temperature %q", s)
	}
}

// Label returns the Korean display label.
func (t Temperature) Label() string {
	switch t {
	case TempHot:
		return "따뜻한"
	case TempIce:
		return "아이스"
	default:
		return ""
	}
}

// Entry is one purchasable item variant. ID is unique per Name+Temperature.
type Entry struct {
	ID          int64       `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Price       int         `json:"price" yaml:"price"`
	Popular     bool        `json:"popular" yaml:"popular"`
	Temperature Temperature `json:"temp" yaml:"temp"`
}

// Validate rejects malformed payloads at the index boundary.
func (e Entry) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("catalog entry %q: id must be positive, got %d", e.Name, e.ID)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("catalog entry %d: empty name", e.ID)
	}
	if e.Price < 0 {
		return fmt.Errorf("catalog entry %q: negative price %d", e.Name, e.Price)
	}
	switch e.Temperature {
	case TempHot, TempIce, TempNone:
	default:
		return fmt.Errorf("catalog entry %q: invalid temperature %q", e.Name, e.Temperature)
	}
	return nil
}

// DisplayName renders "아이스 아메리카노" style names.
func (e Entry) DisplayName() string {
	if l := e.Temperature.Label(); l != "" {
		return l + " " + e.Name
	}
	return e.Name
}

// PackagingType is the takeout / dine-in decision.
type PackagingType string

const (
	PackagingTakeout PackagingType = "takeout"
	PackagingDineIn  PackagingType = "dine_in"
)

// ParsePackagingType accepts both the canonical and Korean spellings.
func ParsePackagingType(s string) (PackagingType, error) {
	switch strings.TrimSpace(s) {
	case "takeout", "포장":
		return PackagingTakeout, nil
	case "dine_in", "매장식사":
		return PackagingDineIn, nil
	default:
		return "", fmt.Errorf("unknown packaging type %q", s)
	}
}

// Label returns the Korean display label.
func (p PackagingType) Label() string {
	switch p {
	case PackagingTakeout:
		return "포장"
	case PackagingDineIn:
		return "매장식사"
	default:
		return string(p)
	}
}

// PackagingOption is one phrase in the packaging index.
type PackagingOption struct {
	ID     int64         `json:"id" yaml:"id"`
	Phrase string        `json:"phrase" yaml:"phrase"`
	Type   PackagingType `json:"type" yaml:"type"`
}

// Validate rejects malformed payloads at the index boundary.
func (p PackagingOption) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("packaging option %q: id must be positive", p.Phrase)
	}
	if strings.TrimSpace(p.Phrase) == "" {
		return fmt.Errorf("packaging option %d: empty phrase", p.ID)
	}
	if p.Type != PackagingTakeout && p.Type != PackagingDineIn {
		return fmt.Errorf("packaging option %q: invalid type %q", p.Phrase, p.Type)
	}
	return nil
}

// MenuHit is one nearest-neighbour result from the menu index.
type MenuHit struct {
	Entry Entry
	Score float64 // cosine similarity
}

// PackagingHit is one nearest-neighbour result from the packaging index.
type PackagingHit struct {
	Option PackagingOption
	Score  float64
}

// SearchOptions narrows a menu search.
type SearchOptions struct {
	Limit      int
	ScoreFloor float64
	// Temperature, when set, restricts hits to that exact variant.
	Temperature Temperature
}

// Searcher is the read side of the catalog and packaging indexes.
type Searcher interface {
	SearchMenu(ctx context.Context, vec []float32, opts SearchOptions) ([]MenuHit, error)
	SearchPackaging(ctx context.Context, vec []float32, limit int) ([]PackagingHit, error)
	// MenuByName returns every variant stored under the exact name.
	MenuByName(ctx context.Context, name string) ([]Entry, error)
}

// Indexer is the write side used by seeding.
type Indexer interface {
	UpsertMenu(ctx context.Context, entries []Entry, vecs [][]float32) error
	UpsertPackaging(ctx context.Context, options []PackagingOption, vecs [][]float32) error
}

// Index is a full read/write index.
type Index interface {
	Searcher
	Indexer
}
