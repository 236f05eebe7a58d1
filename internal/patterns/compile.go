package patterns

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Placeholder runes come from the Unicode private-use area so they can never
// collide with Hangul, digits, units or separators in real input.
const (
	PlaceholderBase = '\uE000'
	PlaceholderMax  = '\uF8FF'
)

// Snapshot is an immutable, compiled view of a Config.
type Snapshot struct {
	Config *Config

	// Separators splits an utterance on any configured separator.
	Separators *regexp.Regexp
	// Unit matches optional leading whitespace plus one unit word.
	Unit *regexp.Regexp
	// Quantity matches a digit run or any numeral word.
	Quantity *regexp.Regexp
	// Number matches a digit run.
	Number *regexp.Regexp
	// QuantityRegexes are the configured regex_patterns in file order. The
	// first capture group, or the whole match, is the quantity.
	QuantityRegexes []*regexp.Regexp
	// Item matches one <name><quantity><unit?> group (unit mandatory when
	// unit_required is set). Groups: name, quantity, unit.
	Item *regexp.Regexp

	unitAlt    string
	numeralAlt string
}

// alternation joins quoted words longest first so a short word never shadows
// a longer one that starts with it under leftmost-first matching.
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})
	quoted := make([]string, 0, len(sorted))
	for _, w := range sorted {
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return strings.Join(quoted, "|")
}

// separatorPattern splits on punctuation separators anywhere and on word
// separators ("그리고", "랑") only where they end a word, so "와" inside
// "딸기와플" is left alone.
func separatorPattern(seps []string) string {
	var punct, words []string
	for _, sep := range seps {
		if strings.IndexFunc(sep, unicode.IsLetter) >= 0 {
			words = append(words, sep)
		} else {
			punct = append(punct, sep)
		}
	}
	var parts []string
	if len(punct) > 0 {
		parts = append(parts, `(?:`+alternation(punct)+`)`)
	}
	if len(words) > 0 {
		parts = append(parts, `(?:`+alternation(words)+`)(?:\s+|$)`)
	}
	return strings.Join(parts, "|")
}

// Compile validates cfg and builds its regular expressions.
func Compile(cfg *Config) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	words := make([]string, len(cfg.Numerals))
	for i, nw := range cfg.Numerals {
		words[i] = nw.Word
	}
	s := &Snapshot{
		Config:     cfg,
		unitAlt:    alternation(cfg.Units),
		numeralAlt: alternation(words),
	}

	var err error
	if s.Separators, err = regexp.Compile(separatorPattern(cfg.Separators)); err != nil {
		return nil, fmt.Errorf("separators: %w", err)
	}
	if s.Unit, err = regexp.Compile(`\s*(` + s.unitAlt + `)`); err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	if s.Quantity, err = regexp.Compile(`(\d+|` + s.numeralAlt + `)`); err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	s.Number = regexp.MustCompile(`\d+`)
	for _, expr := range cfg.QuantityRegexes {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("regex_patterns %q: %w", expr, err)
		}
		s.QuantityRegexes = append(s.QuantityRegexes, re)
	}

	unitGroup := `(` + s.unitAlt + `)?`
	if cfg.UnitRequired {
		unitGroup = `(` + s.unitAlt + `)`
	}
	namePart := `([가-힣a-zA-Z\x{E000}-\x{F8FF}\s]+?)`
	if s.Item, err = regexp.Compile(namePart + `\s*(\d+|` + s.numeralAlt + `)\s*` + unitGroup); err != nil {
		return nil, fmt.Errorf("item: %w", err)
	}
	return s, nil
}

// UnitAlternation returns the escaped unit alternation used by the compiled
// expressions, for callers building related patterns.
func (s *Snapshot) UnitAlternation() string { return s.unitAlt }

// TemperatureExpressions returns cold then hot expressions, lower-cased.
func (s *Snapshot) TemperatureExpressions() []string {
	out := make([]string, 0, len(s.Config.ColdExpressions)+len(s.Config.HotExpressions))
	for _, e := range s.Config.ColdExpressions {
		out = append(out, strings.ToLower(e))
	}
	for _, e := range s.Config.HotExpressions {
		out = append(out, strings.ToLower(e))
	}
	return out
}
