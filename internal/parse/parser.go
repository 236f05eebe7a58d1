// Package parse turns raw order text into per-item spans and extracts the
// quantity, temperature and menu text of each span.
package parse

import (
	"regexp"
	"strings"
	"unicode"

	"voiceorder/internal/fuzzy"
	"voiceorder/internal/patterns"
)

// Parser reads the current pattern snapshot on every call, so a reload takes
// effect for the next utterance without restarting.
type Parser struct {
	patterns *patterns.Cache
}

// New returns a parser bound to cache.
func New(cache *patterns.Cache) *Parser {
	return &Parser{patterns: cache}
}

// Snapshot exposes the snapshot a caller should use for a whole utterance.
func (p *Parser) Snapshot() *patterns.Snapshot {
	return p.patterns.Current()
}

var spaces = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// protected is text whose temperature words were swapped for placeholder runes.
type protected struct {
	text  string
	words map[rune]string
}

// protectTemperatureWords replaces every whitespace-delimited word that
// fuzzy-matches a temperature expression at or above the fuzzy floor with a
// single private-use rune. Surrounding punctuation stays in place.
func protectTemperatureWords(snap *patterns.Snapshot, text string) protected {
	exprs := snap.TemperatureExpressions()
	floor := snap.Config.Thresholds.FuzzyFloor
	p := protected{words: map[rune]string{}}
	next := patterns.PlaceholderBase

	var b strings.Builder
	for _, field := range strings.SplitAfter(text, " ") {
		word := strings.TrimRight(field, " ")
		trail := field[len(word):]
		core, pre, post := trimPunct(word)
		if core == "" || next > patterns.PlaceholderMax || !matchesExpression(core, exprs, floor) {
			b.WriteString(field)
			continue
		}
		p.words[next] = core
		b.WriteString(pre)
		b.WriteRune(next)
		b.WriteString(post)
		b.WriteString(trail)
		next++
	}
	p.text = b.String()
	return p
}

func matchesExpression(word string, exprs []string, floor float64) bool {
	lw := strings.ToLower(word)
	for _, e := range exprs {
		if fuzzy.Ratio(lw, e) >= floor {
			return true
		}
	}
	return false
}

func trimPunct(s string) (core, pre, post string) {
	core = strings.TrimLeftFunc(s, unicode.IsPunct)
	pre = s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsPunct)
	post = core[len(trimmed):]
	return trimmed, pre, post
}

func (p protected) restore(s string) string {
	if len(p.words) == 0 {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if w, ok := p.words[r]; ok {
			b.WriteString(w)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
