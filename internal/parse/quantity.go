package parse

import (
	"strconv"
	"strings"

	"voiceorder/internal/patterns"
)

// ParseQuantity extracts the quantity of a span. Configured quantity
// regexes are tried in order, then the first digit run; digits always beat
// numeral words. Otherwise the first numeral word in table order found as a
// substring; otherwise 0, meaning unspecified.
func (p *Parser) ParseQuantity(span string) int {
	n, _ := parseQuantity(p.Snapshot(), span)
	return n
}

// parseQuantity reports whether a quantity was stated at all, so an explicit
// zero can be told apart from a missing one.
func parseQuantity(snap *patterns.Snapshot, span string) (int, bool) {
	text := strings.ToLower(strings.TrimSpace(span))

	for _, re := range snap.QuantityRegexes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		digits := m[0]
		if len(m) > 1 {
			digits = m[1]
		}
		if n, err := strconv.Atoi(strings.TrimSpace(digits)); err == nil {
			return n, true
		}
	}
	if digits := snap.Number.FindString(text); digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			return n, true
		}
	}
	for _, nw := range snap.Config.Numerals {
		if strings.Contains(text, nw.Word) {
			return nw.Value, true
		}
	}
	return 0, false
}
