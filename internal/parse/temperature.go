package parse

import (
	"regexp"
	"strings"

	"voiceorder/internal/catalog"
	"voiceorder/internal/fuzzy"
	"voiceorder/internal/logging"
	"voiceorder/internal/patterns"
)

// Detection is the outcome of scanning a span for a hot/cold qualifier.
type Detection struct {
	// Cleaned is the span with the matched expression removed when the match
	// was high-confidence, else the span unchanged.
	Cleaned     string
	Temperature catalog.Temperature
	Detected    bool
	Expression  string  // configured expression that matched
	Matched     string  // text in the span that matched it
	Confidence  float64 // 1.0 for an exact match
}

// DetectTemperature scans span for configured cold then hot expressions.
func (p *Parser) DetectTemperature(span string) Detection {
	return detectTemperature(p.Snapshot(), span)
}

type tempMatch struct {
	temp       catalog.Temperature
	expression string
	matched    string
	score      float64
}

func detectTemperature(snap *patterns.Snapshot, span string) Detection {
	cfg := snap.Config
	lower := strings.ToLower(span)
	tokens := strings.Fields(lower)

	var best *tempMatch
	consider := func(m tempMatch) {
		// Later matches replace earlier ones on equal score.
		if best == nil || m.score >= best.score {
			mm := m
			best = &mm
		}
	}

	scan := func(exprs []string, temp catalog.Temperature) {
		for _, raw := range exprs {
			expr := strings.ToLower(strings.TrimSpace(raw))
			if expr == "" {
				continue
			}
			if containsExpression(lower, expr) {
				consider(tempMatch{temp: temp, expression: raw, matched: expr, score: 1.0})
				continue
			}
			for _, tok := range tokens {
				r := fuzzy.Ratio(tok, expr)
				if r >= cfg.Thresholds.FuzzyFloor {
					consider(tempMatch{temp: temp, expression: raw, matched: tok, score: r / 100})
				}
			}
		}
	}
	scan(cfg.ColdExpressions, catalog.TempIce)
	scan(cfg.HotExpressions, catalog.TempHot)

	if best == nil || best.score < cfg.Thresholds.Temperature {
		return Detection{
			Cleaned:     span,
			Temperature: catalog.Temperature(cfg.DefaultTemperature),
		}
	}

	d := Detection{
		Cleaned:     span,
		Temperature: best.temp,
		Detected:    true,
		Expression:  best.expression,
		Matched:     best.matched,
		Confidence:  best.score,
	}
	if best.score > cfg.Thresholds.TemperatureHigh {
		d.Cleaned = removeFirstFold(span, best.matched)
	}
	logging.ParseDebug("temperature %q -> %s via %q (%.2f)", span, d.Temperature, d.Expression, d.Confidence)
	return d
}

// containsExpression reports an exact hit. ASCII expressions must stand as
// whole words ("ice" does not fire inside "juice"); Hangul ones match as
// substrings since particles attach directly ("아이스로").
func containsExpression(lower, expr string) bool {
	if !isASCII(expr) {
		return strings.Contains(lower, expr)
	}
	for start := 0; ; {
		i := strings.Index(lower[start:], expr)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(expr)
		if !asciiLetterAt(lower, i-1) && !asciiLetterAt(lower, end) {
			return true
		}
		start = i + 1
	}
}

func asciiLetterAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c >= 'a' && c <= 'z'
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// removeFirstFold removes the first case-insensitive occurrence of needle,
// as a whole word when needle is ASCII.
func removeFirstFold(s, needle string) string {
	pattern := `(?i)` + regexp.QuoteMeta(needle)
	if isASCII(needle) {
		pattern = `(?i)\b` + regexp.QuoteMeta(needle) + `\b`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return s
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return collapseSpaces(s[:loc[0]] + " " + s[loc[1]:])
}
