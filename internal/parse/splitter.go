package parse

import (
	"strings"

	"voiceorder/internal/logging"
	"voiceorder/internal/patterns"
)

// Split segments an utterance into item spans. It never returns an empty
// slice: unsplittable text comes back as its own single span.
//
// Temperature words are swapped for placeholders first so neither the
// separator nor the item pattern can cut through them ("따뜻한" contains the
// numeral "한").
func (p *Parser) Split(text string) []string {
	return split(p.Snapshot(), text)
}

func split(snap *patterns.Snapshot, text string) []string {
	prot := protectTemperatureWords(snap, text)

	// Separator phase.
	var segments []string
	for _, seg := range snap.Separators.Split(prot.text, -1) {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, prot.restore(seg))
		}
	}
	if len(segments) > 1 {
		logging.ParseDebug("split %q by separators -> %q", text, segments)
		return segments
	}

	// Pattern phase.
	matches := snap.Item.FindAllStringSubmatch(prot.text, -1)
	if len(matches) > 1 {
		spans := make([]string, 0, len(matches))
		for _, m := range matches {
			name, qty, unit := strings.TrimSpace(m[1]), m[2], m[3]
			span := name + " " + qty
			if unit != "" {
				span += " " + unit
			}
			spans = append(spans, prot.restore(strings.TrimSpace(span)))
		}
		logging.ParseDebug("split %q by item pattern -> %q", text, spans)
		return spans
	}

	return []string{strings.TrimSpace(text)}
}
