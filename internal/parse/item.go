package parse

import (
	"regexp"
	"strconv"
	"strings"

	"voiceorder/internal/patterns"
)

// FailureKind classifies why a span could not become an order line.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureQuantityMissing
	FailureMenuMissing
	FailureUnrecognized
	FailureQuantityInvalid
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureQuantityMissing:
		return "quantity_missing"
	case FailureMenuMissing:
		return "menu_missing"
	case FailureUnrecognized:
		return "unrecognized"
	case FailureQuantityInvalid:
		return "quantity_invalid"
	default:
		return "unknown"
	}
}

func (k FailureKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Prompt is the Korean re-prompt shown for the failure.
func (k FailureKind) Prompt() string {
	switch k {
	case FailureQuantityMissing:
		return "수량을 다시 말씀해주세요"
	case FailureMenuMissing:
		return "메뉴를 다시 말씀해주세요"
	case FailureUnrecognized:
		return "다시 말씀해주세요"
	case FailureQuantityInvalid:
		return "수량은 1 이상이어야 합니다"
	default:
		return ""
	}
}

// Item is one parsed span.
type Item struct {
	Span     string
	MenuText string // span minus quantity and unit words; temperature words kept
	Quantity int    // 0 when unspecified or stated as zero
	Failure  FailureKind
}

// OK reports whether the span yielded both a menu text and a quantity.
func (it Item) OK() bool { return it.Failure == FailureNone }

// ParseItem extracts quantity and menu text from one span.
func (p *Parser) ParseItem(span string) Item {
	return parseItem(p.Snapshot(), span)
}

func parseItem(snap *patterns.Snapshot, span string) Item {
	span = strings.TrimSpace(span)
	it := Item{Span: span}
	prot := protectTemperatureWords(snap, span)

	qty, stated := parseQuantity(snap, prot.text)
	it.Quantity = qty
	if stated && qty == 0 {
		it.MenuText = collapseSpaces(prot.restore(extractMenu(snap, prot.text, 0)))
		it.Failure = FailureQuantityInvalid
		return it
	}
	if it.Quantity == 0 {
		menu := collapseSpaces(prot.restore(removeUnitWords(snap, prot.text)))
		if menu == "" {
			it.Failure = FailureUnrecognized
			return it
		}
		it.MenuText = menu
		it.Failure = FailureQuantityMissing
		return it
	}

	it.MenuText = collapseSpaces(prot.restore(extractMenu(snap, prot.text, it.Quantity)))
	if it.MenuText == "" {
		it.Failure = FailureMenuMissing
	}
	return it
}

// extractMenu strips the quantity, in digits or numeral words, together
// with an attached unit, then any standalone unit words.
func extractMenu(snap *patterns.Snapshot, text string, qty int) string {
	units := snap.UnitAlternation()

	digits := regexp.MustCompile(`(^|\D)` + strconv.Itoa(qty) + `(?:\s*(?:` + units + `))?[^\s\d]*`)
	text = digits.ReplaceAllString(text, "${1} ")

	var words []string
	for _, nw := range snap.Config.Numerals {
		if nw.Value == qty {
			words = append(words, regexp.QuoteMeta(nw.Word))
		}
	}
	if len(words) > 0 {
		numerals := regexp.MustCompile(`(?:` + strings.Join(words, "|") + `)(?:\s*(?:` + units + `)[^\s\d]*|\s|$)`)
		text = numerals.ReplaceAllString(text, " ")
	}

	return removeUnitWords(snap, text)
}

// removeUnitWords drops unit words standing as their own token.
func removeUnitWords(snap *patterns.Snapshot, text string) string {
	re := regexp.MustCompile(`(^|\s)(?:` + snap.UnitAlternation() + `)(\s|$)`)
	// Adjacent units share a space, so a second pass catches the neighbour.
	for i := 0; i < 2; i++ {
		text = re.ReplaceAllString(text, "$1$2")
	}
	return text
}
