package patterns

import "strings"

// Answer is a parsed yes/no reply.
type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "unknown"
	}
}

// ParseConfirmation classifies a reply with the configured confirmation
// words. Negative words win over positive ones. Words match whole tokens;
// multi-rune Hangul words also match as a token prefix ("좋아요", "아니요").
func (s *Snapshot) ParseConfirmation(text string) Answer {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(tokens) == 0 {
		return AnswerUnknown
	}
	if matchesAny(tokens, s.Config.NegativeWords) {
		return AnswerNo
	}
	if matchesAny(tokens, s.Config.PositiveWords) {
		return AnswerYes
	}
	return AnswerUnknown
}

func matchesAny(tokens, words []string) bool {
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?~")
		for _, w := range words {
			w = strings.ToLower(w)
			if tok == w {
				return true
			}
			if len([]rune(w)) > 1 && !isASCII(w) && strings.HasPrefix(tok, w) {
				return true
			}
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
