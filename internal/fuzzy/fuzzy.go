// Package fuzzy implements rune-level string similarity ratios on a 0-100
// scale: plain indel ratio, best-window partial ratio and token-sort ratio.
package fuzzy

import (
	"sort"
	"strings"
)

// Ratio returns the normalised indel similarity of a and b:
// 200*LCS / (len(a)+len(b)). Two empty strings are identical (100).
func Ratio(a, b string) float64 {
	return runeRatio([]rune(a), []rune(b))
}

func runeRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcs(a, b)) / float64(total)
}

// lcs returns the length of the longest common subsequence.
func lcs(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// PartialRatio returns the best Ratio between the shorter string and any
// window of the longer one, including windows clipped at either edge.
func PartialRatio(a, b string) float64 {
	s, l := []rune(a), []rune(b)
	if len(s) > len(l) {
		s, l = l, s
	}
	if len(s) == 0 {
		if len(l) == 0 {
			return 100
		}
		return 0
	}

	m := len(s)
	best := 0.0
	// Clipped windows at the left edge, full windows, clipped at the right.
	for start := -(m - 1); start < len(l); start++ {
		lo, hi := start, start+m
		if lo < 0 {
			lo = 0
		}
		if hi > len(l) {
			hi = len(l)
		}
		if r := runeRatio(s, l[lo:hi]); r > best {
			best = r
			if best == 100 {
				return best
			}
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their whitespace tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

// Best returns the highest of Ratio, PartialRatio and TokenSortRatio.
func Best(a, b string) float64 {
	best := Ratio(a, b)
	if p := PartialRatio(a, b); p > best {
		best = p
	}
	if t := TokenSortRatio(a, b); t > best {
		best = t
	}
	return best
}
