package service

import (
	"strings"
	"unicode"
)

// MatchNames returns the indexes of names that match hint. Matching is
// two-tier and the first tier with any hits wins:
//
//  1. exact, ignoring case and punctuation
//  2. containment: the name contains the hint, or the hint contains the
//     whole name as a word-aligned phrase
//
// Ties are never broken; more than one index means the hint is ambiguous.
func MatchNames(hint string, names []string) []int {
	h := normalizeName(hint)
	if h == "" {
		return nil
	}

	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = normalizeName(n)
	}

	var exact []int
	for i, n := range normalized {
		if n == h {
			exact = append(exact, i)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	padded := " " + h + " "
	var partial []int
	for i, n := range normalized {
		if n == "" {
			continue
		}
		if strings.Contains(n, h) || strings.Contains(padded, " "+n+" ") {
			partial = append(partial, i)
		}
	}
	return partial
}

// normalizeName lowercases s, turns punctuation into spaces and collapses
// runs of whitespace.
func normalizeName(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
