// Package strmatch implements the name matching rules shared by every hook
// kind: case folding for command/modifier/info names and "*" wildcard masks,
// optionally negated with "!" and combined with commas.
package strmatch

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s, suitable for caseless comparison
// of names that may contain non-ASCII letters.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under Unicode case folding.
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return Fold(a) == Fold(b)
}

// HasPrefixFold reports whether s begins with prefix, ignoring case.
func HasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(Fold(s), Fold(prefix))
}

// CompareFold compares a and b ignoring case, returning -1, 0 or 1.
func CompareFold(a, b string) int {
	return strings.Compare(Fold(a), Fold(b))
}

// Match reports whether s matches mask, where "*" matches any run of
// characters (including none). Every other character matches itself.
func Match(s, mask string, caseSensitive bool) bool {
	if !caseSensitive {
		s = Fold(s)
		mask = Fold(mask)
	}
	return glob(s, mask)
}

// glob is an iterative wildcard matcher with single-star backtracking.
func glob(s, mask string) bool {
	si, mi := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case mi < len(mask) && mask[mi] == '*':
			star = mi
			mark = si
			mi++
		case mi < len(mask) && mask[mi] == s[si]:
			si++
			mi++
		case star >= 0:
			mi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for mi < len(mask) && mask[mi] == '*' {
		mi++
	}
	return mi == len(mask)
}

// SplitMasks splits a comma-separated mask list, dropping empty entries.
func SplitMasks(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MatchList checks s against masks in order. A mask starting with "!" is
// negative: if it matches, the result is false regardless of other masks.
// Otherwise the result is true if at least one positive mask matched.
func MatchList(s string, masks []string, caseSensitive bool) bool {
	matched := false
	for _, mask := range masks {
		if neg, ok := strings.CutPrefix(mask, "!"); ok {
			if Match(s, neg, caseSensitive) {
				return false
			}
			continue
		}
		if Match(s, mask, caseSensitive) {
			matched = true
		}
	}
	return matched
}
