// Package normalize canonicalizes framework and criterion names and
// detects near-duplicate definition text.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// nearDuplicateSlack is the maximum length difference for a substring
// match to count as redundant
const nearDuplicateSlack = 20

// Loose is the identity key: trimmed, whitespace collapsed, lowercased
func Loose(s string) string {
	return strings.ToLower(collapse(s))
}

// CriterionName is the display form: trimmed, whitespace collapsed,
// first rune uppercased, the rest untouched. Loose(CriterionName(s))
// always equals Loose(s): a first rune whose upper case lowers to a
// different rune (ı, ſ, ς, µ) is left as is.
func CriterionName(s string) string {
	s = collapse(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	upper := unicode.ToUpper(r)
	if upper == r || unicode.ToLower(upper) != unicode.ToLower(r) {
		return s
	}
	return string(upper) + s[size:]
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Redundant reports whether a and b say the same thing: equal under
// Loose, or one contains the other with less than 20 bytes between them.
func Redundant(a, b string) bool {
	la, lb := Loose(a), Loose(b)
	if la == "" || lb == "" {
		return la == lb
	}
	if la == lb {
		return true
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return abs(len(la)-len(lb)) < nearDuplicateSlack
	}
	return false
}

// CollapseDefinitions drops empty texts and every text redundant with an
// earlier kept one. The first occurrence wins.
func CollapseDefinitions(texts []string) []string {
	if len(texts) == 0 {
		return texts
	}
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		dup := false
		for _, kept := range out {
			if Redundant(kept, t) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	return out
}

// RedundantIndexes returns, in ascending order, the indexes of texts that
// a cleanup pass should delete. Exact Loose duplicates after the first
// are redundant; for near-substring pairs the shorter text goes.
func RedundantIndexes(texts []string) []int {
	remove := make(map[int]bool)
	seen := make(map[string]int)
	for i, t := range texts {
		key := Loose(t)
		if _, ok := seen[key]; ok {
			remove[i] = true
			continue
		}
		seen[key] = i
	}

	for i := range texts {
		if remove[i] {
			continue
		}
		li := Loose(texts[i])
		for j := range texts {
			if i == j || remove[j] {
				continue
			}
			lj := Loose(texts[j])
			if li == "" || lj == "" || li == lj {
				continue
			}
			if !strings.Contains(li, lj) && !strings.Contains(lj, li) {
				continue
			}
			if abs(len(li)-len(lj)) >= nearDuplicateSlack {
				continue
			}
			// the shorter text loses
			if len(li) < len(lj) {
				remove[i] = true
				break
			}
		}
	}

	out := make([]int, 0, len(remove))
	for i := range texts {
		if remove[i] {
			out = append(out, i)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
