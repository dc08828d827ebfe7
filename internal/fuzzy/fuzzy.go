// Package fuzzy ranks candidate strings by approximate similarity to a query.
//
// Scores are integers in [0,100]. The scorer is a weighted mix of plain,
// partial, token-sort and token-set ratios over Levenshtein distance, so
// misspellings, extra words and word order all degrade the score gracefully.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

type Match struct {
	Candidate string
	Score     int
}

// Above reports whether the match strictly exceeds threshold.
func (m Match) Above(threshold int) bool {
	return m.Score > threshold
}

// BestMatch returns the highest scoring candidate. Ties keep the earliest
// candidate. ok is false when there is nothing to compare.
func BestMatch(query string, candidates []string) (Match, bool) {
	if process(query) == "" || len(candidates) == 0 {
		return Match{}, false
	}

	best := Match{Score: -1}
	for _, c := range candidates {
		s := Score(query, c)
		if s > best.Score {
			best = Match{Candidate: c, Score: s}
		}
	}

	return best, true
}

// Score is the weighted similarity of a and b.
func Score(a, b string) int {
	p1, p2 := process(a), process(b)
	if p1 == "" || p2 == "" {
		return 0
	}

	base := ratio(p1, p2)

	l1, l2 := runeLen(p1), runeLen(p2)
	lenRatio := float64(max(l1, l2)) / float64(min(l1, l2))

	if lenRatio < 1.5 {
		tsor := tokenSortRatio(p1, p2, ratio) * 0.95
		tset := tokenSetRatio(p1, p2, ratio) * 0.95
		return round(math.Max(base, math.Max(tsor, tset)))
	}

	scale := 0.9
	if lenRatio > 8 {
		scale = 0.6
	}

	partial := partialRatio(p1, p2) * scale
	ptsor := tokenSortRatio(p1, p2, partialRatio) * 0.95 * scale
	ptset := tokenSetRatio(p1, p2, partialRatio) * 0.95 * scale

	return round(math.Max(math.Max(base, partial), math.Max(ptsor, ptset)))
}

type scorer func(a, b string) float64

// ratio is 100 * (1 - distance / longest length).
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	d := levenshtein.ComputeDistance(a, b)
	longest := max(runeLen(a), runeLen(b))

	return 100 * (1 - float64(d)/float64(longest))
}

// partialRatio slides the shorter string over the longer one and keeps the
// best window.
func partialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}

	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}

	return best
}

func tokenSortRatio(a, b string, inner scorer) float64 {
	return inner(sortedTokens(a), sortedTokens(b))
}

func tokenSetRatio(a, b string, inner scorer) float64 {
	setA, setB := tokenSet(a), tokenSet(b)

	var common, onlyA, onlyB []string
	for t := range setA {
		if setB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	t0 := strings.Join(common, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	return math.Max(inner(t0, t1), math.Max(inner(t0, t2), inner(t1, t2)))
}

func sortedTokens(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(s) {
		set[f] = true
	}
	return set
}

// process lower-cases s, replaces everything that is not a letter or a digit
// with a space and collapses whitespace.
func process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)

	return strings.Join(strings.Fields(mapped), " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

func round(f float64) int {
	return int(math.Round(f))
}
