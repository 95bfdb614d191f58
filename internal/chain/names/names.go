// Package names canonicalizes and compares person names taken from deed and
// person-search records.
package names

import (
	"math"
	"regexp"
	"strings"
)

// middleInitial matches a lone letter with an optional trailing period.
var middleInitial = regexp.MustCompile(`^[a-z]\.?$`)

// Normalize lowercases a name, collapses whitespace and drops single-letter
// middle initials ("John A. Smith" -> "john smith"). First and last tokens are
// kept even when they are a single letter. Normalize is idempotent.
func Normalize(name string) string {
	tokens := strings.Fields(strings.ToLower(name))
	if len(tokens) <= 2 {
		return strings.Join(tokens, " ")
	}
	kept := make([]string, 0, len(tokens))
	kept = append(kept, tokens[0])
	for _, tok := range tokens[1 : len(tokens)-1] {
		if middleInitial.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	kept = append(kept, tokens[len(tokens)-1])
	return strings.Join(kept, " ")
}

// Score bands returned by Match.
const (
	ExactScore     = 100
	SubstringScore = 85
	maxTokenScore  = 80
)

// Match scores how likely two raw names refer to the same person, 0-100.
// Rules apply in order and the first hit wins:
//
//  1. normalized names are equal: 100
//  2. one normalized name contains the other: 85
//  3. token overlap, scaled to 0-80
//
// Token overlap walks the tokens of a and counts those with an equal or
// prefix-related token in b, so Match(a, b) and Match(b, a) can differ.
// A name normalizing to "" is a substring of any other name.
func Match(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return ExactScore
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return SubstringScore
	}

	ta, tb := significantTokens(na), significantTokens(nb)
	denom := max(len(ta), len(tb))
	if denom == 0 {
		return 0
	}
	matches := 0
	for _, x := range ta {
		for _, y := range tb {
			if x == y || strings.HasPrefix(x, y) || strings.HasPrefix(y, x) {
				matches++
				break
			}
		}
	}
	return int(math.Round(float64(matches) / float64(denom) * maxTokenScore))
}

// significantTokens drops single-character tokens such as leftover initials.
func significantTokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}
