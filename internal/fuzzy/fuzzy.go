// Package fuzzy provides the edit-distance primitives used to match noisy
// transcript tokens against known vocabularies.
package fuzzy

import (
	"math"

	"github.com/agext/levenshtein"
)

// Distance returns the Levenshtein edit distance between a and b.
func Distance(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

// Score returns a 0-100 similarity ratio between a and b, where 100 means
// identical strings.
func Score(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	return int(math.Round(levenshtein.Similarity(a, b, nil) * 100))
}

// Match is the best candidate found by Closest.
type Match struct {
	Value    string
	Distance int
	Score    int
}

// Closest returns the candidate with the highest score against s. Ties keep
// the earliest candidate. ok is false when candidates is empty.
func Closest(s string, candidates []string) (Match, bool) {
	var best Match
	found := false
	for _, c := range candidates {
		score := Score(s, c)
		if !found || score > best.Score {
			best = Match{Value: c, Distance: Distance(s, c), Score: score}
			found = true
		}
	}
	return best, found
}
