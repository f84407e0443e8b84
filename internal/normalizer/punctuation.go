package normalizer

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	apostrophes = regexp.MustCompile("['’‘`]+")
	// Runs of anything that is not a letter, digit, underscore or space.
	punctuationRuns = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

type punctuationStage struct{}

func newPunctuationStage() *punctuationStage { return &punctuationStage{} }

func (s *punctuationStage) Name() string { return "punctuation" }

// Apply folds compatibility characters and diacritics, lowercases, joins
// contractions ("don't" -> "dont"), turns every remaining punctuation run
// into a single space and collapses whitespace.
func (s *punctuationStage) Apply(_ context.Context, text string) (string, error) {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		return text, err
	}

	out := strings.ToLower(folded)
	out = apostrophes.ReplaceAllString(out, "")
	out = punctuationRuns.ReplaceAllString(out, " ")
	out = whitespaceRuns.ReplaceAllString(out, " ")
	return strings.TrimSpace(out), nil
}
