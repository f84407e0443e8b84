package normalizer

import (
	"context"
	"regexp"
	"strings"
)

// fillerWords are hesitation sounds and verbal tics removed before anything
// else. Only single tokens: multi-word hedges are penalised by the confidence
// estimator instead of being deleted.
var fillerWords = []string{
	"um", "umm", "uh", "uhh", "uhm", "er", "erm",
	"ah", "ahh", "hmm", "hm", "mm", "mhm", "like",
}

// IsFiller reports whether token is in the filler vocabulary.
func IsFiller(token string) bool {
	_, ok := fillerSet[strings.ToLower(token)]
	return ok
}

var fillerSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(fillerWords))
	for _, w := range fillerWords {
		set[w] = struct{}{}
	}
	return set
}()

// wordRun matches a maximal run of letters, marks, digits and underscores.
// Fillers are matched against whole runs so a filler is never cut out of a
// longer word, whatever its script.
var wordRun = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

type fillerStage struct{}

func newFillerStage() *fillerStage { return &fillerStage{} }

func (s *fillerStage) Name() string { return "fillers" }

func (s *fillerStage) Apply(_ context.Context, text string) (string, error) {
	return wordRun.ReplaceAllStringFunc(text, func(word string) string {
		if IsFiller(word) {
			return " "
		}
		return word
	}), nil
}
