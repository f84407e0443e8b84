package normalizer

import (
	"context"
	"strings"
)

type dedupeStage struct{}

func newDedupeStage() *dedupeStage { return &dedupeStage{} }

func (s *dedupeStage) Name() string { return "dedupe" }

// Apply keeps only the first token of every run of identical tokens, which
// removes recognizer stutter such as "the the model".
func (s *dedupeStage) Apply(_ context.Context, text string) (string, error) {
	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if i > 0 && tok == tokens[i-1] {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " "), nil
}
