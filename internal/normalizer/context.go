package normalizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/interview-scorer/internal/embedding"
	"github.com/spigell/interview-scorer/internal/fuzzy"
)

// Replacement happens only when the outlier's best in-sentence match scores
// below this value; near-identical tokens are left as they are.
const contextMaxScore = 95

var errNoEmbedder = errors.New("no embedder configured")

// contextStage replaces the token that fits the sentence worst with its
// closest lexical neighbour from the same sentence. Transcripts reach this
// stage without punctuation, so the whole transcript is one sentence.
type contextStage struct {
	embedder embedding.Embedder
}

func newContextStage(e embedding.Embedder) *contextStage {
	return &contextStage{embedder: e}
}

func (s *contextStage) Name() string { return "context" }

func (s *contextStage) Apply(ctx context.Context, text string) (string, error) {
	if s.embedder == nil {
		return text, errNoEmbedder
	}

	tokens := strings.Fields(text)
	if len(tokens) < 3 {
		return text, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, append([]string{text}, tokens...))
	if err != nil {
		return text, fmt.Errorf("embedding sentence tokens: %w", err)
	}
	if len(vectors) != len(tokens)+1 {
		return text, fmt.Errorf("expected %d vectors, got %d", len(tokens)+1, len(vectors))
	}

	sentence := vectors[0]
	outlier, lowest := -1, 2.0
	for i := range tokens {
		if sim := embedding.Cosine(sentence, vectors[i+1]); sim < lowest {
			outlier, lowest = i, sim
		}
	}

	others := make([]string, 0, len(tokens)-1)
	for i, tok := range tokens {
		if i != outlier && tok != tokens[outlier] {
			others = append(others, tok)
		}
	}

	match, ok := fuzzy.Closest(tokens[outlier], others)
	if !ok || match.Score >= contextMaxScore {
		return text, nil
	}

	tokens[outlier] = match.Value
	return strings.Join(tokens, " "), nil
}
