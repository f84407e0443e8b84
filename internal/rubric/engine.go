package rubric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/interview-scorer/internal/embedding"
	"go.uber.org/zap"
)

const (
	DefaultSimilarityThreshold = 0.40
	DefaultMinTokens           = 5

	UnansweredJustification = "Unanswered"
	MinimalJustification    = "Minimal or vague response"
	NoRubricJustification   = "no rubric available for this question"

	// NoRubricTier is the neutral score given when a question has no rubric.
	NoRubricTier Tier = 3
)

// ErrScoringUnavailable is returned when the similarity capability could
// not be reached. The answer is not scored in that case.
var ErrScoringUnavailable = errors.New("scoring unavailable")

type Status string

const (
	StatusScored      Status = "scored"
	StatusGated       Status = "gated"
	StatusFloor       Status = "fallback"
	StatusNoRubric    Status = "no_rubric"
	StatusUnavailable Status = "unavailable"
)

// Vote records how one tier fared during voting.
type Vote struct {
	Tier       Tier `json:"tier"`
	Indicators int  `json:"indicators"`
	Hits       int  `json:"hits"`
	Required   int  `json:"required"`
	Passed     bool `json:"passed"`
}

type ScoreResult struct {
	Tier          Tier   `json:"tier"`
	Justification string `json:"justification"`
	Status        Status `json:"status"`
	Votes         []Vote `json:"votes,omitempty"`
}

// MarshalJSON writes an unavailable result as its status alone, so a
// consumer never reads tier 0 for an answer that was not scored.
func (r ScoreResult) MarshalJSON() ([]byte, error) {
	if r.Status == StatusUnavailable {
		return json.Marshal(struct {
			Status Status `json:"status"`
		}{r.Status})
	}
	type plain ScoreResult
	return json.Marshal(plain(r))
}

// NoRubric is the result for a question without a rubric.
func NoRubric() ScoreResult {
	return ScoreResult{Tier: NoRubricTier, Justification: NoRubricJustification, Status: StatusNoRubric}
}

// Engine grades answers by letting each tier's indicator phrases vote on
// semantic similarity with the answer.
type Engine struct {
	embedder  embedding.Embedder
	threshold float64
	minTokens int
	// Percent of a tier's indicators that must hit, rounded up. Tiers not
	// listed need a single hit.
	requiredPercent map[Tier]int
	logger          *zap.Logger
}

// NewEngine builds an engine. Non-positive threshold or minTokens select
// the defaults.
func NewEngine(embedder embedding.Embedder, logger *zap.Logger, threshold float64, minTokens int) *Engine {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if minTokens <= 0 {
		minTokens = DefaultMinTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		embedder:        embedder,
		threshold:       threshold,
		minTokens:       minTokens,
		requiredPercent: map[Tier]int{4: 60, 3: 50},
		logger:          logger,
	}
}

func (e *Engine) Threshold() float64 { return e.threshold }

func (e *Engine) MinTokens() int { return e.minTokens }

// Gated reports whether answer is rejected before any similarity check.
func (e *Engine) Gated(answer string) bool {
	return IsNonRelevant(answer) || len(Tokens(answer)) < e.minTokens
}

// Score grades answer against set. Errors wrap ErrScoringUnavailable.
func (e *Engine) Score(ctx context.Context, answer string, set *Set) (ScoreResult, error) {
	if set.Empty() {
		return NoRubric(), nil
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if e.Gated(answer) {
		return ScoreResult{
			Tier:          MinTier,
			Justification: set.justification(MinTier, UnansweredJustification),
			Status:        StatusGated,
		}, nil
	}

	if e.embedder == nil {
		return ScoreResult{Status: StatusUnavailable}, fmt.Errorf("%w: no embedder configured", ErrScoringUnavailable)
	}

	answerVec, err := e.embedder.Embed(ctx, answer)
	if err != nil {
		return ScoreResult{Status: StatusUnavailable}, fmt.Errorf("%w: embed answer: %w", ErrScoringUnavailable, err)
	}

	var votes []Vote
	for t := MaxTier; t >= 1; t-- {
		level, ok := set.Level(t)
		if !ok || len(level.indicators) == 0 {
			continue
		}

		vote, err := e.vote(ctx, answerVec, level)
		if err != nil {
			return ScoreResult{Status: StatusUnavailable, Votes: votes}, fmt.Errorf("%w: tier %d: %w", ErrScoringUnavailable, t, err)
		}
		votes = append(votes, vote)

		e.logger.Debug("tier vote",
			zap.String("question_id", set.QuestionID()),
			zap.Int("tier", int(t)),
			zap.Int("hits", vote.Hits),
			zap.Int("required", vote.Required),
		)

		if vote.Passed {
			return ScoreResult{
				Tier:          t,
				Justification: level.justification,
				Status:        StatusScored,
				Votes:         votes,
			}, nil
		}
	}

	return ScoreResult{
		Tier:          1,
		Justification: set.justification(1, MinimalJustification),
		Status:        StatusFloor,
		Votes:         votes,
	}, nil
}

func (e *Engine) vote(ctx context.Context, answer embedding.Vector, level Level) (Vote, error) {
	phrases := make([]string, len(level.indicators))
	for i, p := range level.indicators {
		phrases[i] = strings.ToLower(p)
	}

	vectors, err := e.embedder.EmbedBatch(ctx, phrases)
	if err != nil {
		return Vote{}, err
	}
	if len(vectors) != len(phrases) {
		return Vote{}, fmt.Errorf("expected %d indicator vectors, got %d", len(phrases), len(vectors))
	}

	hits := 0
	for _, v := range vectors {
		if embedding.Cosine(answer, v) >= e.threshold {
			hits++
		}
	}

	required := e.requiredHits(level.tier, len(phrases))
	return Vote{
		Tier:       level.tier,
		Indicators: len(phrases),
		Hits:       hits,
		Required:   required,
		Passed:     hits >= required,
	}, nil
}

func (e *Engine) requiredHits(t Tier, indicators int) int {
	pct, ok := e.requiredPercent[t]
	if !ok {
		return 1
	}
	required := (pct*indicators + 99) / 100
	if required < 1 {
		required = 1
	}
	return required
}

// Warm embeds every indicator phrase of set in one batch so later votes
// are served from a caching embedder.
func (e *Engine) Warm(ctx context.Context, set *Set) error {
	if e.embedder == nil || set.Empty() {
		return nil
	}
	phrases := set.Indicators()
	if len(phrases) == 0 {
		return nil
	}
	for i, p := range phrases {
		phrases[i] = strings.ToLower(p)
	}
	if _, err := e.embedder.EmbedBatch(ctx, phrases); err != nil {
		return fmt.Errorf("%w: warm question %s: %w", ErrScoringUnavailable, set.QuestionID(), err)
	}
	return nil
}
