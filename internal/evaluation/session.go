package evaluation

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/interview-scorer/internal/logger"
)

// EvaluateSession evaluates every request concurrently, at most Workers at
// a time, and returns the records in request order. Indicator phrases of
// every referenced rubric are embedded up front so tier votes hit the cache.
func (e *Evaluator) EvaluateSession(ctx context.Context, reqs []Request) []Record {
	e.warm(ctx, reqs)

	records := make([]Record, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, req := range reqs {
		g.Go(func() error {
			records[i] = e.Evaluate(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return records
}

func (e *Evaluator) warm(ctx context.Context, reqs []Request) {
	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		if _, ok := seen[req.QuestionID]; ok {
			continue
		}
		seen[req.QuestionID] = struct{}{}

		set, ok := e.store.Get(req.QuestionID)
		if !ok {
			continue
		}

		warmCtx, cancel := context.WithTimeout(ctx, e.timeout)
		err := e.engine.Warm(warmCtx, set)
		cancel()
		if err != nil {
			// Scoring retries the same calls per question and reports the
			// failure there.
			logger.WithFields(e.logger, logger.QuestionFields(e.sessionID, req.QuestionID)...).
				Warn("could not pre-embed rubric indicators", zap.Error(err))
		}
	}
}

// Summary aggregates a session.
type Summary struct {
	SessionID      string  `json:"session_id"`
	Questions      int     `json:"questions"`
	Scored         int     `json:"scored"`
	Failed         int     `json:"failed"`
	MeanScore      float64 `json:"mean_score"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// Summarize computes totals over records. Failed records are left out of
// the mean score but still count toward the mean confidence.
func Summarize(sessionID string, records []Record) Summary {
	s := Summary{SessionID: sessionID, Questions: len(records)}
	if len(records) == 0 {
		return s
	}

	var scoreSum, confSum int
	for _, r := range records {
		confSum += r.Confidence.Value
		if r.ScoringFailed {
			s.Failed++
			continue
		}
		s.Scored++
		scoreSum += int(r.Score.Tier)
	}

	if s.Scored > 0 {
		s.MeanScore = float64(scoreSum) / float64(s.Scored)
	}
	s.MeanConfidence = float64(confSum) / float64(len(records))
	return s
}
