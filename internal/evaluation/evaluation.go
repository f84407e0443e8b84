// Package evaluation ties normalization, rubric scoring and confidence
// estimation together for single answers and whole interview sessions.
package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/interview-scorer/internal/confidence"
	"github.com/spigell/interview-scorer/internal/logger"
	"github.com/spigell/interview-scorer/internal/normalizer"
	"github.com/spigell/interview-scorer/internal/rubric"
	"github.com/spigell/interview-scorer/internal/utils"
)

const (
	DefaultTimeout = 20 * time.Second
	DefaultWorkers = 4

	defaultMaxLogLength = 200
)

// Request is one answer to evaluate.
type Request struct {
	QuestionID string
	Transcript string
	Acoustic   confidence.Acoustic
}

// Transcript keeps the raw text next to its normalized form.
type Transcript struct {
	Raw        string                   `json:"raw"`
	Normalized string                   `json:"normalized"`
	Acoustic   confidence.Acoustic      `json:"acoustic"`
	Stages     []normalizer.StageReport `json:"stages,omitempty"`
}

// Record is the outcome of evaluating one answer. A record with
// ScoringFailed set has Score.Status unavailable and its score serializes
// without a tier.
type Record struct {
	SessionID     string             `json:"session_id"`
	QuestionID    string             `json:"question_id"`
	Question      string             `json:"question,omitempty"`
	Transcript    Transcript         `json:"transcript"`
	Score         rubric.ScoreResult `json:"score"`
	Confidence    confidence.Result  `json:"confidence"`
	ScoringFailed bool               `json:"scoring_failed"`
	Error         string             `json:"error,omitempty"`
}

type Options struct {
	// Timeout bounds scoring of a single answer. Zero selects DefaultTimeout.
	Timeout time.Duration
	// Workers bounds how many answers of a session are evaluated at once.
	Workers int
	// SessionID is generated when empty.
	SessionID    string
	Logger       *zap.Logger
	MaxLogLength int
}

type Evaluator struct {
	normalizer *normalizer.Normalizer
	engine     *rubric.Engine
	store      *rubric.Store
	timeout    time.Duration
	workers    int
	sessionID  string
	logger     *zap.Logger
	maxLogLen  int
}

func New(n *normalizer.Normalizer, engine *rubric.Engine, store *rubric.Store, opts Options) *Evaluator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Evaluator{
		normalizer: n,
		engine:     engine,
		store:      store,
		timeout:    opts.Timeout,
		workers:    opts.Workers,
		sessionID:  opts.SessionID,
		logger:     logger.WithFields(opts.Logger),
		maxLogLen:  opts.MaxLogLength,
	}
}

func (e *Evaluator) SessionID() string { return e.sessionID }

// Evaluate scores one answer. Problems with the input never surface as
// errors; an unreachable similarity backend marks the record as failed.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Record {
	log := logger.WithFields(e.logger, logger.QuestionFields(e.sessionID, req.QuestionID)...)

	set, ok := e.store.Get(req.QuestionID)
	if !ok {
		log.Warn("no rubric for question")
	}

	norm := e.normalizer.Normalize(ctx, req.Transcript)
	if norm.Degraded() {
		log.Warn("transcript normalization degraded")
	}

	record := Record{
		SessionID:  e.sessionID,
		QuestionID: req.QuestionID,
		Transcript: Transcript{
			Raw:        req.Transcript,
			Normalized: norm.Text,
			Acoustic:   req.Acoustic,
			Stages:     norm.Stages,
		},
	}
	if set != nil {
		record.Question = set.Question()
	}

	var g errgroup.Group
	g.Go(func() error {
		scoreCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		score, err := e.engine.Score(scoreCtx, norm.Text, set)
		record.Score = score
		return err
	})
	g.Go(func() error {
		record.Confidence = confidence.Estimate(norm.Text, req.Acoustic)
		return nil
	})

	if err := g.Wait(); err != nil {
		record.ScoringFailed = true
		record.Score = rubric.ScoreResult{Status: rubric.StatusUnavailable}
		record.Error = err.Error()

		log.Error("answer could not be scored", zap.Error(err))
		return record
	}

	log.Debug("answer evaluated",
		zap.String("transcript_preview", utils.TruncateForLog(norm.Text, e.maxLogLen)),
		zap.Int("tier", int(record.Score.Tier)),
		zap.String("status", string(record.Score.Status)),
		zap.Int("confidence", record.Confidence.Value),
	)

	return record
}
