// Package normalizer turns noisy speech-to-text output into a canonical
// string for relevance checks and embedding comparison.
//
// The pipeline is a fixed sequence of stages. Every stage is reported in the
// Result, including stages that were skipped or degraded, so callers can
// tell "ran with no effect" apart from "did not run".
package normalizer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/embedding"
	"github.com/spigell/interview-scorer/internal/utils"
)

// Stage is a single normalization step.
type Stage interface {
	Name() string
	Apply(ctx context.Context, text string) (string, error)
}

// StageReport describes the outcome of one stage.
type StageReport struct {
	Name     string `json:"name"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Changed  bool   `json:"changed"`
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
	Before   int    `json:"tokens_before"`
	After    int    `json:"tokens_after"`
}

// Result is the normalized text and the per-stage trail that produced it.
type Result struct {
	Text   string        `json:"text"`
	Stages []StageReport `json:"stages"`
}

// Degraded reports whether any stage failed and fell back to its input.
func (r Result) Degraded() bool {
	for _, s := range r.Stages {
		if s.Degraded {
			return true
		}
	}
	return false
}

// Options configures a Normalizer.
type Options struct {
	// Embedder enables context-outlier correction when ContextCorrection is set.
	Embedder          embedding.Embedder
	ContextCorrection bool
	// DomainTerms and Phrases extend the built-in vocabularies.
	DomainTerms []string
	Phrases     map[string]string
	// Dictionary replaces the built-in word list when set.
	Dictionary *Dictionary
	Logger     *zap.Logger
	// MaxLogLength bounds transcript previews in debug logs.
	MaxLogLength int
}

type stageEntry struct {
	stage   Stage
	skipped string
}

// Normalizer runs the normalization stages in order. It is safe for
// concurrent use.
type Normalizer struct {
	stages    []stageEntry
	logger    *zap.Logger
	maxLogLen int
}

const defaultMaxLogLength = 200

// New builds the standard pipeline:
// fillers, punctuation, phrases, spelling, domain, context, dedupe.
func New(opts Options) *Normalizer {
	dict := opts.Dictionary
	if dict == nil {
		dict = DefaultDictionary()
	}
	domain := NewDomainTerms(append(DefaultDomainTerms(), opts.DomainTerms...))

	phrases := DefaultPhrases()
	for from, to := range opts.Phrases {
		phrases[from] = to
	}

	contextEntry := stageEntry{stage: newContextStage(opts.Embedder)}
	switch {
	case !opts.ContextCorrection:
		contextEntry.skipped = "disabled by configuration"
	case opts.Embedder == nil:
		contextEntry.skipped = "no embedder configured"
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Normalizer{
		stages: []stageEntry{
			{stage: newFillerStage()},
			{stage: newPunctuationStage()},
			{stage: newPhraseStage(phrases)},
			{stage: newSpellingStage(dict, domain)},
			{stage: newDomainStage(dict, domain)},
			contextEntry,
			{stage: newDedupeStage()},
		},
		logger:    logger,
		maxLogLen: maxLogLen,
	}
}

// Normalize runs every stage over raw. It never fails: a stage that errors
// keeps its input and is reported as degraded.
func (n *Normalizer) Normalize(ctx context.Context, raw string) Result {
	text := raw
	reports := make([]StageReport, 0, len(n.stages))

	for _, entry := range n.stages {
		report := StageReport{
			Name:   entry.stage.Name(),
			Before: countTokens(text),
		}

		if entry.skipped != "" {
			report.Skipped = true
			report.Reason = entry.skipped
			report.After = report.Before
			reports = append(reports, report)
			continue
		}

		out, err := entry.stage.Apply(ctx, text)
		if err != nil {
			report.Degraded = true
			report.Error = err.Error()
			report.After = report.Before
			reports = append(reports, report)

			n.logger.Debug("normalization stage degraded",
				zap.String("stage", report.Name),
				zap.Error(err),
			)
			continue
		}

		report.Changed = out != text
		report.After = countTokens(out)
		reports = append(reports, report)
		text = out
	}

	n.logger.Debug("transcript normalized",
		zap.String("raw_preview", utils.TruncateForLog(raw, n.maxLogLen)),
		zap.String("normalized_preview", utils.TruncateForLog(text, n.maxLogLen)),
		zap.Int("tokens", countTokens(text)),
	)

	return Result{Text: text, Stages: reports}
}

// Text is a convenience wrapper returning only the normalized string.
func (n *Normalizer) Text(ctx context.Context, raw string) string {
	return n.Normalize(ctx, raw).Text
}

func countTokens(text string) int {
	return len(strings.Fields(text))
}
