package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/interview-scorer/internal/confidence"
	"github.com/spigell/interview-scorer/internal/embedding"
	"github.com/spigell/interview-scorer/internal/normalizer"
	"github.com/spigell/interview-scorer/internal/rubric"
)

var (
	hitVec  = embedding.Vector{1, 0}
	missVec = embedding.Vector{0, 1}
)

type fakeEmbedder struct {
	mu      sync.Mutex
	hits    map[string]bool
	err     error
	batches int
	singles int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (embedding.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles++
	if f.err != nil {
		return nil, f.err
	}
	return hitVec, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([]embedding.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]embedding.Vector, len(texts))
	for i, t := range texts {
		out[i] = missVec
		if f.hits[t] {
			out[i] = hitVec
		}
	}
	return out, nil
}

// blockingEmbedder never answers; calls return once ctx is done.
type blockingEmbedder struct{}

func (blockingEmbedder) Embed(ctx context.Context, _ string) (embedding.Vector, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingEmbedder) EmbedBatch(ctx context.Context, _ []string) ([]embedding.Vector, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

const rubricDoc = `
q1:
  question: Describe a machine learning project.
  tiers:
    "4":
      indicators: [framed the problem, chose metrics, deployed the model, monitored drift, iterated on data]
      justifications: [Comprehensive answer]
    "3":
      indicators: [trained a model, evaluated results]
      justifications: [Solid answer]
    "1":
      indicators: [mentioned a model]
      justifications: [Weak answer]
    "0":
      justifications: [No answer]
q2:
  question: How do you deploy services?
  tiers:
    "2":
      indicators: [uses containers]
      justifications: [Partial answer]
`

const fullAnswer = "Um, so I framed the the problem first, then we we chose metrics and deployed the model with docker and kubernets, and monitored drift every week."

func newTestEvaluator(t *testing.T, emb embedding.Embedder, log *zap.Logger) *Evaluator {
	t.Helper()

	store, err := rubric.Load(strings.NewReader(rubricDoc))
	if err != nil {
		t.Fatalf("load rubric: %v", err)
	}

	return New(
		normalizer.New(normalizer.Options{}),
		rubric.NewEngine(emb, log, 0, 0),
		store,
		Options{Workers: 2, SessionID: "session-1", Logger: log},
	)
}

func TestEvaluateScoresAnswer(t *testing.T) {
	f := &fakeEmbedder{hits: map[string]bool{
		"framed the problem": true,
		"chose metrics":      true,
		"deployed the model": true,
		"monitored drift":    true,
	}}
	e := newTestEvaluator(t, f, nil)

	rec := e.Evaluate(context.Background(), Request{
		QuestionID: "q1",
		Transcript: fullAnswer,
		Acoustic:   confidence.NewAcoustic(-0.2),
	})

	if rec.ScoringFailed {
		t.Fatalf("unexpected failure: %s", rec.Error)
	}
	if rec.Score.Tier != 4 || rec.Score.Justification != "Comprehensive answer" {
		t.Fatalf("unexpected score: %+v", rec.Score)
	}
	if rec.SessionID != "session-1" || rec.Question != "Describe a machine learning project." {
		t.Fatalf("unexpected record identity: %+v", rec)
	}

	want := "so i framed the problem first then we chose metrics and deployed the model with docker and kubernetes and monitored drift every week"
	if rec.Transcript.Normalized != want {
		t.Fatalf("unexpected normalized text:\n got %q\nwant %q", rec.Transcript.Normalized, want)
	}
	if rec.Transcript.Raw != fullAnswer {
		t.Fatalf("raw transcript must be kept")
	}

	// 23 words: e^-0.2*100 = 81.87, +15 length bonus, -3 for "so".
	if rec.Confidence.Value != 94 {
		t.Fatalf("unexpected confidence: %+v", rec.Confidence)
	}
}

func TestEvaluateNonAnswer(t *testing.T) {
	f := &fakeEmbedder{}
	e := newTestEvaluator(t, f, nil)

	rec := e.Evaluate(context.Background(), Request{
		QuestionID: "q1",
		Transcript: "I don't know.",
		Acoustic:   confidence.NewAcoustic(-0.01),
	})

	if rec.Score.Tier != 0 || rec.Score.Justification != "No answer" || rec.Confidence.Value != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if f.singles != 0 || f.batches != 0 {
		t.Fatalf("gated answers must not reach the embedder")
	}
}

func TestEvaluateShortAnswer(t *testing.T) {
	e := newTestEvaluator(t, &fakeEmbedder{}, nil)

	rec := e.Evaluate(context.Background(), Request{QuestionID: "q1", Transcript: "Yes, it works."})

	if rec.Score.Tier != 0 || rec.Score.Status != rubric.StatusGated {
		t.Fatalf("expected length gate, got %+v", rec.Score)
	}
	if rec.Confidence.Value != 15 || !rec.Confidence.Fallback {
		t.Fatalf("expected three word heuristic, got %+v", rec.Confidence)
	}
}

func TestEvaluateWithoutRubric(t *testing.T) {
	observed, logs := observer.New(zapcore.WarnLevel)
	e := newTestEvaluator(t, &fakeEmbedder{}, zap.New(observed))

	for _, transcript := range []string{"", "i dont know", fullAnswer} {
		rec := e.Evaluate(context.Background(), Request{QuestionID: "missing", Transcript: transcript})
		if rec.Score.Tier != 3 || rec.Score.Justification != "no rubric available for this question" {
			t.Fatalf("unexpected score for %q: %+v", transcript, rec.Score)
		}
		if rec.ScoringFailed {
			t.Fatalf("missing rubric is not a failure")
		}
	}

	if logs.FilterMessage("no rubric for question").Len() != 3 {
		t.Fatalf("expected a warning per evaluation, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.ContextMap()["question_id"] != "missing" || entry.ContextMap()["session_id"] != "session-1" {
		t.Fatalf("unexpected log fields: %v", entry.ContextMap())
	}
}

func TestEvaluateUnavailable(t *testing.T) {
	backend := &embedding.UnavailableError{Provider: "gemini", Err: errors.New("503")}
	e := newTestEvaluator(t, &fakeEmbedder{err: backend}, nil)

	rec := e.Evaluate(context.Background(), Request{
		QuestionID: "q1",
		Transcript: fullAnswer,
		Acoustic:   confidence.NewAcoustic(-0.2),
	})

	if !rec.ScoringFailed || rec.Error == "" {
		t.Fatalf("expected failed record, got %+v", rec)
	}
	if rec.Score.Status != rubric.StatusUnavailable || rec.Score.Tier != 0 {
		t.Fatalf("failed record must not carry a score: %+v", rec.Score)
	}
	if rec.Confidence.Value == 0 {
		t.Fatalf("confidence must still be computed")
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	var decoded struct {
		Score map[string]any `json:"score"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if _, ok := decoded.Score["tier"]; ok {
		t.Fatalf("failed record must not serialize a tier: %s", raw)
	}
	if decoded.Score["status"] != string(rubric.StatusUnavailable) {
		t.Fatalf("expected unavailable status in %s", raw)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	store, err := rubric.Load(strings.NewReader(rubricDoc))
	if err != nil {
		t.Fatalf("load rubric: %v", err)
	}
	e := New(
		normalizer.New(normalizer.Options{}),
		rubric.NewEngine(blockingEmbedder{}, nil, 0, 0),
		store,
		Options{Timeout: 50 * time.Millisecond, SessionID: "session-1"},
	)

	start := time.Now()
	rec := e.Evaluate(context.Background(), Request{
		QuestionID: "q1",
		Transcript: fullAnswer,
		Acoustic:   confidence.NewAcoustic(-0.2),
	})
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("evaluation hung for %s despite a 50ms timeout", elapsed)
	}
	if !rec.ScoringFailed || rec.Score.Status != rubric.StatusUnavailable {
		t.Fatalf("expected a failed record, got %+v", rec)
	}
	if !strings.Contains(rec.Error, context.DeadlineExceeded.Error()) {
		t.Fatalf("expected deadline error, got %q", rec.Error)
	}
	if rec.Confidence.Value != 94 {
		t.Fatalf("confidence must not depend on scoring, got %+v", rec.Confidence)
	}
}

func TestEvaluateSessionPreservesOrder(t *testing.T) {
	f := &fakeEmbedder{hits: map[string]bool{"uses containers": true}}
	cached := embedding.NewCached(f)
	e := newTestEvaluator(t, cached, nil)

	reqs := []Request{
		{QuestionID: "q2", Transcript: "we package every service into containers and ship them"},
		{QuestionID: "q1", Transcript: "i have no idea"},
		{QuestionID: "missing", Transcript: fullAnswer},
		{QuestionID: "q1", Transcript: fullAnswer},
		{QuestionID: "q2", Transcript: "we package every service into containers and ship them"},
	}

	records := e.EvaluateSession(context.Background(), reqs)
	if len(records) != len(reqs) {
		t.Fatalf("expected %d records, got %d", len(reqs), len(records))
	}

	wantTiers := []rubric.Tier{2, 0, 3, 1, 2}
	for i, rec := range records {
		if rec.QuestionID != reqs[i].QuestionID {
			t.Fatalf("record %d out of order: %s", i, rec.QuestionID)
		}
		if rec.Score.Tier != wantTiers[i] {
			t.Fatalf("record %d: expected tier %d, got %+v", i, wantTiers[i], rec.Score)
		}
	}

	// One warm-up batch per rubric; votes are then served from the cache.
	if f.batches != 2 {
		t.Fatalf("expected 2 indicator batches, got %d", f.batches)
	}

	summary := Summarize(e.SessionID(), records)
	if summary.Questions != 5 || summary.Scored != 5 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.MeanScore != 8.0/5.0 {
		t.Fatalf("unexpected mean score: %v", summary.MeanScore)
	}
}

func TestSummarizeSkipsFailedScores(t *testing.T) {
	records := []Record{
		{Score: rubric.ScoreResult{Tier: 4}, Confidence: confidence.Result{Value: 80}},
		{ScoringFailed: true, Confidence: confidence.Result{Value: 40}},
	}

	s := Summarize("s", records)
	if s.Scored != 1 || s.Failed != 1 || s.MeanScore != 4 || s.MeanConfidence != 60 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	if empty := Summarize("s", nil); empty.Questions != 0 || empty.MeanScore != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}

func TestNewGeneratesSessionID(t *testing.T) {
	a := New(normalizer.New(normalizer.Options{}), rubric.NewEngine(nil, nil, 0, 0), nil, Options{})
	b := New(normalizer.New(normalizer.Options{}), rubric.NewEngine(nil, nil, 0, 0), nil, Options{})

	if a.SessionID() == "" || a.SessionID() == b.SessionID() {
		t.Fatalf("expected distinct generated session ids: %q %q", a.SessionID(), b.SessionID())
	}
}
