package normalizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/interview-scorer/internal/embedding"
)

type mapEmbedder struct {
	vectors  map[string]embedding.Vector
	fallback embedding.Vector
	err      error
}

func (m *mapEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mapEmbedder) EmbedBatch(_ context.Context, texts []string) ([]embedding.Vector, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]embedding.Vector, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = m.fallback
	}
	return out, nil
}

func TestFillerStage(t *testing.T) {
	t.Parallel()

	stage := newFillerStage()
	tests := []struct {
		name  string
		input string
		want  []string
		keep  []string
	}{
		{name: "hesitations", input: "Um, I think uh it works", keep: []string{"I think", "it works"}},
		{name: "substrings untouched", input: "umbrella likelihood hummingbird", want: []string{"umbrella likelihood hummingbird"}},
		{name: "like as a word", input: "it was like fast", keep: []string{"it was", "fast"}},
		{name: "non-ascii neighbours", input: "ahí está el código y erñame umbrío", want: []string{"ahí está el código y erñame umbrío"}},
		{name: "adjacent fillers", input: "um uh, like hmm ok", keep: []string{"ok"}},
		{name: "accented context", input: "café um señor", keep: []string{"café", "señor"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := stage.Apply(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if got != w {
					t.Fatalf("expected %q, got %q", w, got)
				}
			}
			for _, k := range tt.keep {
				if !strings.Contains(got, k) {
					t.Fatalf("expected %q to survive in %q", k, got)
				}
			}
			for _, f := range []string{"Um", " uh ", " like "} {
				if strings.Contains(got, f) {
					t.Fatalf("filler %q survived in %q", f, got)
				}
			}
		})
	}
}

func TestPunctuationStage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"Hello!!!   World...", "hello world"},
		{"It's a café, isn't it?", "its a cafe isnt it"},
		{"  tabs\tand\nnewlines  ", "tabs and newlines"},
		{"state-of-the-art", "state of the art"},
		{"?!...", ""},
	}

	stage := newPunctuationStage()
	for _, tt := range tests {
		got, err := stage.Apply(context.Background(), tt.input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("punctuation(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPhraseStage(t *testing.T) {
	t.Parallel()

	stage := newPhraseStage(DefaultPhrases())

	got, _ := stage.Apply(context.Background(), "i used Tensor Flow and pie torch with hyper parameters")
	want := "i used tensorflow and pytorch with hyperparameters"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	got, _ = stage.Apply(context.Background(), "tensor flowing")
	if got != "tensor flowing" {
		t.Fatalf("partial word must not match, got %q", got)
	}

	got, _ = stage.Apply(context.Background(), "usé tensor flowé y señor pie torch")
	if got != "usé tensor flowé y señor pytorch" {
		t.Fatalf("non-ascii neighbours must bound phrases, got %q", got)
	}
}

func TestDedupeStage(t *testing.T) {
	t.Parallel()

	got, _ := newDedupeStage().Apply(context.Background(), "the the model model model works the end")
	if got != "the model works the end" {
		t.Fatalf("unexpected dedupe result: %q", got)
	}

	got, _ = newDedupeStage().Apply(context.Background(), "")
	if got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestSpellingAndDomainCorrection(t *testing.T) {
	n := New(Options{})

	got := n.Text(context.Background(), "my experiance with kubernets and tensorflo")
	want := "my experience with kubernetes and tensorflow"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestUnknownTokenLeftUnchanged(t *testing.T) {
	n := New(Options{})

	got := n.Text(context.Background(), "we shipped zzqxv yesterday")
	if got != "we shipped zzqxv yesterday" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestNormalizeKeepsCommonWords(t *testing.T) {
	t.Parallel()

	n := New(Options{})
	ctx := context.Background()

	sentences := []string{
		"i led the onboarding of three junior engineers and we cut the release backlog in half by shipping smaller batches weekly",
		"my manager asked me to forecast quarterly revenue for our stakeholders using a messy spreadsheet",
		"our team collaborated with the vendor after the outage to rebuild the dashboard and invoices",
		"i volunteer at a charity on weekends and enjoy cooking football and guitar",
		"the customer wanted a refund so i escalated the ticket to our support lead",
		"i graduated from university with a degree in economics and did an internship at a bank",
		"we migrated legacy services to the cloud reduced latency and improved reliability",
		"the interviewer asked about my strengths weaknesses and career goals",
		"i was honest with my colleague when i felt upset about the deadline",
		"our senior nurse mentored new staff at the hospital during the night shift",
		"the professor gave a lecture at the conference about inflation and the economy",
		"we rent a small apartment downtown near the supermarket and the pharmacy",
	}

	for _, in := range sentences {
		if got := n.Text(ctx, in); got != in {
			t.Errorf("ordinary sentence changed:\n got %q\nwant %q", got, in)
		}
	}
}

func TestCustomDomainTermsAndPhrases(t *testing.T) {
	n := New(Options{
		DomainTerms: []string{"terraform"},
		Phrases:     map[string]string{"terra form": "terraform"},
	})

	got := n.Text(context.Background(), "I wrote Terra Form modules and terrafrom plans")
	want := "i wrote terraform modules and terraform plans"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeFullPipeline(t *testing.T) {
	n := New(Options{})

	raw := "Um, so I I built a a machine learning model using tensor flow and and kubernets... it was, uh, really really useful for the the team!!"
	res := n.Normalize(context.Background(), raw)

	want := "so i built a machine learning model using tensorflow and kubernetes it was really useful for the team"
	if res.Text != want {
		t.Fatalf("expected %q, got %q", want, res.Text)
	}

	names := []string{"fillers", "punctuation", "phrases", "spelling", "domain", "context", "dedupe"}
	if len(res.Stages) != len(names) {
		t.Fatalf("expected %d stage reports, got %d", len(names), len(res.Stages))
	}
	for i, name := range names {
		if res.Stages[i].Name != name {
			t.Fatalf("stage %d: expected %s, got %s", i, name, res.Stages[i].Name)
		}
	}

	if !res.Stages[5].Skipped || res.Stages[5].Reason == "" {
		t.Fatalf("expected context stage to be reported as skipped: %+v", res.Stages[5])
	}

	if res.Degraded() {
		t.Fatalf("pipeline should not be degraded")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := New(Options{})
	ctx := context.Background()

	inputs := []string{
		"Um, so I I built a a machine learning model using tensor flow and and kubernets... it was, uh, really really useful for the the team!!",
		"I don't know.",
		"Hmm... my  algoritm  handled the databse migration; latency dropped 40%!",
		"",
		"   ",
		"Mushy learning is, like, the the future",
	}

	for _, in := range inputs {
		once := n.Text(ctx, in)
		twice := n.Text(ctx, once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeEmpty(t *testing.T) {
	n := New(Options{})

	if got := n.Text(context.Background(), "  \n\t "); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestContextStageReplacesOutlier(t *testing.T) {
	sentence := "we trained the modal with the model"
	e := &mapEmbedder{
		vectors: map[string]embedding.Vector{
			sentence: {1, 0},
			"modal":  {0, 1},
		},
		fallback: embedding.Vector{1, 0.1},
	}

	got, err := newContextStage(e).Apply(context.Background(), sentence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "we trained the model with the model" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestContextStagePicksFirstClosestToken(t *testing.T) {
	sentence := "a b c"
	e := &mapEmbedder{
		vectors:  map[string]embedding.Vector{sentence: {1, 0}, "c": {0, 1}},
		fallback: embedding.Vector{1, 0},
	}

	// Every neighbour scores zero against "c", so the first one wins.
	got, err := newContextStage(e).Apply(context.Background(), sentence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a b a" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestContextStageDegradesOnEmbedderFailure(t *testing.T) {
	e := &mapEmbedder{err: errors.New("backend down")}
	n := New(Options{Embedder: e, ContextCorrection: true})

	res := n.Normalize(context.Background(), "the model was trained on clean data")
	if res.Text != "the model was trained on clean data" {
		t.Fatalf("expected text unchanged, got %q", res.Text)
	}

	if !res.Degraded() {
		t.Fatalf("expected degraded result")
	}

	ctxReport := res.Stages[5]
	if ctxReport.Name != "context" || !ctxReport.Degraded || ctxReport.Error == "" {
		t.Fatalf("unexpected context report: %+v", ctxReport)
	}

	if last := res.Stages[6]; last.Name != "dedupe" || last.Skipped {
		t.Fatalf("later stages must still run: %+v", last)
	}
}

func TestContextStageWithoutEmbedderIsSkipped(t *testing.T) {
	n := New(Options{ContextCorrection: true})

	res := n.Normalize(context.Background(), "hello there")
	if r := res.Stages[5]; !r.Skipped || r.Reason != "no embedder configured" {
		t.Fatalf("unexpected context report: %+v", r)
	}
}
