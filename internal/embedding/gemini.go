package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-scorer/internal/utils"
)

const (
	defaultGeminiModel = "gemini-embedding-001"
	// Gemini rejects embed requests with more than 100 contents.
	geminiBatchLimit = 100
	// Quota errors asking to wait longer than this are not retried.
	maxRetryDelay  = 20 * time.Second
	baseRetryDelay = 500 * time.Millisecond
)

// wait is swapped in tests to avoid real backoff delays.
var wait = utils.WaitFor

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9.]+)\s*s`)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Gemini embeds text through the Google GenAI embedding endpoint.
type Gemini struct {
	models     contentEmbedder
	model      string
	taskType   string
	maxRetries int
	logger     *zap.Logger
}

// NewGemini creates a Gemini embedder for the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGemini(client.Models, model, maxRetries, logger), nil
}

func newGemini(models contentEmbedder, model string, maxRetries int, logger *zap.Logger) *Gemini {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gemini{
		models:     models,
		model:      model,
		taskType:   "SEMANTIC_SIMILARITY",
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Model returns the embedding model identifier.
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Embed(ctx context.Context, text string) (Vector, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([]Vector, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := min(start+geminiBatchLimit, len(texts))
		vectors, err := g.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (g *Gemini) embedWithRetry(ctx context.Context, texts []string) ([]Vector, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		}
	}
	cfg := &genai.EmbedContentConfig{TaskType: g.taskType}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err := g.models.EmbedContent(ctx, g.model, contents, cfg)
		if err == nil {
			return vectorsFromResponse(resp, len(texts))
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, unavailable("gemini", ctx.Err())
		}

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == g.maxRetries {
			break
		}

		g.logger.Warn("gemini embed request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return nil, unavailable("gemini", err)
		}
	}

	return nil, unavailable("gemini", fmt.Errorf("embed content: %w", lastErr))
}

func vectorsFromResponse(resp *genai.EmbedContentResponse, want int) ([]Vector, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, unavailable("gemini", fmt.Errorf("expected %d embeddings, got %d", want, got))
	}

	out := make([]Vector, want)
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, unavailable("gemini", fmt.Errorf("empty embedding at index %d", i))
		}
		out[i] = Vector(emb.Values)
	}
	return out, nil
}

// retryDelay decides whether a failed request is worth retrying and how long
// to wait before the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	backoff := baseRetryDelay * time.Duration(1<<(attempt-1))

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if d, found := parseRetryAfter(apiErr.Message); found {
			if d > maxRetryDelay {
				return 0, false
			}
			return d, true
		}
		return backoff, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func parseRetryAfter(message string) (time.Duration, bool) {
	m := retryAfterPattern.FindStringSubmatch(message)
	if len(m) != 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
