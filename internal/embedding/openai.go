package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.SmallEmbedding3

type embeddingCreator interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAI embeds text through the OpenAI embeddings API or any compatible
// endpoint configured via BaseURL.
type OpenAI struct {
	client embeddingCreator
	model  openai.EmbeddingModel
}

// NewOpenAI creates an OpenAI embedder. baseURL is optional.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		config.BaseURL = baseURL
	}

	return newOpenAI(openai.NewClientWithConfig(config), model), nil
}

func newOpenAI(client embeddingCreator, model string) *OpenAI {
	m := openai.EmbeddingModel(strings.TrimSpace(model))
	if m == "" {
		m = defaultOpenAIModel
	}
	return &OpenAI{client: client, model: m}
}

// Model returns the embedding model identifier.
func (o *OpenAI) Model() string { return string(o.model) }

func (o *OpenAI) Embed(ctx context.Context, text string) (Vector, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: o.model,
	})
	if err != nil {
		return nil, unavailable("openai", fmt.Errorf("create embeddings: %w", err))
	}

	if len(resp.Data) != len(texts) {
		return nil, unavailable("openai", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	// The API reports each embedding with the index of its input.
	out := make([]Vector, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) || len(item.Embedding) == 0 {
			return nil, unavailable("openai", fmt.Errorf("malformed embedding at index %d", item.Index))
		}
		out[item.Index] = Vector(item.Embedding)
	}
	for i, v := range out {
		if v == nil {
			return nil, unavailable("openai", fmt.Errorf("missing embedding for input %d", i))
		}
	}
	return out, nil
}
