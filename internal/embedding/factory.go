package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/logger"
)

const (
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderHashing = "hashing"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	MaxRetries int
	Dimensions int
}

type modelNamer interface {
	Model() string
}

// New builds the provider named in cfg and wraps it with an in-memory cache.
// The returned Embedder is meant to be created once per process and shared.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Cached, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGemini
	}

	var (
		base Embedder
		err  error
	)

	switch provider {
	case ProviderGemini:
		base, err = NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.MaxRetries, logger.WithCommonFields(log, provider, cfg.Model))
	case ProviderOpenAI:
		base, err = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderHashing:
		base = NewHashing(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s embeddings: %w", provider, err)
	}

	model := cfg.Model
	if named, ok := base.(modelNamer); ok {
		model = named.Model()
	}
	logger.WithCommonFields(log, provider, model).Debug("embedding provider ready")

	return NewCached(base), nil
}

// RequiresAPIKey reports whether the provider talks to a remote API.
func RequiresAPIKey(provider string) bool {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderHashing:
		return false
	default:
		return true
	}
}
