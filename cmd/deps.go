package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/embedding"
	"github.com/spigell/interview-scorer/internal/evaluation"
	"github.com/spigell/interview-scorer/internal/logger"
	"github.com/spigell/interview-scorer/internal/normalizer"
	"github.com/spigell/interview-scorer/internal/rubric"
	"github.com/spigell/interview-scorer/internal/secrets"
)

var apiKeyFileEnv = map[string]string{
	embedding.ProviderGemini: "GEMINI_API_KEY_FILE",
	embedding.ProviderOpenAI: "OPENAI_API_KEY_FILE",
}

type components struct {
	logger     *zap.Logger
	config     *Config
	embedder   embedding.Embedder
	normalizer *normalizer.Normalizer
	store      *rubric.Store
	evaluator  *evaluation.Evaluator
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// setup builds everything the evaluate and session commands need. Errors
// are fatal.
func setup(ctx context.Context) *components {
	c := &components{logger: newLogger()}

	config, err := getConfig()
	if err != nil {
		c.logger.Fatal("getting a config", zap.Error(err))
	}
	c.config = config

	c.logger.Debug("starting", zap.String("version", version), zap.Any("config", redacted(config)))

	if config.RubricFile == "" {
		c.logger.Fatal("rubric file is required",
			zap.String("hint", "set rubric-file in the configuration file or pass --rubric-file"),
		)
	}

	c.store, err = rubric.LoadFile(config.RubricFile)
	if err != nil {
		c.logger.Fatal("loading rubric", zap.Error(err))
	}
	c.logger.Debug("rubric loaded", zap.Int("questions", c.store.Len()))

	c.embedder, err = newEmbedder(ctx, config.Embedding, c.logger)
	if err != nil {
		c.logger.Fatal("building embedder", zap.Error(err))
	}

	c.normalizer, err = newNormalizer(config, c.embedder, c.logger)
	if err != nil {
		c.logger.Fatal("building normalizer", zap.Error(err))
	}

	engine := rubric.NewEngine(c.embedder, c.logger, config.Scoring.SimilarityThreshold, config.Scoring.MinTokens)
	c.evaluator = evaluation.New(c.normalizer, engine, c.store, evaluation.Options{
		Timeout:      config.Embedding.Timeout,
		Workers:      config.Session.Workers,
		Logger:       c.logger,
		MaxLogLength: config.MaxLogLength,
	})

	return c
}

func newEmbedder(ctx context.Context, cfg *EmbeddingConfig, log *zap.Logger) (embedding.Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = embedding.ProviderGemini
	}

	var apiKey string
	if embedding.RequiresAPIKey(provider) {
		key, err := secrets.Load(secrets.Source{
			Name:    provider + " api key",
			Value:   cfg.APIKey,
			File:    cfg.APIKeyFile,
			FileEnv: apiKeyFileEnv[provider],
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.api-key-file)", err)
		}
		apiKey = key
	}

	cached, err := embedding.New(ctx, embedding.Config{
		Provider:   provider,
		Model:      cfg.Model,
		APIKey:     apiKey,
		BaseURL:    cfg.BaseURL,
		MaxRetries: cfg.MaxRetries,
		Dimensions: cfg.Dimensions,
	}, log)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func newNormalizer(config *Config, emb embedding.Embedder, log *zap.Logger) (*normalizer.Normalizer, error) {
	opts := normalizer.Options{
		Embedder:          emb,
		ContextCorrection: config.Normalizer.ContextCorrection,
		DomainTerms:       config.Normalizer.DomainTerms,
		Phrases:           config.Normalizer.Phrases,
		Logger:            log,
		MaxLogLength:      config.MaxLogLength,
	}

	if config.Normalizer.DictionaryFile != "" {
		dict, err := normalizer.LoadDictionaryFile(config.Normalizer.DictionaryFile)
		if err != nil {
			return nil, err
		}
		opts.Dictionary = dict
	}

	return normalizer.New(opts), nil
}

// redacted returns a copy of config safe to log.
func redacted(config *Config) Config {
	out := *config
	if config.Embedding != nil {
		emb := *config.Embedding
		if emb.APIKey != "" {
			emb.APIKey = "***"
		}
		out.Embedding = &emb
	}
	return out
}
