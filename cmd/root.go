package cmd

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "interview-scorer"
	envPrefix = "INTERVIEW_SCORER"
)

type Config struct {
	RubricFile   string           `mapstructure:"rubric-file"`
	Embedding    *EmbeddingConfig `mapstructure:"embedding"`
	Scoring      *ScoringConfig   `mapstructure:"scoring"`
	Normalizer   *NormalizerCfg   `mapstructure:"normalizer"`
	Session      *SessionConfig   `mapstructure:"session"`
	MaxLogLength int              `mapstructure:"max-log-length"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	BaseURL    string        `mapstructure:"base-url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
	Dimensions int           `mapstructure:"dimensions"`
}

type ScoringConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity-threshold"`
	MinTokens           int     `mapstructure:"min-tokens"`
}

type NormalizerCfg struct {
	// ContextCorrection enables the embedding-backed context stage. It embeds
	// every token of every answer and can rewrite correct words, so it
	// defaults to off.
	ContextCorrection bool              `mapstructure:"context-correction"`
	DomainTerms       []string          `mapstructure:"domain-terms"`
	Phrases           map[string]string `mapstructure:"phrases"`
	DictionaryFile    string            `mapstructure:"dictionary-file"`
}

type SessionConfig struct {
	Workers int `mapstructure:"workers"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-scorer grades transcribed interview answers against per-question rubrics",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	for _, key := range []string{"rubric-file", "embedding.api-key-file", "embedding.model"} {
		if err := viper.BindEnv(key); err != nil {
			log.Fatalf("binding environment variable for %s: %v", key, err)
		}
	}

	viper.SetDefault("embedding.provider", "gemini")
	viper.SetDefault("embedding.timeout", 20*time.Second)
	viper.SetDefault("embedding.max-retries", 3)
	viper.SetDefault("scoring.similarity-threshold", 0.40)
	viper.SetDefault("scoring.min-tokens", 5)
	viper.SetDefault("normalizer.context-correction", false)
	viper.SetDefault("session.workers", 4)
	viper.SetDefault("max-log-length", 200)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-scorer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("rubric-file", "", "rubric file with per-question tiers (yaml or json)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("rubric-file", rootCmd.PersistentFlags().Lookup("rubric-file"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine: flags, env and defaults still apply.
	// An explicit or unparsable config is not.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && cfgFile == "" {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Embedding == nil {
		config.Embedding = &EmbeddingConfig{}
	}
	if config.Scoring == nil {
		config.Scoring = &ScoringConfig{}
	}
	if config.Normalizer == nil {
		config.Normalizer = &NormalizerCfg{}
	}
	if config.Session == nil {
		config.Session = &SessionConfig{}
	}

	return config, nil
}
