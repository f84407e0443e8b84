package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/embedding"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [text]",
	Short: "Print the normalized form of a transcript with per-stage reports",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		normalize(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	addTranscriptFlags(normalizeCmd)
}

func normalize(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	transcript, err := readTranscript(cmd)
	if err != nil {
		log.Fatal("reading transcript", zap.Error(err))
	}
	if transcript == "" {
		transcript = strings.Join(args, " ")
	}

	// The embedder only serves the optional context stage here, so a
	// missing key degrades instead of failing.
	var emb embedding.Embedder
	if config.Normalizer.ContextCorrection {
		emb, err = newEmbedder(ctx, config.Embedding, log)
		if err != nil {
			log.Warn("context correction disabled", zap.Error(err))
			emb = nil
		}
	}

	n, err := newNormalizer(config, emb, log)
	if err != nil {
		log.Fatal("building normalizer", zap.Error(err))
	}

	if err := printJSON(cmd.OutOrStdout(), n.Normalize(ctx, transcript)); err != nil {
		log.Fatal("printing result", zap.Error(err))
	}
}
