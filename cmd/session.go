package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/evaluation"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Score every answer of an interview session",
	Run: func(cmd *cobra.Command, _ []string) {
		session(cmd)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringP("answers", "a", "", "answers file: a list of {question_id, transcript, acoustic} (yaml or json)")
	sessionCmd.MarkFlagRequired("answers")
}

type sessionOutput struct {
	Summary evaluation.Summary  `json:"summary"`
	Records []evaluation.Record `json:"records"`
}

func session(cmd *cobra.Command) {
	ctx := context.Background()
	c := setup(ctx)

	path, _ := cmd.Flags().GetString("answers")
	reqs, err := evaluation.LoadRequests(path)
	if err != nil {
		c.logger.Fatal("loading answers", zap.Error(err))
	}

	if len(reqs) == 0 {
		c.logger.Info("exiting", zap.String("reason", "no answers in file"))
		return
	}

	c.logger.Info("evaluating session",
		zap.String("session_id", c.evaluator.SessionID()),
		zap.Int("answers", len(reqs)),
	)

	records := c.evaluator.EvaluateSession(ctx, reqs)
	summary := evaluation.Summarize(c.evaluator.SessionID(), records)

	if summary.Failed > 0 {
		c.logger.Warn("some answers could not be scored", zap.Int("failed", summary.Failed))
	}

	if err := printJSON(cmd.OutOrStdout(), sessionOutput{Summary: summary, Records: records}); err != nil {
		c.logger.Fatal("printing session", zap.Error(err))
	}
}
