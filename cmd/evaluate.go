package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/confidence"
	"github.com/spigell/interview-scorer/internal/evaluation"
	"github.com/spigell/interview-scorer/internal/rubric"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a single transcribed answer",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("question", "q", "", "question id from the rubric file. Prompted for when empty.")
	addTranscriptFlags(evaluateCmd)
	evaluateCmd.Flags().Float64("acoustic", 0, "recognizer likelihood: average log-probability (<= 0) or probability (0, 1]")
}

func addTranscriptFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("transcript", "t", "", "transcript text")
	cmd.Flags().String("transcript-file", "", "file with the transcript text. Use - for stdin.")
}

func evaluate(cmd *cobra.Command) {
	ctx := context.Background()
	c := setup(ctx)

	transcript, err := readTranscript(cmd)
	if err != nil {
		c.logger.Fatal("reading transcript", zap.Error(err))
	}

	questionID, _ := cmd.Flags().GetString("question")
	if questionID == "" {
		questionID, err = selectQuestion(c.store)
		if err != nil {
			c.logger.Fatal("selecting question", zap.Error(err))
		}
	}

	acoustic := confidence.NoAcoustic()
	if cmd.Flags().Changed("acoustic") {
		v, _ := cmd.Flags().GetFloat64("acoustic")
		acoustic = confidence.NewAcoustic(v)
	}

	record := c.evaluator.Evaluate(ctx, evaluation.Request{
		QuestionID: questionID,
		Transcript: transcript,
		Acoustic:   acoustic,
	})

	if err := printJSON(cmd.OutOrStdout(), record); err != nil {
		c.logger.Fatal("printing record", zap.Error(err))
	}
}

func readTranscript(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("transcript")
	file, _ := cmd.Flags().GetString("transcript-file")

	switch {
	case text != "" && file != "":
		return "", fmt.Errorf("--transcript and --transcript-file are mutually exclusive")
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading transcript file: %w", err)
		}
		return string(data), nil
	default:
		return text, nil
	}
}

func selectQuestion(store *rubric.Store) (string, error) {
	ids := store.IDs()
	if len(ids) == 0 {
		return "", fmt.Errorf("rubric file has no questions")
	}

	items := make([]string, len(ids))
	for i, id := range ids {
		set, _ := store.Get(id)
		items[i] = strings.TrimSpace(id + " " + set.Question())
	}

	prompt := promptui.Select{
		Label: "Question",
		Items: items,
		Size:  10,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return ids[idx], nil
}

func printJSON(w io.Writer, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}
