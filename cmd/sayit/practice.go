package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/sayit/internal/observe"
	"github.com/verte-zerg/sayit/internal/session"
	"github.com/verte-zerg/sayit/internal/tui"
)

var (
	practiceLang    string
	practiceMode    string
	practiceLearner string
)

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run a practice session in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runPracticeCmd,
	}
	addPracticeFlags(cmd)
	return cmd
}

func addPracticeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&practiceLang, "lang", "en", "language code")
	cmd.Flags().StringVar(&practiceMode, "mode", "word", "prompt mode (word, sentence)")
	cmd.Flags().StringVar(&practiceLearner, "learner", "", "learner name shown on the leaderboard")
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// The alt screen owns the terminal; keep log lines out of it.
	logger, err := newLogger(io.Discard, s.logLevel)
	if err != nil {
		return err
	}
	rt, err := newRuntime(s, logger, observe.Discard())
	if err != nil {
		return err
	}
	defer rt.Close(logger)

	req, err := rt.engine.Validate(practiceLearner, practiceLang, practiceMode)
	if err != nil {
		return err
	}

	res, err := tui.Run(cmd.Context(), rt.engine, rt.store, req)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrStreamDisconnected), errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, session.ErrPersistence):
		logErrf("warning: %v\n", err)
	default:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s scored %d/%d (%.0f%%)\n", res.LearnerName, res.Score, res.Total, res.Accuracy()*100)
	return nil
}
