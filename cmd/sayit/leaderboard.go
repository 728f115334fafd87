package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/stats"
	"github.com/verte-zerg/sayit/internal/store"
)

var (
	boardLearner string
	boardLang    string
	boardSince   string
	boardLast    int
	boardWindow  int
)

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show top results, or one learner's history",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().StringVar(&boardLearner, "learner", "", "show history for this learner")
	cmd.Flags().StringVar(&boardLang, "lang", "", "filter history by language")
	cmd.Flags().StringVar(&boardSince, "since", "", "only include sessions since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&boardLast, "last", 0, "only include last N sessions")
	cmd.Flags().IntVar(&boardWindow, "window", 5, "moving average window")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if boardLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if boardWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	filter := model.HistoryFilter{
		LearnerName: strings.TrimSpace(boardLearner),
		Language:    strings.ToLower(strings.TrimSpace(boardLang)),
		Last:        boardLast,
	}
	if boardSince != "" {
		since, err := time.ParseInLocation("2006-01-02", boardSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &since
	}

	st, err := store.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		_ = st.Close() // Best-effort close.
	}()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if filter.LearnerName == "" {
		records, err := st.Leaderboard(ctx)
		if err != nil {
			return err
		}
		return stats.RenderLeaderboard(out, records)
	}

	report, err := stats.BuildReport(ctx, st, filter, boardWindow)
	if err != nil {
		return err
	}
	return report.Render(out, boardWindow, 0, false)
}
