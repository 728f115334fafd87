// Package stats contains result statistics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/store"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a learner's sessions.
type Summary struct {
	Sessions     int
	Prompts      int
	Cleared      int
	AvgAccuracy  float64
	BestAccuracy float64
	BestScore    int
}

// Summarize aggregates records. Accuracy is averaged per session.
func Summarize(records []model.ResultRecord) Summary {
	var s Summary
	var accSum float64
	for _, r := range records {
		s.Sessions++
		s.Prompts += r.Total
		s.Cleared += r.Score
		acc := r.Accuracy()
		accSum += acc
		if acc > s.BestAccuracy {
			s.BestAccuracy = acc
		}
		if r.Score > s.BestScore {
			s.BestScore = r.Score
		}
	}
	if s.Sessions > 0 {
		s.AvgAccuracy = accSum / float64(s.Sessions)
	}
	return s
}

// AccuracySeries returns each session's accuracy in percent.
func AccuracySeries(records []model.ResultRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Accuracy() * 100
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderLeaderboard prints the ranked results.
func RenderLeaderboard(w io.Writer, records []model.ResultRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No results yet.")
		return err
	}
	headers := []string{"#", "Learner", "Lang", "Mode", "Score", "Accuracy", "When"}
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.LearnerName,
			r.Language,
			string(r.Mode),
			fmt.Sprintf("%d/%d", r.Score, r.Total),
			fmt.Sprintf("%.1f%%", r.Accuracy()*100),
			r.Timestamp.Format(store.TimestampLayout),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 4: true, 5: true}))
}

// RenderHistory prints one learner's results in chronological order.
func RenderHistory(w io.Writer, records []model.ResultRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"When", "Lang", "Mode", "Score", "Accuracy"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Timestamp.Format(store.TimestampLayout),
			r.Language,
			string(r.Mode),
			fmt.Sprintf("%d/%d", r.Score, r.Total),
			fmt.Sprintf("%.1f%%", r.Accuracy()*100),
		})
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{3: true, 4: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSummary prints a summary of records with an accuracy sparkline.
func RenderSummary(w io.Writer, records []model.ResultRecord, window int) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	s := Summarize(records)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", s.Sessions),
		fmt.Sprintf("Prompts cleared: %d/%d", s.Cleared, s.Prompts),
		fmt.Sprintf("Avg Accuracy: %.2f%%", s.AvgAccuracy*100),
		fmt.Sprintf("Best Accuracy: %.2f%%", s.BestAccuracy*100),
		fmt.Sprintf("Trend: %s", Sparkline(MovingAverage(AccuracySeries(records), window))),
		"",
	}
	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
