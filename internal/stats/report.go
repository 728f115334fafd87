package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/sayit/internal/model"
)

// HistoryLister lists stored results.
type HistoryLister interface {
	ListResults(ctx context.Context, filter model.HistoryFilter) ([]model.ResultRecord, error)
}

// Report contains precomputed data for a learner's history.
type Report struct {
	Results []model.ResultRecord
	Curve   []float64
}

// BuildReport loads the filtered results and their smoothed accuracy curve.
func BuildReport(ctx context.Context, st HistoryLister, filter model.HistoryFilter, window int) (Report, error) {
	results, err := st.ListResults(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Results: results,
		Curve:   MovingAverage(AccuracySeries(results), window),
	}, nil
}

// Render prints the summary, history table and accuracy curve.
func (r Report) Render(w io.Writer, window, totalWidth int, useColor bool) error {
	if err := RenderSummary(w, r.Results, window); err != nil {
		return err
	}
	if len(r.Results) == 0 {
		return nil
	}
	if err := RenderHistory(w, r.Results); err != nil {
		return err
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotPercent(w, "Accuracy", r.Curve, width, 0, useColor)
}
