package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	terminalWidthBackup = 80
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	colorCurve          = "\x1b[36m"
)

// eighths fills one cell from the bottom in 1/8 steps.
var eighths = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// PlotPercent renders values in [0, 100] as a column chart. Each column is one
// sample after resampling to width; a width <= 0 fits the terminal.
func PlotPercent(w io.Writer, title string, values []float64, width, height int, forceColor bool) error {
	if len(values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width > len(values) {
		width = len(values)
	}
	cols := resample(values, width)
	useColor := shouldUseColor(w, forceColor)

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	levels := height * (len(eighths) - 1)
	for y := height - 1; y >= 0; y-- {
		label := ""
		switch y {
		case height - 1:
			label = "100%"
		case 0:
			label = "0%"
		}
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%4s%s", label, axisSeparator))
		if useColor {
			row.WriteString(colorCurve)
		}
		for _, v := range cols {
			filled := int(clampPercent(v) / 100 * float64(levels))
			cell := filled - y*(len(eighths)-1)
			if cell < 0 {
				cell = 0
			}
			if cell >= len(eighths) {
				cell = len(eighths) - 1
			}
			row.WriteRune(eighths[cell])
		}
		if useColor {
			row.WriteString(colorReset)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(row.String(), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - 4 - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

// resample averages values into width buckets.
func resample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return append([]float64(nil), values...)
	}
	out := make([]float64, width)
	for i := range out {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
