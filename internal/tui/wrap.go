package tui

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/sayit/internal/similarity"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// matchedRunes marks the runes of target that appear in a matching block
// against spoken. Comparison is case-insensitive.
func matchedRunes(target []rune, spoken string) []bool {
	matched := make([]bool, len(target))
	if spoken == "" {
		return matched
	}
	blocks := similarity.MatchingBlocks(lowerRunes(target), lowerRunes([]rune(spoken)))
	for _, blk := range blocks {
		for i := blk.A; i < blk.A+blk.Size; i++ {
			matched[i] = true
		}
	}
	return matched
}

// lowerRunes lowercases rune by rune so indices stay aligned with the input.
func lowerRunes(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// buildStyledRunes renders the expected prompt. Until the learner has been
// scored every rune is pending; afterwards matched runes are highlighted and
// the rest marked as missed.
func buildStyledRunes(targetRunes []rune, matched []bool, scored bool) []styledRune {
	out := make([]styledRune, 0, len(targetRunes))
	for i, target := range targetRunes {
		style := pendingStyle
		if scored && target != ' ' {
			if i < len(matched) && matched[i] {
				style = matchedStyle
			} else {
				style = missedStyle
			}
		}
		out = append(out, styledRune{
			s:       style.Render(string(target)),
			width:   runewidth.RuneWidth(target),
			isSpace: target == ' ',
		})
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks at the last space that fits, or mid-word when a
// word is wider than the line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
