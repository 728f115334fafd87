package tui

import (
	"strings"
	"testing"
)

func TestMatchedRunesIgnoresCase(t *testing.T) {
	got := matchedRunes([]rune("Hello"), "hallo")
	want := []bool{true, false, true, true, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rune %d: expected %v, got %v (%v)", i, want[i], got[i], got)
		}
	}
}

func TestMatchedRunesEmptySpoken(t *testing.T) {
	for i, ok := range matchedRunes([]rune("abc"), "") {
		if ok {
			t.Fatalf("rune %d unexpectedly matched", i)
		}
	}
}

func TestBuildStyledRunesPendingUntilScored(t *testing.T) {
	runes := buildStyledRunes([]rune("ab"), []bool{true, false}, false)
	if len(runes) != 2 {
		t.Fatalf("expected 2 runes, got %d", len(runes))
	}
	if runes[0].s != pendingStyle.Render("a") || runes[1].s != pendingStyle.Render("b") {
		t.Fatalf("expected pending style before scoring")
	}
}

func TestBuildStyledRunesMatchedAndMissed(t *testing.T) {
	runes := buildStyledRunes([]rune("a b"), []bool{true, false, false}, true)
	if runes[0].s != matchedStyle.Render("a") {
		t.Fatalf("expected matched style for first rune")
	}
	if runes[1].s != pendingStyle.Render(" ") || !runes[1].isSpace {
		t.Fatalf("expected spaces to stay neutral")
	}
	if runes[2].s != missedStyle.Render("b") {
		t.Fatalf("expected missed style for unmatched rune")
	}
}

func TestBuildStyledRunesWideRunes(t *testing.T) {
	runes := buildStyledRunes([]rune("日本"), nil, false)
	if runes[0].width != 2 || runes[1].width != 2 {
		t.Fatalf("expected double-width runes, got %d and %d", runes[0].width, runes[1].width)
	}
}

func TestWrapStyledRunesBreaksAtSpace(t *testing.T) {
	runes := buildStyledRunes([]rune("one two three"), nil, false)
	wrapped := wrapStyledRunes(runes, 8)
	lines := strings.Split(wrapped, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), wrapped)
	}
	if lines[0] != renderStyledRunes(runes[:7]) {
		t.Fatalf("unexpected first line %q", lines[0])
	}
}
