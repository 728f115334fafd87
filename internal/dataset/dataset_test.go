package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/sayit/internal/model"
)

func writeDataset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		FileName("en", model.ModeWord):     "english_words.txt",
		FileName("hi", model.ModeSentence): "hindi_sentences.txt",
		FileName("de", model.ModeWord):     "de_words.txt",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestLoadSamplesDistinctPrompts(t *testing.T) {
	dir := t.TempDir()
	lines := strings.Fields("a b c d e f g h i j k l m n o")
	writeDataset(t, dir, "english_words.txt", "\n"+strings.Join(lines, "\n  \n")+"\n")

	src := NewSource(dir, WithSampler(NewSeededSampler(1)))
	prompts, err := src.Load("en", model.ModeWord)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(prompts) != DefaultSampleSize {
		t.Fatalf("expected %d prompts, got %d", DefaultSampleSize, len(prompts))
	}
	seen := map[string]bool{}
	for _, p := range prompts {
		if p == "" || seen[p] {
			t.Fatalf("unexpected prompt %q in %v", p, prompts)
		}
		seen[p] = true
	}
}

func TestLoadSmallDatasetReturnsAll(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "hindi_sentences.txt", "नमस्ते\nधन्यवाद\n")
	src := NewSource(dir)
	prompts, err := src.Load("hi", model.ModeSentence)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %v", prompts)
	}
}

func TestLoadEmptyOrMissing(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "english_sentences.txt", "\n   \n")
	src := NewSource(dir)
	if _, err := src.Load("en", model.ModeSentence); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for blank file, got %v", err)
	}
	if _, err := src.Load("en", model.ModeWord); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for missing file, got %v", err)
	}
}

func TestLoadFallback(t *testing.T) {
	src := NewSource(t.TempDir(), WithFallback(true), WithSampleSize(3))
	prompts, err := src.Load("en", model.ModeWord)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(prompts) != 3 {
		t.Fatalf("expected 3 fallback prompts, got %v", prompts)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "english_words.txt", "one\ntwo\n")
	src := NewSource(dir)
	infos := src.List([]string{"en"})
	if len(infos) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(infos))
	}
	if infos[0].Mode != model.ModeWord || infos[0].Count != 2 {
		t.Fatalf("unexpected word entry: %+v", infos[0])
	}
	if infos[1].Mode != model.ModeSentence || infos[1].Count != 0 {
		t.Fatalf("unexpected sentence entry: %+v", infos[1])
	}
}

func TestSampleDoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b", "c", "d"}
	out := NewSeededSampler(7).Sample(in, 4)
	if len(out) != 4 {
		t.Fatalf("expected 4, got %d", len(out))
	}
	if strings.Join(in, "") != "abcd" {
		t.Fatalf("input mutated: %v", in)
	}
}
