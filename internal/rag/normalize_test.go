package rag

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeLineEndings(t *testing.T) {
	doc, err := Normalize(RawInput{
		Text:       "first line\r\nsecond line\rthird line",
		SourcePath: "data/notices/a.txt",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if strings.Contains(doc.Content, "\r") {
		t.Errorf("carriage returns survived normalization: %q", doc.Content)
	}
	if doc.Content != "first line\nsecond line\nthird line" {
		t.Errorf("unexpected content: %q", doc.Content)
	}
}

func TestNormalizeTrimsTrailingSpace(t *testing.T) {
	doc, err := Normalize(RawInput{
		Text:       "heading   \nbody\t\n",
		SourcePath: "data/notices/b.txt",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Content != "heading\nbody" {
		t.Errorf("unexpected content: %q", doc.Content)
	}
}

func TestNormalizeCollapsesBlankRuns(t *testing.T) {
	doc, err := Normalize(RawInput{
		Text:       "alpha\n\n\n\n\n\nbeta",
		SourcePath: "data/notices/c.txt",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Content != "alpha\n\n\nbeta" {
		t.Errorf("blank run not collapsed to two blank lines: %q", doc.Content)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	in := RawInput{
		Text:       "Lecture halls:\r\n\r\n  A1, A2  \r\n\r\n\r\n\r\nLabs: L1",
		SourcePath: "data/timetables/halls.txt",
		Category:   "timetables",
	}
	first, err := Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	second, err := Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if first.Content != second.Content {
		t.Errorf("same input normalized differently:\n%q\n%q", first.Content, second.Content)
	}
	if first.ID != second.ID {
		t.Errorf("same input produced different document IDs: %s vs %s", first.ID, second.ID)
	}
}

func TestNormalizeDefaultsCategory(t *testing.T) {
	doc, err := Normalize(RawInput{Text: "x", SourcePath: "data/x.txt"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Meta.Category != DefaultCategory {
		t.Errorf("expected category %q, got %q", DefaultCategory, doc.Meta.Category)
	}
}

func TestNormalizeRejectsMissingSourcePath(t *testing.T) {
	_, err := Normalize(RawInput{Text: "orphan"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNormalizeRejectsEmptyMetadataKey(t *testing.T) {
	_, err := Normalize(RawInput{
		Text:       "x",
		SourcePath: "data/x.txt",
		Extra:      map[string]string{" ": "value"},
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
