package retriever

import (
	"strings"
	"testing"

	"github.com/studystack/campusrag/internal/rag"
)

func TestFormatResultsEmpty(t *testing.T) {
	if got := FormatResults(nil); got != "No results found." {
		t.Errorf("FormatResults(nil) = %q", got)
	}
}

func TestFormatResults(t *testing.T) {
	results := []rag.SearchResult{
		{
			Chunk: rag.Chunk{
				Content: "Mid-semester exams start on 12 March.",
				Meta:    rag.DocumentMeta{SourcePath: "exams/schedule.txt", Category: "exams"},
			},
			Score: 0.8123,
			Rank:  1,
		},
		{
			Chunk: rag.Chunk{
				Content: "Hall tickets are issued one week before.",
				Meta:    rag.DocumentMeta{SourcePath: "exams/hall-tickets.txt", Category: "exams"},
			},
			Score: 0.64,
			Rank:  2,
		},
	}

	out := FormatResults(results)

	for _, want := range []string{
		"Found 2 result(s):",
		"--- Result 1 (score: 0.8123) ---",
		"Source: exams/schedule.txt",
		"Category: exams",
		"Mid-semester exams start on 12 March.",
		"--- Result 2 (score: 0.6400) ---",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatContext(t *testing.T) {
	results := []rag.SearchResult{
		{
			Chunk: rag.Chunk{
				Content: "Library is open 8am to 10pm on weekdays.",
				Meta:    rag.DocumentMeta{SourcePath: "notices/library.txt"},
			},
			Score: 0.77,
			Rank:  1,
		},
		{
			Chunk: rag.Chunk{
				Content: "Weekend hours are 9am to 5pm.",
				Meta:    rag.DocumentMeta{SourcePath: "notices/library.txt"},
			},
			Score: 0.52,
			Rank:  2,
		},
	}

	out := FormatContext(results)

	if !strings.HasPrefix(out, "Source 1: notices/library.txt (relevance: 0.77)\n") {
		t.Errorf("unexpected prefix:\n%s", out)
	}
	if !strings.Contains(out, "Source 2: notices/library.txt (relevance: 0.52)\n") {
		t.Errorf("missing second source:\n%s", out)
	}
	if !strings.Contains(out, "Weekend hours are 9am to 5pm.") {
		t.Errorf("missing chunk content:\n%s", out)
	}

	if FormatContext(nil) != "" {
		t.Error("expected empty context for no results")
	}
}
