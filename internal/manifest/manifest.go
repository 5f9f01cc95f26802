package manifest

import "time"

// Record tracks one indexed document and the content fingerprint it was
// last indexed at.
type Record struct {
	DocumentID    string
	SourcePath    string
	Category      string
	ContentHash   string
	ChunkCount    int
	LastIndexedAt time.Time
}

// Run summarizes one indexing pass over the corpus.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
}

// Stats aggregates manifest contents for status reporting.
type Stats struct {
	Documents  int
	Chunks     int
	ByCategory map[string]int
	LastRun    *Run
}
