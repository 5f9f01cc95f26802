package indexer

import "time"

// Stage is the position of a document in the indexing state machine.
type Stage string

const (
	StagePending   Stage = "pending"
	StageLoaded    Stage = "loaded"
	StageSplit     Stage = "split"
	StageEmbedded  Stage = "embedded"
	StageCommitted Stage = "committed"
	StageFailed    Stage = "failed"
)

// DocumentStatus is the per-document outcome of an indexing attempt. When
// Stage is StageFailed, FailedStage names the stage that broke and Err
// carries the cause, so targeted re-indexing knows where to look.
type DocumentStatus struct {
	DocumentID  string
	SourcePath  string
	Stage       Stage
	FailedStage Stage
	ChunkCount  int
	Skipped     bool
	Err         error
}

// Failed reports whether the document did not reach a committed state.
func (s DocumentStatus) Failed() bool {
	return s.Stage == StageFailed
}

// ProgressFunc is called after each document finishes during a bulk run.
type ProgressFunc func(done, total int, sourcePath string)

// Summary reports the outcome of one bulk indexing run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Statuses   []DocumentStatus
}

// Duration is the wall-clock time the run took.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
