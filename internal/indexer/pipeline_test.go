package indexer

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/studystack/campusrag/internal/db"
	"github.com/studystack/campusrag/internal/manifest"
	"github.com/studystack/campusrag/internal/rag"
	"github.com/studystack/campusrag/internal/splitter"
	"github.com/studystack/campusrag/internal/vectordb"
)

// mockEmbedder produces deterministic normalized vectors. Texts containing
// failMarker make the whole batch fail, which is how the failure-path tests
// trigger an embedding error.
type mockEmbedder struct {
	dims       int
	failMarker string
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.failMarker != "" && strings.Contains(text, m.failMarker) {
			return nil, errors.New("backend rejected batch")
		}
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock-embedder" }

func (m *mockEmbedder) vector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		vec[(int(ch)+i)%m.dims] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func newTestPipeline(t *testing.T, embedder *mockEmbedder) (*Pipeline, vectordb.Store, *manifest.Store) {
	t.Helper()

	split, err := splitter.New(100, 20)
	if err != nil {
		t.Fatalf("splitter.New: %v", err)
	}

	store, err := vectordb.NewChromemStore("", embedder.dims, embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	man := manifest.NewStore(database)

	pipe, err := New(split, embedder, store, man, Options{MaxConcurrency: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pipe, store, man
}

func sampleInput(path, text string) rag.RawInput {
	return rag.RawInput{Text: text, SourcePath: path, Category: "syllabus"}
}

func TestIndexCommitsChunks(t *testing.T) {
	pipe, store, man := newTestPipeline(t, &mockEmbedder{dims: 16})
	ctx := context.Background()

	text := strings.Repeat("Operating systems cover processes and scheduling. ", 8)
	status, err := pipe.Index(ctx, sampleInput("syllabus/os.txt", text))
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if status.Stage != StageCommitted {
		t.Fatalf("expected committed, got %s", status.Stage)
	}
	if status.ChunkCount == 0 {
		t.Fatal("expected chunks to be produced")
	}
	if store.Count() != status.ChunkCount {
		t.Errorf("store holds %d chunks, status says %d", store.Count(), status.ChunkCount)
	}

	rec, err := man.Get(ctx, status.DocumentID)
	if err != nil {
		t.Fatalf("manifest Get: %v", err)
	}
	if rec.ChunkCount != status.ChunkCount {
		t.Errorf("manifest chunk count %d, want %d", rec.ChunkCount, status.ChunkCount)
	}
	if rec.Category != "syllabus" {
		t.Errorf("manifest category %q, want syllabus", rec.Category)
	}
}

func TestIndexIdempotent(t *testing.T) {
	pipe, store, _ := newTestPipeline(t, &mockEmbedder{dims: 16})
	ctx := context.Background()

	text := strings.Repeat("Attendance below 75 percent leads to debarment. ", 8)
	in := sampleInput("regulations/attendance.txt", text)

	first, err := pipe.Index(ctx, in)
	if err != nil {
		t.Fatalf("first Index: %v", err)
	}
	countAfterFirst := store.Count()

	second, err := pipe.Index(ctx, in)
	if err != nil {
		t.Fatalf("second Index: %v", err)
	}
	if !second.Skipped {
		t.Error("expected unchanged document to be skipped")
	}
	if second.ChunkCount != first.ChunkCount {
		t.Errorf("skipped status chunk count %d, want %d", second.ChunkCount, first.ChunkCount)
	}
	if store.Count() != countAfterFirst {
		t.Errorf("store count changed from %d to %d after re-index", countAfterFirst, store.Count())
	}
}

func TestIndexChangedContentReindexes(t *testing.T) {
	pipe, store, _ := newTestPipeline(t, &mockEmbedder{dims: 16})
	ctx := context.Background()

	in := sampleInput("notices/placement.txt", strings.Repeat("Placement drive in March. ", 10))
	if _, err := pipe.Index(ctx, in); err != nil {
		t.Fatalf("Index: %v", err)
	}

	in.Text = strings.Repeat("Placement drive moved to April. ", 10)
	status, err := pipe.Index(ctx, in)
	if err != nil {
		t.Fatalf("re-Index: %v", err)
	}
	if status.Skipped {
		t.Error("changed content must not be skipped")
	}
	if store.Count() != status.ChunkCount {
		t.Errorf("store holds %d chunks, want %d", store.Count(), status.ChunkCount)
	}
}

func TestIndexShrunkDocumentDropsStaleChunks(t *testing.T) {
	pipe, store, _ := newTestPipeline(t, &mockEmbedder{dims: 16})
	ctx := context.Background()

	long := sampleInput("notices/events.txt", strings.Repeat("Technical festival registration is open to all departments. ", 20))
	first, err := pipe.Index(ctx, long)
	if err != nil {
		t.Fatalf("Index long: %v", err)
	}
	if first.ChunkCount < 2 {
		t.Fatalf("test needs a multi-chunk document, got %d chunks", first.ChunkCount)
	}

	short := sampleInput("notices/events.txt", "Registration closed.")
	second, err := pipe.Index(ctx, short)
	if err != nil {
		t.Fatalf("Index short: %v", err)
	}
	if second.ChunkCount != 1 {
		t.Fatalf("expected 1 chunk for short document, got %d", second.ChunkCount)
	}
	if store.Count() != 1 {
		t.Errorf("stale chunks left behind: store holds %d, want 1", store.Count())
	}
}

func TestIndexEmptyDocumentCommitsZeroChunks(t *testing.T) {
	pipe, store, man := newTestPipeline(t, &mockEmbedder{dims: 16})
	ctx := context.Background()

	in := sampleInput("notices/cleared.txt", strings.Repeat("Old notice text here. ", 10))
	if _, err := pipe.Index(ctx, in); err != nil {
		t.Fatalf("Index: %v", err)
	}

	in.Text = "   \n\n  "
	status, err := pipe.Index(ctx, in)
	if err != nil {
		t.Fatalf("Index empty: %v", err)
	}
	if status.Stage != StageCommitted || status.ChunkCount != 0 {
		t.Fatalf("expected committed with 0 chunks, got %s/%d", status.Stage, status.ChunkCount)
	}
	if store.Count() != 0 {
		t.Errorf("store should be empty, holds %d", store.Count())
	}

	rec, err := man.Get(ctx, status.DocumentID)
	if err != nil {
		t.Fatalf("manifest Get: %v", err)
	}
	if rec.ChunkCount != 0 {
		t.Errorf("manifest chunk count %d, want 0", rec.ChunkCount)
	}
}

func TestIndexEmbedFailureThenRetrySucceeds(t *testing.T) {
	failing := &mockEmbedder{dims: 16, failMarker: "POISON"}
	pipe, store, man := newTestPipeline(t, failing)
	ctx := context.Background()

	in := sampleInput("exams/schedule.txt", "POISON exam schedule content")
	status, err := pipe.Index(ctx, in)
	if err == nil {
		t.Fatal("expected embedding failure")
	}
	if status.FailedStage != StageEmbedded {
		t.Errorf("failed stage %s, want %s", status.FailedStage, StageEmbedded)
	}
	if store.Count() != 0 {
		t.Errorf("failed index left %d chunks behind", store.Count())
	}
	if _, err := man.Get(ctx, status.DocumentID); !errors.Is(err, rag.ErrNotFound) {
		t.Errorf("failed index must not write a manifest record, got %v", err)
	}

	// Same document retries cleanly once the backend accepts it.
	failing.failMarker = ""
	retried, err := pipe.Index(ctx, in)
	if err != nil {
		t.Fatalf("retry Index: %v", err)
	}
	if retried.Stage != StageCommitted {
		t.Errorf("retry stage %s, want committed", retried.Stage)
	}
	if store.Count() != retried.ChunkCount {
		t.Errorf("store holds %d, want %d", store.Count(), retried.ChunkCount)
	}
}

func TestReindexAllPartialFailure(t *testing.T) {
	pipe, _, man := newTestPipeline(t, &mockEmbedder{dims: 16, failMarker: "POISON"})
	ctx := context.Background()

	inputs := []rag.RawInput{
		sampleInput("syllabus/ml.txt", "Machine learning covers regression and neural networks."),
		sampleInput("syllabus/bad.txt", "POISON content the backend rejects"),
		sampleInput("syllabus/ds.txt", "Data science covers preprocessing and visualization."),
	}

	var progressCalls int
	summary := pipe.ReindexAll(ctx, inputs, false, func(done, total int, _ string) {
		progressCalls++
		if total != len(inputs) {
			t.Errorf("progress total %d, want %d", total, len(inputs))
		}
	})

	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("summary total/succeeded/failed = %d/%d/%d, want 3/2/1",
			summary.Total, summary.Succeeded, summary.Failed)
	}
	if progressCalls != 3 {
		t.Errorf("progress called %d times, want 3", progressCalls)
	}
	if summary.RunID == "" {
		t.Error("summary must carry a run ID")
	}

	failed := summary.Statuses[1]
	if !failed.Failed() || failed.SourcePath != "syllabus/bad.txt" {
		t.Errorf("statuses must keep input order; got %+v", failed)
	}

	runs, err := man.Runs(ctx, 1)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID {
		t.Fatalf("run not recorded in manifest: %+v", runs)
	}
	if runs[0].Failed != 1 || runs[0].Succeeded != 2 {
		t.Errorf("recorded run counts %+v", runs[0])
	}
}

func TestReindexAllSkipsUnchangedUnlessForced(t *testing.T) {
	pipe, _, _ := newTestPipeline(t, &mockEmbedder{dims: 16})
	ctx := context.Background()

	inputs := []rag.RawInput{
		sampleInput("regulations/grading.txt", "Grading uses CGPA with grade points."),
	}

	first := pipe.ReindexAll(ctx, inputs, false, nil)
	if first.Succeeded != 1 {
		t.Fatalf("first run succeeded %d, want 1", first.Succeeded)
	}

	second := pipe.ReindexAll(ctx, inputs, false, nil)
	if second.Skipped != 1 {
		t.Errorf("second run skipped %d, want 1", second.Skipped)
	}

	forced := pipe.ReindexAll(ctx, inputs, true, nil)
	if forced.Succeeded != 1 || forced.Skipped != 0 {
		t.Errorf("forced run succeeded/skipped = %d/%d, want 1/0", forced.Succeeded, forced.Skipped)
	}
}

func TestRemoveCascadesAndIsIdempotent(t *testing.T) {
	embedder := &mockEmbedder{dims: 16}
	pipe, store, man := newTestPipeline(t, embedder)
	ctx := context.Background()

	keep := sampleInput("syllabus/keep.txt", "Cloud computing covers virtualization and containers.")
	drop := sampleInput("syllabus/drop.txt", "Networking covers routing and switching.")
	if _, err := pipe.Index(ctx, keep); err != nil {
		t.Fatalf("Index keep: %v", err)
	}
	dropStatus, err := pipe.Index(ctx, drop)
	if err != nil {
		t.Fatalf("Index drop: %v", err)
	}

	if err := pipe.Remove(ctx, dropStatus.DocumentID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	vec, _ := embedder.EmbedQuery(ctx, "routing and switching")
	results, err := store.Search(ctx, vec, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Chunk.DocumentID == dropStatus.DocumentID {
			t.Errorf("removed document still searchable: %s", r.Chunk.ID)
		}
	}
	if _, err := man.Get(ctx, dropStatus.DocumentID); !errors.Is(err, rag.ErrNotFound) {
		t.Errorf("manifest record should be gone, got %v", err)
	}

	// Removing an absent document is a no-op.
	if err := pipe.Remove(ctx, dropStatus.DocumentID); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}
