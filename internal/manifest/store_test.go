package manifest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studystack/campusrag/internal/db"
	"github.com/studystack/campusrag/internal/rag"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestPutAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec := Record{
		DocumentID:    "a1b2c3d4e5f60718",
		SourcePath:    "notices/exam-schedule.txt",
		Category:      "notices",
		ContentHash:   "deadbeef",
		ChunkCount:    4,
		LastIndexedAt: time.Date(2025, 8, 1, 10, 30, 0, 0, time.UTC),
	}

	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.SourcePath != rec.SourcePath {
		t.Errorf("SourcePath = %q, want %q", got.SourcePath, rec.SourcePath)
	}
	if got.Category != "notices" {
		t.Errorf("Category = %q, want %q", got.Category, "notices")
	}
	if got.ContentHash != "deadbeef" {
		t.Errorf("ContentHash = %q, want %q", got.ContentHash, "deadbeef")
	}
	if got.ChunkCount != 4 {
		t.Errorf("ChunkCount = %d, want 4", got.ChunkCount)
	}
	if !got.LastIndexedAt.Equal(rec.LastIndexedAt) {
		t.Errorf("LastIndexedAt = %v, want %v", got.LastIndexedAt, rec.LastIndexedAt)
	}
}

func TestPutUpdatesExisting(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec := Record{
		DocumentID:  "doc-1",
		SourcePath:  "syllabus/cs101.md",
		Category:    "syllabus",
		ContentHash: "hash-v1",
		ChunkCount:  3,
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec.ContentHash = "hash-v2"
	rec.ChunkCount = 5
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ContentHash != "hash-v2" {
		t.Errorf("ContentHash = %q, want %q", got.ContentHash, "hash-v2")
	}
	if got.ChunkCount != 5 {
		t.Errorf("ChunkCount = %d, want 5", got.ChunkCount)
	}

	records, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record after update, got %d", len(records))
	}
}

func TestPutDefaults(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, Record{
		DocumentID:  "doc-1",
		SourcePath:  "orientation.txt",
		ContentHash: "abc",
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Category != rag.DefaultCategory {
		t.Errorf("Category = %q, want %q", got.Category, rag.DefaultCategory)
	}
	if got.LastIndexedAt.IsZero() {
		t.Error("expected LastIndexedAt to default to now, got zero time")
	}
}

func TestPutRequiresDocumentID(t *testing.T) {
	store := setupStore(t)

	if err := store.Put(context.Background(), Record{SourcePath: "x.txt"}); err == nil {
		t.Error("expected error for empty document ID, got nil")
	}
}

func TestGetMissing(t *testing.T) {
	store := setupStore(t)

	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, rag.ErrNotFound) {
		t.Errorf("expected rag.ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, Record{
		DocumentID:  "doc-1",
		SourcePath:  "notices/holiday.txt",
		ContentHash: "abc",
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := store.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "doc-1"); !errors.Is(err, rag.ErrNotFound) {
		t.Errorf("expected rag.ErrNotFound after delete, got %v", err)
	}

	// Deleting again is a no-op.
	if err := store.Delete(ctx, "doc-1"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestListByCategory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	docs := []Record{
		{DocumentID: "d1", SourcePath: "exams/midterm.txt", Category: "exams", ContentHash: "h1"},
		{DocumentID: "d2", SourcePath: "notices/alert.txt", Category: "notices", ContentHash: "h2"},
		{DocumentID: "d3", SourcePath: "exams/final.txt", Category: "exams", ContentHash: "h3"},
	}
	for _, d := range docs {
		if err := store.Put(ctx, d); err != nil {
			t.Fatalf("Put %s: %v", d.DocumentID, err)
		}
	}

	exams, err := store.List(ctx, "exams")
	if err != nil {
		t.Fatalf("List(exams): %v", err)
	}
	if len(exams) != 2 {
		t.Fatalf("expected 2 exam records, got %d", len(exams))
	}

	// Ordered by source path.
	if exams[0].SourcePath != "exams/final.txt" || exams[1].SourcePath != "exams/midterm.txt" {
		t.Errorf("unexpected order: %q, %q", exams[0].SourcePath, exams[1].SourcePath)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List(all): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records, got %d", len(all))
	}
}

func TestUnchanged(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, Record{
		DocumentID:  "doc-1",
		SourcePath:  "regulations/attendance.txt",
		ContentHash: "hash-a",
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if !store.Unchanged(ctx, "doc-1", "hash-a") {
		t.Error("expected Unchanged = true for matching hash")
	}
	if store.Unchanged(ctx, "doc-1", "hash-b") {
		t.Error("expected Unchanged = false for different hash")
	}
	if store.Unchanged(ctx, "doc-missing", "hash-a") {
		t.Error("expected Unchanged = false for unknown document")
	}
}

func TestRecordRunAndRuns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := Run{
			RunID:      string(rune('a'+i)) + "-run",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Total:      10,
			Succeeded:  8,
			Failed:     1,
			Skipped:    1,
		}
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	runs, err := store.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}

	// Newest first.
	if runs[0].RunID != "c-run" {
		t.Errorf("first run = %q, want %q", runs[0].RunID, "c-run")
	}
	if runs[0].Total != 10 || runs[0].Succeeded != 8 || runs[0].Failed != 1 || runs[0].Skipped != 1 {
		t.Errorf("unexpected counters: %+v", runs[0])
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("StartedAt = %v, want %v", runs[0].StartedAt, base.Add(2*time.Hour))
	}

	limited, err := store.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(limited))
	}
}

func TestRecordRunRequiresID(t *testing.T) {
	store := setupStore(t)

	if err := store.RecordRun(context.Background(), Run{Total: 1}); err == nil {
		t.Error("expected error for empty run ID, got nil")
	}
}

func TestStats(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	docs := []Record{
		{DocumentID: "d1", SourcePath: "exams/midterm.txt", Category: "exams", ContentHash: "h1", ChunkCount: 3},
		{DocumentID: "d2", SourcePath: "notices/alert.txt", Category: "notices", ContentHash: "h2", ChunkCount: 2},
		{DocumentID: "d3", SourcePath: "exams/final.txt", Category: "exams", ContentHash: "h3", ChunkCount: 5},
	}
	for _, d := range docs {
		if err := store.Put(ctx, d); err != nil {
			t.Fatalf("Put %s: %v", d.DocumentID, err)
		}
	}

	if err := store.RecordRun(ctx, Run{
		RunID:      "run-1",
		StartedAt:  time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 8, 1, 9, 5, 0, 0, time.UTC),
		Total:      3,
		Succeeded:  3,
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.Documents != 3 {
		t.Errorf("Documents = %d, want 3", stats.Documents)
	}
	if stats.Chunks != 10 {
		t.Errorf("Chunks = %d, want 10", stats.Chunks)
	}
	if stats.ByCategory["exams"] != 2 || stats.ByCategory["notices"] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
	if stats.LastRun == nil || stats.LastRun.RunID != "run-1" {
		t.Errorf("LastRun = %+v, want run-1", stats.LastRun)
	}
}

func TestStatsEmpty(t *testing.T) {
	store := setupStore(t)

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Documents != 0 || stats.Chunks != 0 {
		t.Errorf("expected zero counts, got %+v", stats)
	}
	if stats.LastRun != nil {
		t.Errorf("expected nil LastRun, got %+v", stats.LastRun)
	}
}
