package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studystack/campusrag/internal/db"
	"github.com/studystack/campusrag/internal/rag"
)

// Store persists document records and run history in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a manifest store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Put inserts or updates the record for a document.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if rec.DocumentID == "" {
		return errors.New("manifest: document ID is required")
	}
	if rec.Category == "" {
		rec.Category = rag.DefaultCategory
	}

	at := rec.LastIndexedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (document_id, source_path, category, content_hash, chunk_count, last_indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			source_path = excluded.source_path,
			category = excluded.category,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			last_indexed_at = excluded.last_indexed_at`,
		rec.DocumentID,
		rec.SourcePath,
		rec.Category,
		rec.ContentHash,
		rec.ChunkCount,
		at.UTC().Format(time.DateTime),
	)
	return err
}

// Get retrieves the record for a document. Missing documents yield
// rag.ErrNotFound.
func (s *Store) Get(ctx context.Context, documentID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, source_path, category, content_hash, chunk_count, last_indexed_at
		FROM documents
		WHERE document_id = ?`, documentID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %s", rag.ErrNotFound, documentID)
		}
		return nil, err
	}
	return rec, nil
}

// Delete removes the record for a document. Deleting an absent record is
// a no-op.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE document_id = ?`, documentID)
	return err
}

// List returns records ordered by source path. An empty category matches
// all documents.
func (s *Store) List(ctx context.Context, category string) ([]Record, error) {
	var conditions []string
	var args []any

	if category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, category)
	}

	query := "SELECT document_id, source_path, category, content_hash, chunk_count, last_indexed_at FROM documents"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY source_path ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Unchanged reports whether the document is already indexed at the given
// content hash. Lookup failures count as changed so the caller re-indexes
// instead of skipping.
func (s *Store) Unchanged(ctx context.Context, documentID, contentHash string) bool {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM documents WHERE document_id = ?`, documentID).Scan(&stored)
	if err != nil {
		return false
	}
	return stored == contentHash
}

// RecordRun appends one run to the history.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.RunID == "" {
		return errors.New("manifest: run ID is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_runs (run_id, started_at, finished_at, total, succeeded, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC().Format(time.DateTime),
		run.FinishedAt.UTC().Format(time.DateTime),
		run.Total,
		run.Succeeded,
		run.Failed,
		run.Skipped,
	)
	return err
}

// Runs returns run history, newest first. A limit of zero or less returns
// the full history.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT run_id, started_at, finished_at, total, succeeded, failed, skipped
		FROM index_runs
		ORDER BY started_at DESC, run_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.RunID, &started, &finished,
			&run.Total, &run.Succeeded, &run.Failed, &run.Skipped); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			run.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339, finished); err == nil {
			run.FinishedAt = t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Stats returns aggregate counts over the manifest plus the most recent
// run, if any.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByCategory: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(chunk_count), 0)
		FROM documents
		GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var docs, chunks int
		if err := rows.Scan(&category, &docs, &chunks); err != nil {
			return nil, err
		}
		stats.ByCategory[category] = docs
		stats.Documents += docs
		stats.Chunks += chunks
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs, err := s.Runs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		stats.LastRun = &runs[0]
	}

	return stats, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var lastIndexed string

	err := s.Scan(&rec.DocumentID, &rec.SourcePath, &rec.Category,
		&rec.ContentHash, &rec.ChunkCount, &lastIndexed)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, lastIndexed); err == nil {
		rec.LastIndexedAt = t
	}

	return &rec, nil
}
