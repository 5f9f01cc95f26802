package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/studystack/campusrag/internal/embeddings"
	"github.com/studystack/campusrag/internal/manifest"
	"github.com/studystack/campusrag/internal/rag"
	"github.com/studystack/campusrag/internal/splitter"
	"github.com/studystack/campusrag/internal/vectordb"
)

const (
	storeRetryAttempts = 3
	storeRetryDelay    = 500 * time.Millisecond
)

// Options configure the indexing pipeline.
type Options struct {
	// MaxConcurrency bounds how many documents a bulk run indexes at
	// once. Values below 1 mean serial.
	MaxConcurrency int
}

// Pipeline runs documents through normalize, split, embed and commit.
// Chunk IDs are derived from the document ID and chunk position, so
// re-running any document upserts the same IDs instead of duplicating
// them, and an interrupted run is always safe to retry.
type Pipeline struct {
	splitter    *splitter.Splitter
	embedder    embeddings.Embedder
	store       vectordb.Store
	manifest    *manifest.Store
	concurrency int
}

// New creates a pipeline from its collaborators.
func New(split *splitter.Splitter, embedder embeddings.Embedder, store vectordb.Store, man *manifest.Store, opts Options) (*Pipeline, error) {
	if split == nil {
		return nil, fmt.Errorf("%w: splitter is required", rag.ErrInvalidConfig)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", rag.ErrInvalidConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: vector store is required", rag.ErrInvalidConfig)
	}
	if man == nil {
		return nil, fmt.Errorf("%w: manifest store is required", rag.ErrInvalidConfig)
	}

	concurrency := opts.MaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Pipeline{
		splitter:    split,
		embedder:    embedder,
		store:       store,
		manifest:    man,
		concurrency: concurrency,
	}, nil
}

// Index runs the full chain for one document. Content already indexed at
// the same hash is skipped; everything else is split, embedded and
// upserted, then recorded in the manifest. The returned status reflects
// how far the document got; the error is the same failure for callers
// that only want the short path.
func (p *Pipeline) Index(ctx context.Context, in rag.RawInput) (DocumentStatus, error) {
	return p.index(ctx, in, false)
}

func (p *Pipeline) index(ctx context.Context, in rag.RawInput, force bool) (DocumentStatus, error) {
	status := DocumentStatus{SourcePath: in.SourcePath, Stage: StagePending}

	doc, err := rag.Normalize(in)
	if err != nil {
		return p.fail(status, StageLoaded, fmt.Errorf("normalizing %s: %w", in.SourcePath, err))
	}
	status.DocumentID = doc.ID
	status.Stage = StageLoaded

	hash := rag.ContentHash(doc.Content)
	if !force && p.manifest.Unchanged(ctx, doc.ID, hash) {
		status.Skipped = true
		status.Stage = StageCommitted
		if rec, err := p.manifest.Get(ctx, doc.ID); err == nil {
			status.ChunkCount = rec.ChunkCount
		}
		return status, nil
	}

	chunks := p.splitter.Split(doc)
	status.Stage = StageSplit
	status.ChunkCount = len(chunks)

	// An emptied document still commits: its stale chunks go away and the
	// manifest records zero chunks.
	if len(chunks) == 0 {
		if err := p.retryStore(ctx, func() error {
			return p.store.DeleteByDocument(ctx, doc.ID)
		}); err != nil {
			return p.fail(status, StageCommitted, err)
		}
		if err := p.commit(ctx, doc, hash, 0); err != nil {
			return p.fail(status, StageCommitted, err)
		}
		status.Stage = StageCommitted
		return status, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return p.fail(status, StageEmbedded, fmt.Errorf("embedding document %s: %w", doc.ID, err))
	}
	status.Stage = StageEmbedded

	// A shrunk document would leave high-index chunks behind; clear them
	// before upserting the new set.
	if rec, err := p.manifest.Get(ctx, doc.ID); err == nil && rec.ChunkCount > len(chunks) {
		if err := p.retryStore(ctx, func() error {
			return p.store.DeleteByDocument(ctx, doc.ID)
		}); err != nil {
			return p.fail(status, StageCommitted, err)
		}
	}

	if err := p.retryStore(ctx, func() error {
		return p.store.UpsertBatch(ctx, chunks, vectors)
	}); err != nil {
		return p.fail(status, StageCommitted, fmt.Errorf("committing document %s: %w", doc.ID, err))
	}

	if err := p.commit(ctx, doc, hash, len(chunks)); err != nil {
		return p.fail(status, StageCommitted, err)
	}

	status.Stage = StageCommitted
	return status, nil
}

// commit records the document in the manifest after its chunks are stored.
func (p *Pipeline) commit(ctx context.Context, doc rag.Document, hash string, chunkCount int) error {
	err := p.manifest.Put(ctx, manifest.Record{
		DocumentID:    doc.ID,
		SourcePath:    doc.Meta.SourcePath,
		Category:      doc.Meta.Category,
		ContentHash:   hash,
		ChunkCount:    chunkCount,
		LastIndexedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("recording document %s in manifest: %w", doc.ID, err)
	}
	return nil
}

func (p *Pipeline) fail(status DocumentStatus, stage Stage, err error) (DocumentStatus, error) {
	status.Stage = StageFailed
	status.FailedStage = stage
	status.Err = err
	return status, err
}

// retryStore retries fn with backoff while the store reports itself
// unavailable. Any other error returns immediately.
func (p *Pipeline) retryStore(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < storeRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(storeRetryDelay << (attempt - 1)):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Is(err, rag.ErrStoreUnavailable) {
			return err
		}
	}
	return err
}

// ReindexAll indexes every input with bounded concurrency. A failed
// document is recorded and the run continues; the summary reports per-
// document outcomes and is also written to the manifest run history.
func (p *Pipeline) ReindexAll(ctx context.Context, inputs []rag.RawInput, force bool, onProgress ProgressFunc) Summary {
	summary := Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Total:     len(inputs),
		Statuses:  make([]DocumentStatus, len(inputs)),
	}

	if len(inputs) > 0 {
		sem := make(chan struct{}, p.concurrency)
		var wg sync.WaitGroup
		var done int64

		for i, in := range inputs {
			select {
			case <-ctx.Done():
				summary.Statuses[i] = DocumentStatus{
					SourcePath:  in.SourcePath,
					Stage:       StageFailed,
					FailedStage: StagePending,
					Err:         ctx.Err(),
				}
				count := atomic.AddInt64(&done, 1)
				if onProgress != nil {
					onProgress(int(count), len(inputs), in.SourcePath)
				}
				continue
			case sem <- struct{}{}:
			}

			wg.Add(1)
			go func(i int, in rag.RawInput) {
				defer wg.Done()
				defer func() { <-sem }()

				status, _ := p.index(ctx, in, force)
				summary.Statuses[i] = status

				count := atomic.AddInt64(&done, 1)
				if onProgress != nil {
					onProgress(int(count), len(inputs), in.SourcePath)
				}
			}(i, in)
		}
		wg.Wait()
	}

	for _, status := range summary.Statuses {
		switch {
		case status.Failed():
			summary.Failed++
		case status.Skipped:
			summary.Skipped++
		default:
			summary.Succeeded++
		}
	}
	summary.FinishedAt = time.Now().UTC()

	// Run history is advisory; a failure to record it does not undo the
	// committed documents.
	_ = p.manifest.RecordRun(ctx, manifest.Run{
		RunID:      summary.RunID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Total:      summary.Total,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
	})

	return summary
}

// Remove deletes a document's chunks and manifest record. Removing an
// absent document is a no-op.
func (p *Pipeline) Remove(ctx context.Context, documentID string) error {
	if err := p.retryStore(ctx, func() error {
		return p.store.DeleteByDocument(ctx, documentID)
	}); err != nil {
		return fmt.Errorf("removing document %s: %w", documentID, err)
	}
	if err := p.manifest.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("removing document %s from manifest: %w", documentID, err)
	}
	return nil
}
