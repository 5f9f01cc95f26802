package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/studystack/campusrag/internal/indexer"
	"github.com/studystack/campusrag/internal/rag"
)

// Watcher re-indexes documents as files under the data directory change.
// Editors fire several events per save, so events are debounced per path
// and only the last one within the window triggers work.
type Watcher struct {
	loader   *Loader
	pipeline *indexer.Pipeline
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher that feeds changes into the pipeline.
func NewWatcher(loader *Loader, pipeline *indexer.Pipeline, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		loader:   loader,
		pipeline: pipeline,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}
}

// Watch blocks until the context is done, indexing created and modified
// files and removing deleted ones. New subdirectories are added to the
// watch set as they appear.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("corpus: create watcher: %w", err)
	}
	defer fsw.Close()

	root, err := filepath.Abs(w.loader.DataDir())
	if err != nil {
		return fmt.Errorf("corpus: resolve data dir: %w", err)
	}
	if err := addRecursive(fsw, root); err != nil {
		return err
	}

	log.Printf("corpus: watching %s for changes", root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("corpus: watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		// A new directory needs watching; a new file indexes below.
		if isDir(name) {
			if err := addRecursive(fsw, name); err != nil {
				log.Printf("corpus: watch %s: %v", name, err)
			}
			return
		}
		w.schedule(name, func() { w.indexFile(ctx, name) })

	case event.Op.Has(fsnotify.Write):
		w.schedule(name, func() { w.indexFile(ctx, name) })

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.schedule(name, func() { w.removeFile(ctx, name) })
	}
}

// schedule resets the debounce timer for a path.
func (w *Watcher) schedule(path string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		fn()
	})
}

func (w *Watcher) indexFile(ctx context.Context, path string) {
	in, err := w.loader.LoadFile(path)
	if err != nil {
		log.Printf("corpus: %v", err)
		return
	}
	status, err := w.pipeline.Index(ctx, in)
	if err != nil {
		log.Printf("corpus: indexing %s: %v", in.SourcePath, err)
		return
	}
	if status.Skipped {
		return
	}
	log.Printf("corpus: indexed %s (%d chunks)", in.SourcePath, status.ChunkCount)
}

func (w *Watcher) removeFile(ctx context.Context, path string) {
	sourcePath, err := w.loader.SourcePath(path)
	if err != nil {
		log.Printf("corpus: %v", err)
		return
	}
	docID := rag.NewDocumentID(sourcePath)
	if err := w.pipeline.Remove(ctx, docID); err != nil {
		log.Printf("corpus: removing %s: %v", sourcePath, err)
		return
	}
	log.Printf("corpus: removed %s", sourcePath)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// addRecursive watches dir and every directory below it, skipping hidden
// ones.
func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("corpus: watch %s: %w", path, err)
		}
		return nil
	})
}
