package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/studystack/campusrag/internal/corpus"
	"github.com/studystack/campusrag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the campusrag HTTP server exposing query, document upload,
reindex and stats endpoints, plus a websocket stream of indexing
progress. With --watch the data directory is monitored and changed
files are reindexed automatically.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	serveCmd.Flags().Bool("watch", false, "watch the data directory and reindex changed files")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	watch, _ := cmd.Flags().GetBool("watch")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}

	eng, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	loader := newLoader(cfg)
	srv := server.New(server.Config{Addr: cfg.ServerAddr, AllowAll: true},
		eng.retriever, eng.pipeline, eng.manifest, eng.store, loader)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch {
		debounce := time.Duration(cfg.WatchDebounceMs) * time.Millisecond
		watcher := corpus.NewWatcher(loader, eng.pipeline, debounce)
		go func() {
			if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "Warning: watcher stopped: %v\n", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "Watching %s for changes\n", cfg.DataDir)
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "campusrag server listening on %s (documents=%d)\n", cfg.ServerAddr, eng.store.Count())
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintln(os.Stderr, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
