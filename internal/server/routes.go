package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studystack/campusrag/internal/rag"
	"github.com/studystack/campusrag/internal/retriever"
)

type queryRequest struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	Category       string   `json:"category,omitempty"`
}

type queryResult struct {
	Rank       int     `json:"rank"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Category   string  `json:"category"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

type queryResponse struct {
	Results    []queryResult `json:"results"`
	Context    string        `json:"context"`
	NumResults int           `json:"num_results"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var calls []retriever.CallOption
	if req.TopK > 0 {
		calls = append(calls, retriever.WithTopK(req.TopK))
	}
	if req.ScoreThreshold != nil {
		calls = append(calls, retriever.WithScoreThreshold(*req.ScoreThreshold))
	}
	if req.Category != "" {
		calls = append(calls, retriever.WithCategory(req.Category))
	}

	results, err := s.retriever.Retrieve(r.Context(), req.Query, calls...)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := queryResponse{
		Results:    make([]queryResult, len(results)),
		Context:    retriever.FormatContext(results),
		NumResults: len(results),
	}
	for i, res := range results {
		resp.Results[i] = queryResult{
			Rank:       res.Rank,
			DocumentID: res.Chunk.DocumentID,
			Source:     res.Chunk.Meta.SourcePath,
			Category:   res.Chunk.Meta.Category,
			ChunkIndex: res.Chunk.Index,
			Score:      res.Score,
			Content:    res.Chunk.Content,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type indexRequest struct {
	Text       string            `json:"text"`
	SourcePath string            `json:"source_path"`
	Category   string            `json:"category,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

type indexResponse struct {
	DocumentID string `json:"document_id"`
	Stage      string `json:"stage"`
	ChunkCount int    `json:"chunk_count"`
	Skipped    bool   `json:"skipped,omitempty"`
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	status, err := s.pipeline.Index(r.Context(), rag.RawInput{
		Text:       req.Text,
		SourcePath: req.SourcePath,
		Category:   req.Category,
		Extra:      req.Extra,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, indexResponse{
		DocumentID: status.DocumentID,
		Stage:      string(status.Stage),
		ChunkCount: status.ChunkCount,
		Skipped:    status.Skipped,
	})
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("document id is required"))
		return
	}

	if err := s.pipeline.Remove(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"removed": id})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	records, err := s.manifest.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	type documentJSON struct {
		DocumentID    string `json:"document_id"`
		SourcePath    string `json:"source_path"`
		Category      string `json:"category"`
		ChunkCount    int    `json:"chunk_count"`
		LastIndexedAt string `json:"last_indexed_at"`
	}

	docs := make([]documentJSON, len(records))
	for i, rec := range records {
		docs[i] = documentJSON{
			DocumentID:    rec.DocumentID,
			SourcePath:    rec.SourcePath,
			Category:      rec.Category,
			ChunkCount:    rec.ChunkCount,
			LastIndexedAt: rec.LastIndexedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": len(docs)})
}

type reindexRequest struct {
	Force bool `json:"force,omitempty"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no data directory configured"))
		return
	}

	var req reindexRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	inputs, err := s.loader.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	summary := s.pipeline.ReindexAll(r.Context(), inputs, req.Force, func(done, total int, sourcePath string) {
		s.hub.broadcast(progressMessage{
			Type:       "progress",
			Done:       done,
			Total:      total,
			SourcePath: sourcePath,
		})
	})

	s.hub.broadcast(progressMessage{
		Type:      "complete",
		RunID:     summary.RunID,
		Done:      summary.Total,
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
	})

	failures := make(map[string]string)
	for _, status := range summary.Statuses {
		if status.Failed() && status.Err != nil {
			failures[status.SourcePath] = status.Err.Error()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      summary.RunID,
		"total":       summary.Total,
		"succeeded":   summary.Succeeded,
		"failed":      summary.Failed,
		"skipped":     summary.Skipped,
		"duration_ms": summary.Duration().Milliseconds(),
		"failures":    failures,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.manifest.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := map[string]any{
		"documents":   stats.Documents,
		"chunks":      stats.Chunks,
		"by_category": stats.ByCategory,
		"store_count": s.store.Count(),
	}
	if stats.LastRun != nil {
		resp["last_run"] = map[string]any{
			"run_id":      stats.LastRun.RunID,
			"finished_at": stats.LastRun.FinishedAt,
			"total":       stats.LastRun.Total,
			"succeeded":   stats.LastRun.Succeeded,
			"failed":      stats.LastRun.Failed,
			"skipped":     stats.LastRun.Skipped,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps engine errors onto HTTP status codes. An unreachable
// store must be distinguishable from an empty result set, so it maps to
// 502 rather than degrading to a 200 with no results.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rag.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, rag.ErrDimensionMismatch):
		return http.StatusConflict
	case errors.Is(err, rag.ErrStoreUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, rag.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
