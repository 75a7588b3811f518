package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/search"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/storage"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	response, err := s.engine.Query(r.Context(), &query)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrNotReady):
			s.respondError(w, http.StatusServiceUnavailable, "index not ready")
		case errors.Is(err, search.ErrModelMismatch):
			s.logger.Error("search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		case query.Query == "":
			s.respondError(w, http.StatusBadRequest, "Query required")
		case query.TopK < 0:
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docCount, err := s.storage.CountDocuments(r.Context())
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"documents": docCount,
		"ready":     s.engine.Ready(),
	}
	if manifest, size, ok := s.engine.Status(); ok {
		resp["index"] = map[string]interface{}{
			"vectors":   size,
			"dimension": manifest.Dimension,
			"model":     manifest.ModelName,
		}
	}
	if diskBytes, err := storage.DiskUsageBytes(s.cfg.Storage.IndexDir, s.cfg.Storage.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"index_type":    s.cfg.Search.IndexType,
		"chunk_size":    s.cfg.Chunking.ChunkSize,
		"chunk_overlap": s.cfg.Chunking.ChunkOverlap,
		"provider":      s.cfg.Embedding.Provider,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.reindex == nil {
		s.respondError(w, http.StatusNotImplemented, "reindex not enabled")
		return
	}
	select {
	case s.reindexing <- struct{}{}:
	default:
		s.respondError(w, http.StatusConflict, "reindex already in progress")
		return
	}
	defer func() { <-s.reindexing }()

	s.logger.Info("reindex requested")
	if err := s.reindex(r.Context()); err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reindexed"})
}

func (s *Server) handleUpsertDocument(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if doc.URL == "" || doc.Content == "" {
		s.respondError(w, http.StatusBadRequest, "url and content are required")
		return
	}
	if err := s.storage.UpsertDocument(r.Context(), &doc); err != nil {
		s.logger.Error("upsert document failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The document is searchable after the next reindex, not immediately.
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "stored"})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.storage.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("delete document failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
