// Package api exposes document management and search over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/seanblong/kbsearch/internal/auth"
	"github.com/seanblong/kbsearch/internal/ingest"
	"github.com/seanblong/kbsearch/internal/search"
	"github.com/seanblong/kbsearch/internal/store"
)

// DefaultMaxUploadBytes bounds multipart uploads when no limit is set.
const DefaultMaxUploadBytes = 50 << 20

// Server wires the HTTP routes to the store, ingester and search service.
type Server struct {
	Store          store.Store
	Ingester       *ingest.Ingester
	Search         *search.Service
	Auth           *auth.Authenticator
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/search", s.handleSearch)

	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("GET /api/documents/{id}/chunks", s.handleListChunks)
	mux.Handle("POST /api/documents", s.Auth.Require(http.HandlerFunc(s.handleUpload)))
	mux.Handle("PATCH /api/documents/{id}", s.Auth.Require(http.HandlerFunc(s.handleUpdateDocument)))
	mux.Handle("DELETE /api/documents/{id}", s.Auth.Require(http.HandlerFunc(s.handleDeleteDocument)))

	logger := s.Logger
	return hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)
}

func (s *Server) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeStoreError maps store failures onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "document not found")
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("store error")
	writeError(w, r, http.StatusInternalServerError, err.Error())
}
