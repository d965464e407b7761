package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/seanblong/kbsearch/internal/auth"
	"github.com/seanblong/kbsearch/internal/ingest"
	"github.com/seanblong/kbsearch/internal/search"
	"github.com/seanblong/kbsearch/pkg/models"
)

// multipartMemory is the part of an upload kept in memory before spilling
// to temporary files.
const multipartMemory = 8 << 20

type documentDetail struct {
	models.Document
	Content string `json:"content"`
}

type stats struct {
	Documents  int            `json:"documents"`
	Chunks     int            `json:"chunks"`
	ByType     map[string]int `json:"byType"`
	ByCategory map[string]int `json:"byCategory"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	docs, err := s.Store.ListDocuments(ctx)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := stats{
		Documents:  len(docs),
		ByType:     map[string]int{},
		ByCategory: map[string]int{},
	}
	for _, d := range docs {
		out.Chunks += d.ChunkCount
		out.ByType[string(d.Type)]++
		out.ByCategory[d.Category]++
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	docs, err := s.Store.ListDocuments(ctx)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if category == "" || d.Category == category {
			out = append(out, d)
		}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := r.PathValue("id")
	doc, err := s.Store.GetDocument(ctx, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	chunks, err := s.Store.ListChunksByDocument(ctx, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	writeJSON(w, r, http.StatusOK, documentDetail{Document: doc, Content: strings.Join(parts, "\n\n")})
}

func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := r.PathValue("id")
	if _, err := s.Store.GetDocument(ctx, id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	chunks, err := s.Store.ListChunksByDocument(ctx, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if chunks == nil {
		chunks = []models.Chunk{}
	}
	writeJSON(w, r, http.StatusOK, chunks)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	doc, err := s.Ingester.IngestFile(ctx, ingest.Upload{
		Filename: header.Filename,
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
		Tags:     ingest.ParseTags(r.FormValue("tags")),
		Data:     data,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("id", doc.ID).Str("file", doc.Filename).Int("chunks", doc.ChunkCount).Str("user", actor(r)).Msg("document uploaded")
	writeJSON(w, r, http.StatusCreated, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var u models.DocumentUpdate
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name must not be empty")
		return
	}
	if u.Category != nil && strings.TrimSpace(*u.Category) == "" {
		writeError(w, r, http.StatusBadRequest, "category must not be empty")
		return
	}
	if u.Tags != nil {
		tags := ingest.ParseTags(strings.Join(*u.Tags, ","))
		u.Tags = &tags
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	doc, err := s.Store.UpdateDocument(ctx, r.PathValue("id"), u)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("id", doc.ID).Str("user", actor(r)).Msg("document updated")
	writeJSON(w, r, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := r.PathValue("id")
	if err := s.Store.DeleteDocument(ctx, id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("id", id).Str("user", actor(r)).Msg("document deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query().Get("q")
	limit := search.ParseLimit(r.URL.Query().Get("limit"), s.Search.DefaultLimit, s.Search.MaxLimit)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := s.Search.Query(ctx, q, limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)

	hlog.FromRequest(r).Info().Str("path", "/api/search").Str("q", q).Int("limit", limit).Int("results", len(res)).Dur("dur", time.Since(start)).Msg("served")
}

// actor names the token subject behind a mutating request.
func actor(r *http.Request) string {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return u.Subject
	}
	return "anonymous"
}
