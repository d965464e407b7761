// Package search answers free-text queries against the stored corpus.
package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/seanblong/kbsearch/internal/bm25"
	"github.com/seanblong/kbsearch/pkg/models"
)

// UnknownDocument is reported for chunks whose document is gone.
const UnknownDocument = "Unknown"

// DefaultMaxLimit caps the number of results a caller may ask for.
const DefaultMaxLimit = 50

// Corpus is the read side of a store that search needs.
type Corpus interface {
	ListChunks(ctx context.Context) ([]models.Chunk, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
}

type Service struct {
	Store        Corpus
	Ranker       *bm25.Ranker
	DefaultLimit int
	MaxLimit     int
}

// NewService creates a new search service over the given store
func NewService(s Corpus, ranker *bm25.Ranker, defaultLimit, maxLimit int) *Service {
	if ranker == nil {
		ranker = bm25.New()
	}
	if defaultLimit <= 0 {
		defaultLimit = bm25.DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Service{
		Store:        s,
		Ranker:       ranker,
		DefaultLimit: defaultLimit,
		MaxLimit:     maxLimit,
	}
}

// Query ranks a snapshot of the corpus against q. A blank query returns no
// results without reading the store.
func (s *Service) Query(ctx context.Context, q string, limit int) ([]models.SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}

	corpus, err := s.Store.ListChunks(ctx)
	if err != nil {
		return nil, err
	}
	hits := s.Ranker.Search(q, corpus, limit)
	if len(hits) == 0 {
		return []models.SearchResult{}, nil
	}

	// A separate read from ListChunks: a document deleted in between is
	// reported as UnknownDocument rather than failing the query.
	docs, err := s.Store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}

	res := make([]models.SearchResult, len(hits))
	for i, h := range hits {
		name, ok := names[h.Chunk.DocumentID]
		if !ok {
			name = UnknownDocument
		}
		res[i] = models.SearchResult{
			ChunkID:      h.Chunk.ID,
			DocumentID:   h.Chunk.DocumentID,
			DocumentName: name,
			Content:      h.Chunk.Content,
			Position:     h.Chunk.Position,
			Score:        h.Score,
			Rank:         h.Rank,
		}
	}
	return res, nil
}

// ParseLimit reads a result limit from a query parameter. Missing,
// malformed or non-positive values give def; values above max are capped.
func ParseLimit(raw string, def, maxLimit int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		n = def
	}
	if maxLimit > 0 && n > maxLimit {
		n = maxLimit
	}
	return n
}
