package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seanblong/kbsearch/pkg/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Store persists documents and their chunks. Implementations serialize their
// own writes; AddDocument and DeleteDocument are atomic per document.
type Store interface {
	// AddDocument stores a document together with all of its chunks.
	AddDocument(ctx context.Context, doc models.Document, chunks []models.Chunk) error
	GetDocument(ctx context.Context, id string) (models.Document, error)
	// ListDocuments returns documents in upload order.
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UpdateDocument(ctx context.Context, id string, u models.DocumentUpdate) (models.Document, error)
	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, id string) error
	// ListChunks returns the whole corpus, grouped by document in upload
	// order and by position within a document.
	ListChunks(ctx context.Context) ([]models.Chunk, error)
	// ListChunksByDocument returns the chunks of one document in position
	// order.
	ListChunksByDocument(ctx context.Context, documentID string) ([]models.Chunk, error)
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open connects to the named backend and prepares its schema. dsn is a
// database URL for postgres and a file path for sqlite; memory ignores it.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch strings.ToLower(backend) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return NewSQLite(ctx, dsn)
	case BackendPostgres, "postgresql", "":
		pg, err := New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}
