// Package ingest turns extracted document text into stored chunks.
package ingest

import (
	"github.com/google/uuid"

	"github.com/seanblong/kbsearch/internal/chunker"
	"github.com/seanblong/kbsearch/internal/keywords"
	"github.com/seanblong/kbsearch/pkg/models"
)

type options struct {
	chunkSize int
	newID     func() string
}

// Option configures Ingest.
type Option func(*options)

// WithChunkSize sets the target chunk length. Non-positive sizes keep the
// default.
func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// WithIDGenerator replaces the random chunk ID source.
func WithIDGenerator(f func() string) Option {
	return func(o *options) {
		if f != nil {
			o.newID = f
		}
	}
}

// Ingest splits text into chunks owned by documentID, each carrying its
// keywords. Empty text yields no chunks.
func Ingest(documentID, text string, opts ...Option) []models.Chunk {
	o := options{chunkSize: chunker.DefaultSize, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}

	passages := chunker.New(chunker.WithSize(o.chunkSize)).Split(text)
	chunks := make([]models.Chunk, 0, len(passages))
	for _, p := range passages {
		chunks = append(chunks, models.Chunk{
			ID:         o.newID(),
			DocumentID: documentID,
			Content:    p.Content,
			Position:   p.Position,
			Keywords:   keywords.Extract(p.Content),
		})
	}
	return chunks
}
