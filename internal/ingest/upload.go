package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/seanblong/kbsearch/internal/extract"
	"github.com/seanblong/kbsearch/internal/store"
	"github.com/seanblong/kbsearch/pkg/models"
)

// DefaultCategory is assigned to documents uploaded without one.
const DefaultCategory = "general"

// Upload is a file handed to the ingester.
type Upload struct {
	Filename string
	Name     string // defaults to Filename without its extension
	Category string
	Tags     []string
	Type     models.DocType // detected from Filename and Data when empty
	Source   models.Source  // defaults to models.SourceUpload
	Data     []byte
}

// Ingester extracts, chunks and persists uploaded files.
type Ingester struct {
	Store     store.Store
	ChunkSize int
	Now       func() time.Time
	NewID     func() string
}

// NewIngester creates an Ingester writing to s.
func NewIngester(s store.Store, chunkSize int) *Ingester {
	return &Ingester{
		Store:     s,
		ChunkSize: chunkSize,
		Now:       time.Now,
		NewID:     uuid.NewString,
	}
}

// IngestFile stores u as a new document. A file that cannot be decoded is
// still stored; its only chunk holds the extraction failure placeholder.
func (in *Ingester) IngestFile(ctx context.Context, u Upload) (models.Document, error) {
	if u.Filename == "" {
		return models.Document{}, errors.New("filename is required")
	}

	docType := u.Type
	if docType == "" {
		docType = extract.DetectType(u.Filename, u.Data)
	}

	text, err := extract.TextOrPlaceholder(u.Data, docType)
	if err != nil {
		var ee *extract.ExtractionError
		if !errors.As(err, &ee) {
			return models.Document{}, err
		}
		log.Warn().Err(err).Str("file", u.Filename).Msg("extraction failed, storing placeholder")
	}

	doc := models.Document{
		ID:         in.newID(),
		Name:       strings.TrimSpace(u.Name),
		Filename:   u.Filename,
		Type:       docType,
		Source:     u.Source,
		Category:   strings.TrimSpace(u.Category),
		Tags:       cleanTags(u.Tags),
		Size:       int64(len(u.Data)),
		Checksum:   Checksum(u.Data),
		UploadedAt: in.now(),
	}
	if doc.Name == "" {
		doc.Name = DefaultName(u.Filename)
	}
	if doc.Category == "" {
		doc.Category = DefaultCategory
	}
	if doc.Source == "" {
		doc.Source = models.SourceUpload
	}

	chunks := Ingest(doc.ID, text, WithChunkSize(in.ChunkSize), WithIDGenerator(in.NewID))
	doc.ChunkCount = len(chunks)

	if err := in.Store.AddDocument(ctx, doc, chunks); err != nil {
		return models.Document{}, fmt.Errorf("storing %s: %w", u.Filename, err)
	}
	log.Debug().Str("id", doc.ID).Str("file", u.Filename).Int("chunks", doc.ChunkCount).Msg("document ingested")
	return doc, nil
}

func (in *Ingester) newID() string {
	if in.NewID != nil {
		return in.NewID()
	}
	return uuid.NewString()
}

func (in *Ingester) now() time.Time {
	if in.Now != nil {
		return in.Now().UTC()
	}
	return time.Now().UTC()
}

// DefaultName is the display name of a file uploaded without one.
func DefaultName(filename string) string {
	base := filepath.Base(filename)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}

// Checksum returns the SHA-1 of data as a hex string.
func Checksum(data []byte) string {
	h := sha1.Sum(data)
	return hex.EncodeToString(h[:])
}

// ParseTags splits a comma-separated tag list.
func ParseTags(s string) []string {
	return cleanTags(strings.Split(s, ","))
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
