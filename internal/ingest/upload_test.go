package ingest

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/seanblong/kbsearch/internal/store"
	"github.com/seanblong/kbsearch/pkg/models"
)

// MockStore implements store.Store for testing
type MockStore struct {
	store.Store
	AddDocumentFunc func(ctx context.Context, doc models.Document, chunks []models.Chunk) error
}

func (m *MockStore) AddDocument(ctx context.Context, doc models.Document, chunks []models.Chunk) error {
	if m.AddDocumentFunc != nil {
		return m.AddDocumentFunc(ctx, doc, chunks)
	}
	return nil
}

func fixedIngester(s store.Store) *Ingester {
	in := NewIngester(s, 0)
	in.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	in.NewID = sequentialIDs("id")
	return in
}

func TestIngestFile(t *testing.T) {
	tests := []struct {
		name         string
		upload       Upload
		wantName     string
		wantType     models.DocType
		wantCategory string
		wantTags     []string
		wantContent  string
	}{
		{
			name:         "markdown with defaults",
			upload:       Upload{Filename: "vpn-guide.md", Data: []byte("# VPN\n\nConnect with the client.")},
			wantName:     "vpn-guide",
			wantType:     models.DocTypeMarkdown,
			wantCategory: DefaultCategory,
			wantTags:     []string{},
			wantContent:  "VPN",
		},
		{
			name: "explicit metadata",
			upload: Upload{
				Filename: "notes.txt",
				Name:     "  Release notes ",
				Category: "product",
				Tags:     []string{" v2 ", "", "release"},
				Data:     []byte("Version two ships today."),
			},
			wantName:     "Release notes",
			wantType:     models.DocTypeText,
			wantCategory: "product",
			wantTags:     []string{"v2", "release"},
			wantContent:  "Version two ships today.",
		},
		{
			name:         "unknown extension sniffed as html",
			upload:       Upload{Filename: "page", Data: []byte("<html><body><p>Office hours are nine to five.</p></body></html>")},
			wantName:     "page",
			wantType:     models.DocTypeHTML,
			wantCategory: DefaultCategory,
			wantTags:     []string{},
			wantContent:  "Office hours are nine to five.",
		},
		{
			name:         "broken pdf stores placeholder",
			upload:       Upload{Filename: "manual.pdf", Data: []byte("not a pdf")},
			wantName:     "manual",
			wantType:     models.DocTypePDF,
			wantCategory: DefaultCategory,
			wantTags:     []string{},
			wantContent:  "[PDF extraction failed:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory()
			doc, err := fixedIngester(mem).IngestFile(context.Background(), tt.upload)
			if err != nil {
				t.Fatalf("IngestFile: %v", err)
			}
			if doc.Name != tt.wantName {
				t.Errorf("name = %q, want %q", doc.Name, tt.wantName)
			}
			if doc.Type != tt.wantType {
				t.Errorf("type = %q, want %q", doc.Type, tt.wantType)
			}
			if doc.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", doc.Category, tt.wantCategory)
			}
			if !reflect.DeepEqual(doc.Tags, tt.wantTags) {
				t.Errorf("tags = %#v, want %#v", doc.Tags, tt.wantTags)
			}
			if doc.Size != int64(len(tt.upload.Data)) {
				t.Errorf("size = %d, want %d", doc.Size, len(tt.upload.Data))
			}
			if doc.Checksum != Checksum(tt.upload.Data) {
				t.Errorf("checksum = %q", doc.Checksum)
			}

			chunks, err := mem.ListChunksByDocument(context.Background(), doc.ID)
			if err != nil {
				t.Fatalf("ListChunksByDocument: %v", err)
			}
			if len(chunks) != 1 || doc.ChunkCount != 1 {
				t.Fatalf("got %d chunks (chunkCount %d), want 1", len(chunks), doc.ChunkCount)
			}
			if !strings.HasPrefix(chunks[0].Content, tt.wantContent) {
				t.Errorf("content = %q, want prefix %q", chunks[0].Content, tt.wantContent)
			}
		})
	}
}

func TestIngestFileErrors(t *testing.T) {
	in := fixedIngester(&MockStore{})
	if _, err := in.IngestFile(context.Background(), Upload{Data: []byte("x")}); err == nil {
		t.Error("expected error for missing filename")
	}

	boom := errors.New("disk full")
	in = fixedIngester(&MockStore{
		AddDocumentFunc: func(ctx context.Context, doc models.Document, chunks []models.Chunk) error {
			return boom
		},
	})
	if _, err := in.IngestFile(context.Background(), Upload{Filename: "a.txt", Data: []byte("hello world")}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestDefaultName(t *testing.T) {
	tests := map[string]string{
		"guide.md":           "guide",
		"archive.tar.gz":     "archive.tar",
		"docs/setup/vpn.pdf": "vpn",
		"README":             "README",
		".env":               ".env",
	}
	for in, want := range tests {
		if got := DefaultName(in); got != want {
			t.Errorf("DefaultName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags(" vpn, network ,,remote ")
	want := []string{"vpn", "network", "remote"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTags = %v, want %v", got, want)
	}
	if got := ParseTags(""); len(got) != 0 {
		t.Errorf("ParseTags(\"\") = %v, want empty", got)
	}
}
