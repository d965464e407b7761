package ingest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"

	"github.com/seanblong/kbsearch/internal/extract"
	"github.com/seanblong/kbsearch/pkg/models"
)

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// Summary counts what a Run did.
type Summary struct {
	Indexed   int64
	Unchanged int64
	Failed    int64
}

// Indexer ingests every supported file below Root. Files are keyed by
// their path relative to Root: an unchanged file is skipped and a changed
// one replaces the document previously indexed from that path. Uploaded
// documents are never matched, whatever their filename.
type Indexer struct {
	Ingester   *Ingester
	Root       string
	Category   string
	Workers    int
	Walker     FileSystemWalker
	FileReader FileReader
}

// NewIndexer creates an Indexer over root.
func NewIndexer(in *Ingester, root string, workers int) *Indexer {
	return &Indexer{
		Ingester:   in,
		Root:       root,
		Workers:    workers,
		Walker:     &DefaultFileSystemWalker{},
		FileReader: &DefaultFileReader{},
	}
}

type workItem struct {
	path string // relative to Root
	data []byte
}

func (ix *Indexer) workers() int {
	if ix.Workers > 0 {
		return ix.Workers
	}
	return min(runtime.NumCPU(), 8)
}

// Run walks Root and indexes files concurrently.
func (ix *Indexer) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	docs, err := ix.Ingester.Store.ListDocuments(ctx)
	if err != nil {
		return sum, err
	}
	existing := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		if d.Source == models.SourceIndexer && d.Filename != "" {
			existing[d.Filename] = d
		}
	}

	numWorkers := ix.workers()
	log.Info().Int("workers", numWorkers).Str("root", ix.Root).Msg("starting concurrent indexing")

	workChan := make(chan workItem, numWorkers*2)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log.Debug().Int("worker", workerID).Msg("worker started")
			for item := range workChan {
				switch ix.process(ctx, item, existing) {
				case resultIndexed:
					atomic.AddInt64(&sum.Indexed, 1)
				case resultUnchanged:
					atomic.AddInt64(&sum.Unchanged, 1)
				default:
					atomic.AddInt64(&sum.Failed, 1)
				}
			}
			log.Debug().Int("worker", workerID).Msg("worker finished")
		}(i)
	}

	walkErr := ix.Walker.Walk(ix.Root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			relPath := rel(ix.Root, path)
			if de != nil && de.IsDir() {
				if relPath != "." && skipDir(filepath.Base(path)) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if shouldSkip(relPath) {
				return nil
			}

			b, err := ix.FileReader.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read file")
				atomic.AddInt64(&sum.Failed, 1)
				return nil
			}

			select {
			case workChan <- workItem{path: relPath, data: b}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})

	close(workChan)
	wg.Wait()

	log.Info().
		Int64("indexed", sum.Indexed).
		Int64("unchanged", sum.Unchanged).
		Int64("failed", sum.Failed).
		Msg("indexing finished")
	return sum, walkErr
}

type result int

const (
	resultIndexed result = iota
	resultUnchanged
	resultFailed
)

func (ix *Indexer) process(ctx context.Context, item workItem, existing map[string]models.Document) result {
	prev, found := existing[item.path]
	if found && prev.Checksum == Checksum(item.data) {
		log.Debug().Str("path", item.path).Msg("unchanged, skipping")
		return resultUnchanged
	}

	u := Upload{Filename: item.path, Category: ix.Category, Source: models.SourceIndexer, Data: item.data}
	if found {
		u.Name, u.Category, u.Tags = prev.Name, prev.Category, prev.Tags
	}
	doc, err := ix.Ingester.IngestFile(ctx, u)
	if err != nil {
		log.Error().Err(err).Str("path", item.path).Msg("ingest failed")
		return resultFailed
	}

	if found {
		if err := ix.Ingester.Store.DeleteDocument(ctx, prev.ID); err != nil {
			log.Warn().Err(err).Str("path", item.path).Str("id", prev.ID).Msg("failed to remove previous version")
		}
	}
	log.Info().Str("path", item.path).Int("chunks", doc.ChunkCount).Bool("replaced", found).Msg("indexed document")
	return resultIndexed
}

// skipDir reports whether a directory with this name is never descended
// into.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch strings.ToLower(name) {
	case "vendor", "node_modules", "__pycache__":
		return true
	}
	return false
}

// shouldSkip returns true if the file at relPath should not be indexed.
func shouldSkip(relPath string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, dir := range parts[:len(parts)-1] {
		if skipDir(dir) {
			return true
		}
	}
	if strings.HasPrefix(parts[len(parts)-1], ".") {
		return true
	}
	return !extract.Supported(relPath)
}

func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(r)
}
