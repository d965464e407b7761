package store

import (
	"context"
	"sync"

	"github.com/seanblong/kbsearch/pkg/models"
)

// Memory is an in-process Store. Data is lost on exit.
type Memory struct {
	mu     sync.RWMutex
	order  []string
	docs   map[string]models.Document
	chunks map[string][]models.Chunk
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[string]models.Document),
		chunks: make(map[string][]models.Chunk),
	}
}

func (m *Memory) AddDocument(_ context.Context, doc models.Document, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ID]; !exists {
		m.order = append(m.order, doc.ID)
	}
	m.docs[doc.ID] = doc
	m.chunks[doc.ID] = append([]models.Chunk(nil), chunks...)
	return nil
}

func (m *Memory) GetDocument(_ context.Context, id string) (models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return models.Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) ListDocuments(_ context.Context) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Document, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.docs[id])
	}
	return out, nil
}

func (m *Memory) UpdateDocument(_ context.Context, id string, u models.DocumentUpdate) (models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return models.Document{}, ErrNotFound
	}
	doc = doc.Apply(u)
	m.docs[id] = doc
	return doc, nil
}

func (m *Memory) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	delete(m.chunks, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) ListChunks(_ context.Context) ([]models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Chunk
	for _, id := range m.order {
		out = append(out, m.chunks[id]...)
	}
	return out, nil
}

func (m *Memory) ListChunksByDocument(_ context.Context, documentID string) ([]models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Chunk(nil), m.chunks[documentID]...), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
