package store

import (
	"sync"

	"github.com/hospitalzapata/wardsync/internal/models"
)

// MemStore is an in-memory store for testing.
type MemStore struct {
	mu          sync.RWMutex
	collections map[models.EntityType][]models.Document

	// Error injection
	ReadErr  error
	WriteErr error
}

// NewMemStore creates an in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		collections: make(map[models.EntityType][]models.Document),
	}
}

// ReadAll returns every document in a collection in stored order.
func (s *MemStore) ReadAll(entity models.EntityType) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}

	docs := s.collections[entity]
	out := make([]models.Document, len(docs))
	copy(out, docs)
	return out, nil
}

// Get returns a single document by ID.
func (s *MemStore) Get(entity models.EntityType, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}

	for _, d := range s.collections[entity] {
		if d.ID == id {
			doc := d
			return &doc, nil
		}
	}
	return nil, ErrNotFound
}

// ReplaceAll swaps the full contents of a collection.
func (s *MemStore) ReplaceAll(entity models.EntityType, docs []models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}

	copied := make([]models.Document, len(docs))
	copy(copied, docs)
	s.collections[entity] = copied
	return nil
}

// Upsert inserts or updates one document.
func (s *MemStore) Upsert(entity models.EntityType, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}

	docs := s.collections[entity]
	for i := range docs {
		if docs[i].ID == doc.ID {
			docs[i] = doc
			return nil
		}
	}
	s.collections[entity] = append(docs, doc)
	return nil
}

// Remove deletes a document.
func (s *MemStore) Remove(entity models.EntityType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}

	docs := s.collections[entity]
	kept := docs[:0]
	for _, d := range docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.collections[entity] = kept
	return nil
}

// Close releases resources.
func (s *MemStore) Close() error {
	return nil
}
