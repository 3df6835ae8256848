package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
)

// JSONStore implements file-based document storage with one JSON file
// per collection.
type JSONStore struct {
	baseDir string
	logger  *events.Logger

	mu sync.RWMutex
}

// NewJSONStore creates a JSON-based document store.
func NewJSONStore(baseDir string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &JSONStore{
		baseDir: baseDir,
		logger:  logger.WithField("component", "json_store"),
	}, nil
}

// ReadAll returns every document in a collection in stored order.
func (s *JSONStore) ReadAll(entity models.EntityType) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readCollection(entity)
}

// Get returns a single document by ID.
func (s *JSONStore) Get(entity models.EntityType, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.readCollection(entity)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i], nil
		}
	}
	return nil, ErrNotFound
}

// ReplaceAll swaps the full contents of a collection.
func (s *JSONStore) ReplaceAll(entity models.EntityType, docs []models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"entity": string(entity),
		"count":  len(docs),
	}).Debug("Replacing collection")

	return s.writeCollection(entity, docs)
}

// Upsert inserts or updates one document, preserving its position.
func (s *JSONStore) Upsert(entity models.EntityType, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readCollection(entity)
	if err != nil {
		return err
	}

	replaced := false
	for i := range docs {
		if docs[i].ID == doc.ID {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}

	return s.writeCollection(entity, docs)
}

// Remove deletes a document. Missing documents are ignored.
func (s *JSONStore) Remove(entity models.EntityType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readCollection(entity)
	if err != nil {
		return err
	}

	kept := docs[:0]
	for _, d := range docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(docs) {
		return nil
	}

	return s.writeCollection(entity, kept)
}

// Close releases resources.
func (s *JSONStore) Close() error {
	return nil
}

// Helper methods

func (s *JSONStore) collectionPath(entity models.EntityType) string {
	return filepath.Join(s.baseDir, string(entity)+".json")
}

func (s *JSONStore) readCollection(entity models.EntityType) ([]models.Document, error) {
	path := s.collectionPath(entity)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []models.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection file: %w", err)
	}

	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		// A damaged cache file degrades to an empty collection so
		// the next authoritative refresh can rebuild it.
		s.logger.WithError(err).WithField("entity", string(entity)).
			Warn("Collection file corrupt, treating as empty")
		return []models.Document{}, nil
	}

	return docs, nil
}

func (s *JSONStore) writeCollection(entity models.EntityType, docs []models.Document) error {
	path := s.collectionPath(entity)

	jsonData, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}

	// Write atomically
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tmpPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename collection file: %w", err)
	}

	return nil
}
