package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hospitalzapata/wardsync/internal/config"
	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
)

// Store errors.
var (
	// ErrNotFound indicates a document does not exist in a collection.
	ErrNotFound = errors.New("document not found")

	// ErrCollectionCorrupt indicates a collection could not be decoded.
	ErrCollectionCorrupt = errors.New("collection corrupt")
)

// Store persists entity documents per collection. Documents keep a
// stable position: ReplaceAll fixes the order from the server list,
// Upsert of a new document appends, Upsert of an existing one updates
// in place.
type Store interface {
	// ReadAll returns every document in a collection in stored order.
	// An unknown collection yields an empty slice, not an error.
	ReadAll(entity models.EntityType) ([]models.Document, error)

	// Get returns a single document by ID.
	Get(entity models.EntityType, id string) (*models.Document, error)

	// ReplaceAll swaps the full contents of a collection.
	ReplaceAll(entity models.EntityType, docs []models.Document) error

	// Upsert inserts or updates one document.
	Upsert(entity models.EntityType, doc models.Document) error

	// Remove deletes a document. Removing a missing document is not
	// an error.
	Remove(entity models.EntityType, id string) error

	// Close releases resources.
	Close() error
}

// NewStore creates a store for the configured backend.
func NewStore(cfg *config.StorageConfig, logger *events.Logger) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "cache.db"), logger)
	case "json":
		return NewJSONStore(filepath.Join(cfg.DataDir, "cache"), logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
