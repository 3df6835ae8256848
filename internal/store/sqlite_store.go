package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
)

// SQLiteStore implements SQLite-based document storage.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore creates a SQLite document store.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates tables and indexes. The seq column keeps the
// stored order stable: upserting an existing document does not move
// it.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        entity TEXT NOT NULL,
        doc_id TEXT NOT NULL,
        pending INTEGER NOT NULL DEFAULT 0,
        payload BLOB NOT NULL,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (entity, doc_id)
    );

    CREATE INDEX IF NOT EXISTS idx_documents_entity ON documents(entity);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// ReadAll returns every document in a collection in stored order.
func (s *SQLiteStore) ReadAll(entity models.EntityType) ([]models.Document, error) {
	rows, err := s.db.Query(`
        SELECT doc_id, pending, payload
        FROM documents
        WHERE entity = ?
        ORDER BY seq
    `, string(entity))
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		var pending int
		if err := rows.Scan(&doc.ID, &pending, &doc.Payload); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		doc.Pending = pending != 0
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Get returns a single document by ID.
func (s *SQLiteStore) Get(entity models.EntityType, id string) (*models.Document, error) {
	var doc models.Document
	var pending int

	err := s.db.QueryRow(`
        SELECT doc_id, pending, payload
        FROM documents
        WHERE entity = ? AND doc_id = ?
    `, string(entity), id).Scan(&doc.ID, &pending, &doc.Payload)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}

	doc.Pending = pending != 0
	return &doc, nil
}

// ReplaceAll swaps the full contents of a collection.
func (s *SQLiteStore) ReplaceAll(entity models.EntityType, docs []models.Document) error {
	s.logger.WithFields(map[string]interface{}{
		"entity": string(entity),
		"count":  len(docs),
	}).Debug("Replacing collection in SQLite")

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM documents WHERE entity = ?", string(entity)); err != nil {
		return fmt.Errorf("delete old documents: %w", err)
	}

	stmt, err := tx.Prepare(`
        INSERT INTO documents (entity, doc_id, pending, payload)
        VALUES (?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.Exec(string(entity), doc.ID, boolToInt(doc.Pending), []byte(doc.Payload)); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// Upsert inserts or updates one document. The conflict clause keeps
// the original seq so position is preserved.
func (s *SQLiteStore) Upsert(entity models.EntityType, doc models.Document) error {
	_, err := s.db.Exec(`
        INSERT INTO documents (entity, doc_id, pending, payload, updated_at)
        VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(entity, doc_id) DO UPDATE SET
            pending = excluded.pending,
            payload = excluded.payload,
            updated_at = CURRENT_TIMESTAMP
    `, string(entity), doc.ID, boolToInt(doc.Pending), []byte(doc.Payload))

	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Remove deletes a document. Missing documents are ignored.
func (s *SQLiteStore) Remove(entity models.EntityType, id string) error {
	_, err := s.db.Exec(`
        DELETE FROM documents WHERE entity = ? AND doc_id = ?
    `, string(entity), id)

	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
