package outbox

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
)

// SQLiteQueue implements a durable FIFO mutation queue.
type SQLiteQueue struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteQueue creates a SQLite-backed queue.
func NewSQLiteQueue(dbPath string, logger *events.Logger) (*SQLiteQueue, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	q := &SQLiteQueue{
		db:     db,
		logger: logger.WithField("component", "sqlite_queue"),
	}

	if err := q.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return q, nil
}

// initialize creates the schema. FIFO order comes from the seq column.
func (q *SQLiteQueue) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS outbox (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        operation_id TEXT NOT NULL UNIQUE,
        method TEXT NOT NULL,
        entity TEXT NOT NULL,
        target_id TEXT NOT NULL,
        payload BLOB,
        status TEXT NOT NULL DEFAULT 'pending',
        created_at TIMESTAMP NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_outbox_entity ON outbox(entity);
    `

	if _, err := q.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Enqueue appends an entry.
func (q *SQLiteQueue) Enqueue(entry Entry) error {
	q.logger.WithFields(map[string]interface{}{
		"operation_id": entry.OperationID,
		"method":       entry.Method,
		"entity":       string(entry.Entity),
		"target_id":    entry.TargetID,
	}).Debug("Enqueueing mutation")

	_, err := q.db.Exec(`
        INSERT INTO outbox (operation_id, method, entity, target_id, payload, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, entry.OperationID, entry.Method, string(entry.Entity), entry.TargetID,
		entry.Payload, entry.Status, entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// ListPending returns the entries for an entity in enqueue order.
func (q *SQLiteQueue) ListPending(entity models.EntityType) ([]Entry, error) {
	rows, err := q.db.Query(`
        SELECT operation_id, method, entity, target_id, payload, status, created_at
        FROM outbox
        WHERE entity = ?
        ORDER BY seq
    `, string(entity))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkInFlight transitions an entry to in_flight.
func (q *SQLiteQueue) MarkInFlight(operationID string) error {
	return q.setStatus(operationID, StatusInFlight)
}

// MarkPending transitions an entry back to pending.
func (q *SQLiteQueue) MarkPending(operationID string) error {
	return q.setStatus(operationID, StatusPending)
}

// MarkDone removes a completed entry.
func (q *SQLiteQueue) MarkDone(operationID string) error {
	res, err := q.db.Exec("DELETE FROM outbox WHERE operation_id = ?", operationID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// CancelCreate removes the queued CREATE whose target is tempID.
func (q *SQLiteQueue) CancelCreate(entity models.EntityType, tempID string) (bool, error) {
	res, err := q.db.Exec(`
        DELETE FROM outbox
        WHERE entity = ? AND target_id = ? AND method = ?
    `, string(entity), tempID, MethodCreate)
	if err != nil {
		return false, fmt.Errorf("cancel create: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		q.logger.WithFields(map[string]interface{}{
			"entity":  string(entity),
			"temp_id": tempID,
		}).Debug("Cancelled queued create")
	}
	return n > 0, nil
}

// CancelForTarget removes every queued entry targeting an ID.
func (q *SQLiteQueue) CancelForTarget(entity models.EntityType, targetID string) (int, error) {
	res, err := q.db.Exec(`
        DELETE FROM outbox
        WHERE entity = ? AND target_id = ?
    `, string(entity), targetID)
	if err != nil {
		return 0, fmt.Errorf("cancel for target: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		q.logger.WithFields(map[string]interface{}{
			"entity":    string(entity),
			"target_id": targetID,
			"count":     n,
		}).Debug("Cancelled queued entries for target")
	}
	return int(n), nil
}

// MergeCreatePayload replaces the payload of the queued CREATE for
// tempID.
func (q *SQLiteQueue) MergeCreatePayload(entity models.EntityType, tempID string, payload []byte) (bool, error) {
	res, err := q.db.Exec(`
        UPDATE outbox SET payload = ?
        WHERE entity = ? AND target_id = ? AND method = ?
    `, payload, string(entity), tempID, MethodCreate)
	if err != nil {
		return false, fmt.Errorf("merge create payload: %w", err)
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

// PendingCount returns the number of queued entries for an entity.
func (q *SQLiteQueue) PendingCount(entity models.EntityType) (int, error) {
	var count int
	err := q.db.QueryRow(`
        SELECT COUNT(*) FROM outbox WHERE entity = ?
    `, string(entity)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// Entities returns the entity types with at least one queued entry.
func (q *SQLiteQueue) Entities() ([]models.EntityType, error) {
	rows, err := q.db.Query("SELECT DISTINCT entity FROM outbox ORDER BY entity")
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []models.EntityType
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, models.EntityType(e))
	}

	return entities, rows.Err()
}

// Close closes the database.
func (q *SQLiteQueue) Close() error {
	return q.db.Close()
}

func (q *SQLiteQueue) setStatus(operationID, status string) error {
	res, err := q.db.Exec(`
        UPDATE outbox SET status = ? WHERE operation_id = ?
    `, status, operationID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var entity string
		if err := rows.Scan(&e.OperationID, &e.Method, &entity, &e.TargetID,
			&e.Payload, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Entity = models.EntityType(entity)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
