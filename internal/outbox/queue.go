package outbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hospitalzapata/wardsync/internal/config"
	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
)

// Mutation methods.
const (
	MethodCreate = "CREATE"
	MethodUpdate = "UPDATE"
	MethodDelete = "DELETE"
)

// Entry statuses.
const (
	StatusPending  = "pending"
	StatusInFlight = "in_flight"
)

// Queue errors.
var (
	// ErrEntryNotFound indicates no entry matched the operation ID.
	ErrEntryNotFound = errors.New("outbox entry not found")
)

// Entry is one queued mutation awaiting replay against the server.
type Entry struct {
	OperationID string            `json:"operationId"`
	Method      string            `json:"method"`
	Entity      models.EntityType `json:"entity"`
	TargetID    string            `json:"targetId"`
	Payload     []byte            `json:"payload,omitempty"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// NewOperationID returns a unique operation identifier.
func NewOperationID() string {
	suffix := uuid.NewString()
	if i := strings.IndexByte(suffix, '-'); i > 0 {
		suffix = suffix[:i]
	}
	return fmt.Sprintf("op_%d_%s", time.Now().UnixMilli(), suffix)
}

// Queue persists mutations in FIFO order per entity.
type Queue interface {
	// Enqueue appends an entry.
	Enqueue(entry Entry) error

	// ListPending returns the entries for an entity in enqueue order.
	// In-flight entries are included so a crashed drain resumes them.
	ListPending(entity models.EntityType) ([]Entry, error)

	// MarkInFlight transitions an entry to in_flight.
	MarkInFlight(operationID string) error

	// MarkPending transitions an entry back to pending.
	MarkPending(operationID string) error

	// MarkDone removes a completed entry.
	MarkDone(operationID string) error

	// CancelCreate removes the queued CREATE whose target is tempID.
	// It reports whether such an entry existed.
	CancelCreate(entity models.EntityType, tempID string) (bool, error)

	// CancelForTarget removes every queued entry targeting an ID and
	// returns how many were removed.
	CancelForTarget(entity models.EntityType, targetID string) (int, error)

	// MergeCreatePayload replaces the payload of the queued CREATE
	// for tempID. It reports whether such an entry existed.
	MergeCreatePayload(entity models.EntityType, tempID string, payload []byte) (bool, error)

	// PendingCount returns the number of queued entries for an entity.
	PendingCount(entity models.EntityType) (int, error)

	// Entities returns the entity types with at least one queued entry.
	Entities() ([]models.EntityType, error)

	// Close releases resources.
	Close() error
}

// NewQueue creates a queue for the configured backend.
func NewQueue(cfg *config.StorageConfig, logger *events.Logger) (Queue, error) {
	// The outbox is always SQLite backed. The backend setting only
	// selects the document cache format.
	switch cfg.Backend {
	case "sqlite", "json":
		return NewSQLiteQueue(filepath.Join(cfg.DataDir, "outbox.db"), logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
