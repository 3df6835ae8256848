package outbox

import (
	"sync"

	"github.com/hospitalzapata/wardsync/internal/models"
)

// MemQueue is an in-memory queue for testing.
type MemQueue struct {
	mu      sync.Mutex
	entries []Entry

	// Error injection
	EnqueueErr error
	ListErr    error
}

// NewMemQueue creates an in-memory queue.
func NewMemQueue() *MemQueue {
	return &MemQueue{}
}

// Enqueue appends an entry.
func (q *MemQueue) Enqueue(entry Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.EnqueueErr != nil {
		return q.EnqueueErr
	}

	q.entries = append(q.entries, entry)
	return nil
}

// ListPending returns the entries for an entity in enqueue order.
func (q *MemQueue) ListPending(entity models.EntityType) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ListErr != nil {
		return nil, q.ListErr
	}

	var out []Entry
	for _, e := range q.entries {
		if e.Entity == entity {
			out = append(out, e)
		}
	}
	return out, nil
}

// MarkInFlight transitions an entry to in_flight.
func (q *MemQueue) MarkInFlight(operationID string) error {
	return q.setStatus(operationID, StatusInFlight)
}

// MarkPending transitions an entry back to pending.
func (q *MemQueue) MarkPending(operationID string) error {
	return q.setStatus(operationID, StatusPending)
}

// MarkDone removes a completed entry.
func (q *MemQueue) MarkDone(operationID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.OperationID == operationID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

// CancelCreate removes the queued CREATE whose target is tempID.
func (q *MemQueue) CancelCreate(entity models.EntityType, tempID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.Entity == entity && e.TargetID == tempID && e.Method == MethodCreate {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// CancelForTarget removes every queued entry targeting an ID.
func (q *MemQueue) CancelForTarget(entity models.EntityType, targetID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if e.Entity == entity && e.TargetID == targetID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return removed, nil
}

// MergeCreatePayload replaces the payload of the queued CREATE for
// tempID.
func (q *MemQueue) MergeCreatePayload(entity models.EntityType, tempID string, payload []byte) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.Entity == entity && e.TargetID == tempID && e.Method == MethodCreate {
			q.entries[i].Payload = payload
			return true, nil
		}
	}
	return false, nil
}

// PendingCount returns the number of queued entries for an entity.
func (q *MemQueue) PendingCount(entity models.EntityType) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.Entity == entity {
			n++
		}
	}
	return n, nil
}

// Entities returns the entity types with at least one queued entry.
func (q *MemQueue) Entities() ([]models.EntityType, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[models.EntityType]bool)
	var out []models.EntityType
	for _, e := range q.entries {
		if !seen[e.Entity] {
			seen[e.Entity] = true
			out = append(out, e.Entity)
		}
	}
	return out, nil
}

// Close releases resources.
func (q *MemQueue) Close() error {
	return nil
}

func (q *MemQueue) setStatus(operationID, status string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.OperationID == operationID {
			q.entries[i].Status = status
			return nil
		}
	}
	return ErrEntryNotFound
}
