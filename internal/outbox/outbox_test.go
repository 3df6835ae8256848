package outbox_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/outbox"
)

func testLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.ErrorLevel, "json", &buf)
}

func entry(opID, method string, entity models.EntityType, target, payload string) outbox.Entry {
	return outbox.Entry{
		OperationID: opID,
		Method:      method,
		Entity:      entity,
		TargetID:    target,
		Payload:     []byte(payload),
		Status:      outbox.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func queueFactories(t *testing.T) map[string]func() outbox.Queue {
	t.Helper()

	return map[string]func() outbox.Queue{
		"sqlite": func() outbox.Queue {
			q, err := outbox.NewSQLiteQueue(filepath.Join(t.TempDir(), "outbox.db"), testLogger())
			require.NoError(t, err)
			return q
		},
		"mem": func() outbox.Queue {
			return outbox.NewMemQueue()
		},
	}
}

func TestNewOperationID(t *testing.T) {
	a := outbox.NewOperationID()
	b := outbox.NewOperationID()

	assert.True(t, strings.HasPrefix(a, "op_"))
	assert.NotEqual(t, a, b)
}

func TestQueueFIFOOrder(t *testing.T) {
	for name, factory := range queueFactories(t) {
		t.Run(name, func(t *testing.T) {
			q := factory()
			defer q.Close()

			require.NoError(t, q.Enqueue(entry("op1", outbox.MethodCreate, models.EntityRooms, "temp_1_a", `{"name":"A"}`)))
			require.NoError(t, q.Enqueue(entry("op2", outbox.MethodUpdate, models.EntityRooms, "5", `{"name":"B"}`)))
			require.NoError(t, q.Enqueue(entry("op3", outbox.MethodDelete, models.EntityIslands, "9", "")))

			rooms, err := q.ListPending(models.EntityRooms)
			require.NoError(t, err)
			require.Len(t, rooms, 2)
			assert.Equal(t, "op1", rooms[0].OperationID)
			assert.Equal(t, "op2", rooms[1].OperationID)

			islands, err := q.ListPending(models.EntityIslands)
			require.NoError(t, err)
			require.Len(t, islands, 1)
			assert.Equal(t, outbox.MethodDelete, islands[0].Method)

			count, err := q.PendingCount(models.EntityRooms)
			require.NoError(t, err)
			assert.Equal(t, 2, count)

			entities, err := q.Entities()
			require.NoError(t, err)
			assert.Len(t, entities, 2)
		})
	}
}

func TestQueueStatusTransitions(t *testing.T) {
	for name, factory := range queueFactories(t) {
		t.Run(name, func(t *testing.T) {
			q := factory()
			defer q.Close()

			require.NoError(t, q.Enqueue(entry("op1", outbox.MethodCreate, models.EntityRooms, "temp_1_a", `{}`)))

			require.NoError(t, q.MarkInFlight("op1"))
			pending, err := q.ListPending(models.EntityRooms)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, outbox.StatusInFlight, pending[0].Status)

			require.NoError(t, q.MarkPending("op1"))
			pending, err = q.ListPending(models.EntityRooms)
			require.NoError(t, err)
			assert.Equal(t, outbox.StatusPending, pending[0].Status)

			require.NoError(t, q.MarkDone("op1"))
			pending, err = q.ListPending(models.EntityRooms)
			require.NoError(t, err)
			assert.Empty(t, pending)

			assert.ErrorIs(t, q.MarkDone("op1"), outbox.ErrEntryNotFound)
			assert.ErrorIs(t, q.MarkInFlight("missing"), outbox.ErrEntryNotFound)
		})
	}
}

func TestQueueCancelCreate(t *testing.T) {
	for name, factory := range queueFactories(t) {
		t.Run(name, func(t *testing.T) {
			q := factory()
			defer q.Close()

			require.NoError(t, q.Enqueue(entry("op1", outbox.MethodCreate, models.EntityRooms, "temp_1_a", `{}`)))

			found, err := q.CancelCreate(models.EntityRooms, "temp_1_a")
			require.NoError(t, err)
			assert.True(t, found)

			found, err = q.CancelCreate(models.EntityRooms, "temp_1_a")
			require.NoError(t, err)
			assert.False(t, found)

			count, err := q.PendingCount(models.EntityRooms)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestQueueCancelForTarget(t *testing.T) {
	for name, factory := range queueFactories(t) {
		t.Run(name, func(t *testing.T) {
			q := factory()
			defer q.Close()

			require.NoError(t, q.Enqueue(entry("op1", outbox.MethodCreate, models.EntityRooms, "temp_1_a", `{}`)))
			require.NoError(t, q.Enqueue(entry("op2", outbox.MethodUpdate, models.EntityRooms, "temp_1_a", `{}`)))
			require.NoError(t, q.Enqueue(entry("op3", outbox.MethodUpdate, models.EntityRooms, "7", `{}`)))

			removed, err := q.CancelForTarget(models.EntityRooms, "temp_1_a")
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			pending, err := q.ListPending(models.EntityRooms)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, "op3", pending[0].OperationID)
		})
	}
}

func TestQueueMergeCreatePayload(t *testing.T) {
	for name, factory := range queueFactories(t) {
		t.Run(name, func(t *testing.T) {
			q := factory()
			defer q.Close()

			require.NoError(t, q.Enqueue(entry("op1", outbox.MethodCreate, models.EntityRooms, "temp_1_a", `{"name":"A"}`)))

			merged, err := q.MergeCreatePayload(models.EntityRooms, "temp_1_a", []byte(`{"name":"B","beds":4}`))
			require.NoError(t, err)
			assert.True(t, merged)

			pending, err := q.ListPending(models.EntityRooms)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.JSONEq(t, `{"name":"B","beds":4}`, string(pending[0].Payload))

			merged, err = q.MergeCreatePayload(models.EntityRooms, "temp_other", []byte(`{}`))
			require.NoError(t, err)
			assert.False(t, merged)
		})
	}
}

func TestSQLiteQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")

	q, err := outbox.NewSQLiteQueue(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(entry("op1", outbox.MethodCreate, models.EntityNurses, "temp_1_a", `{"name":"Ana"}`)))
	require.NoError(t, q.MarkInFlight("op1"))
	require.NoError(t, q.Close())

	q2, err := outbox.NewSQLiteQueue(path, testLogger())
	require.NoError(t, err)
	defer q2.Close()

	pending, err := q2.ListPending(models.EntityNurses)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "op1", pending[0].OperationID)
	assert.Equal(t, outbox.StatusInFlight, pending[0].Status)
}
