package repository_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/netmon"
	"github.com/hospitalzapata/wardsync/internal/outbox"
	"github.com/hospitalzapata/wardsync/internal/repository"
	"github.com/hospitalzapata/wardsync/internal/store"
	"github.com/hospitalzapata/wardsync/internal/transport"
)

type fixture struct {
	repo    *repository.Repository
	gateway *transport.MockGateway
	store   *store.MemStore
	queue   *outbox.MemQueue
	monitor *netmon.Monitor
}

func newFixture(t *testing.T, entity models.EntityType) *fixture {
	t.Helper()

	var buf bytes.Buffer
	logger := events.NewTestLogger(events.ErrorLevel, "json", &buf)

	desc, err := repository.DefaultRegistry().Lookup(entity)
	require.NoError(t, err)

	f := &fixture{
		gateway: transport.NewMockGateway(),
		store:   store.NewMemStore(),
		queue:   outbox.NewMemQueue(),
		monitor: netmon.NewMonitor(logger),
	}
	f.repo = repository.New(desc, f.gateway, f.store, f.queue, f.monitor, logger)
	return f
}

func TestListOnlineRefreshesCache(t *testing.T) {
	f := newFixture(t, models.EntityBeds)

	f.gateway.AddResponse("GET", "/beds/status", map[string]interface{}{
		"data": []map[string]interface{}{
			{"id": 1, "bedLabel": "A-1", "isOccupied": "ocupada"},
			{"id": 2, "bedLabel": "A-2", "isOccupied": false},
		},
	})

	docs, err := f.repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[0].ID)

	// Cache now serves the same listing offline
	f.monitor.SetOnline(false)
	cached, err := f.repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestListFallsBackToCacheOnNetworkFailure(t *testing.T) {
	f := newFixture(t, models.EntityRooms)

	require.NoError(t, f.store.ReplaceAll(models.EntityRooms, []models.Document{
		{ID: "1", Payload: []byte(`{"id":1,"name":"North"}`)},
	}))

	f.gateway.SetGlobalError(errors.New("connection refused"))

	docs, err := f.repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0].ID)
	assert.False(t, f.monitor.Online())
}

func TestListServesEmptyWhenStoreFails(t *testing.T) {
	f := newFixture(t, models.EntityRooms)
	f.monitor.SetOnline(false)
	f.store.ReadErr = errors.New("disk error")

	docs, err := f.repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestListKeepsQueuedTempDocuments(t *testing.T) {
	f := newFixture(t, models.EntityRooms)

	require.NoError(t, f.store.Upsert(models.EntityRooms, models.Document{
		ID:      "temp_1_abc",
		Pending: true,
		Payload: []byte(`{"name":"draft"}`),
	}))

	f.gateway.AddResponse("GET", "/rooms", map[string]interface{}{
		"data": []map[string]interface{}{{"id": 1, "name": "North"}},
	})

	docs, err := f.repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[0].ID)
	assert.Equal(t, "temp_1_abc", docs[1].ID)
}

func TestCreateOnline(t *testing.T) {
	f := newFixture(t, models.EntityRooms)

	f.gateway.AddResponse("POST", "/rooms", map[string]interface{}{
		"data": map[string]interface{}{"id": 9, "name": "West"},
	})

	res, err := f.repo.Create(context.Background(), models.Room{Name: "West", Beds: 4})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.False(t, res.Offline)

	doc, err := f.store.Get(models.EntityRooms, "9")
	require.NoError(t, err)
	assert.False(t, doc.Pending)

	count, err := f.queue.PendingCount(models.EntityRooms)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateOfflineQueuesOptimistically(t *testing.T) {
	f := newFixture(t, models.EntityRooms)
	f.monitor.SetOnline(false)

	res, err := f.repo.Create(context.Background(), models.Room{Name: "East"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Offline)

	docs, err := f.store.ReadAll(models.EntityRooms)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, models.IsTempID(docs[0].ID))
	assert.True(t, docs[0].Pending)

	pending, err := f.queue.ListPending(models.EntityRooms)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.MethodCreate, pending[0].Method)
	assert.Equal(t, docs[0].ID, pending[0].TargetID)
}

func TestCreateRejectedWritesNothing(t *testing.T) {
	f := newFixture(t, models.EntityRooms)

	f.gateway.AddError("POST", "/rooms", &models.APIError{StatusCode: 422, Message: "name required"})

	res, err := f.repo.Create(context.Background(), models.Room{})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "name required", res.Message)

	docs, err := f.store.ReadAll(models.EntityRooms)
	require.NoError(t, err)
	assert.Empty(t, docs)

	count, err := f.queue.PendingCount(models.EntityRooms)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpdateTempIDMergesIntoQueuedCreate(t *testing.T) {
	f := newFixture(t, models.EntityRooms)
	f.monitor.SetOnline(false)

	res, err := f.repo.Create(context.Background(), models.Room{Name: "v1"})
	require.NoError(t, err)
	require.True(t, res.Offline)

	docs, err := f.store.ReadAll(models.EntityRooms)
	require.NoError(t, err)
	tempID := docs[0].ID

	_, err = f.repo.Update(context.Background(), tempID, models.Room{Name: "v2", Beds: 3})
	require.NoError(t, err)

	// Still a single queued operation, carrying the merged payload
	pending, err := f.queue.ListPending(models.EntityRooms)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.MethodCreate, pending[0].Method)
	assert.Contains(t, string(pending[0].Payload), "v2")

	doc, err := f.store.Get(models.EntityRooms, tempID)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Payload), "v2")
}

func TestUpdateOfflineQueues(t *testing.T) {
	f := newFixture(t, models.EntityRooms)
	f.monitor.SetOnline(false)

	res, err := f.repo.Update(context.Background(), "7", models.Room{Name: "renamed"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Offline)

	pending, err := f.queue.ListPending(models.EntityRooms)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.MethodUpdate, pending[0].Method)
	assert.Equal(t, "7", pending[0].TargetID)

	doc, err := f.store.Get(models.EntityRooms, "7")
	require.NoError(t, err)
	assert.True(t, doc.Pending)
}

func TestDeleteTempIDNeverTouchesNetwork(t *testing.T) {
	f := newFixture(t, models.EntityRooms)
	f.monitor.SetOnline(false)

	res, err := f.repo.Create(context.Background(), models.Room{Name: "draft"})
	require.NoError(t, err)
	require.True(t, res.Offline)

	docs, err := f.store.ReadAll(models.EntityRooms)
	require.NoError(t, err)
	tempID := docs[0].ID

	// Back online: the delete must still stay local
	f.monitor.SetOnline(true)

	res, err = f.repo.Delete(context.Background(), tempID)
	require.NoError(t, err)
	assert.True(t, res.OK)

	assert.Empty(t, f.gateway.Requests)

	count, err := f.queue.PendingCount(models.EntityRooms)
	require.NoError(t, err)
	assert.Zero(t, count, "queued create must be cancelled")

	docs, err = f.store.ReadAll(models.EntityRooms)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteOnline(t *testing.T) {
	f := newFixture(t, models.EntityRooms)

	require.NoError(t, f.store.Upsert(models.EntityRooms, models.Document{
		ID: "4", Payload: []byte(`{"id":4}`),
	}))
	f.gateway.AddResponse("DELETE", "/rooms/4", map[string]interface{}{"message": "deleted"})

	res, err := f.repo.Delete(context.Background(), "4")
	require.NoError(t, err)
	assert.True(t, res.OK)

	_, err = f.store.Get(models.EntityRooms, "4")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteOfflineQueues(t *testing.T) {
	f := newFixture(t, models.EntityRooms)
	f.monitor.SetOnline(false)

	require.NoError(t, f.store.Upsert(models.EntityRooms, models.Document{
		ID: "4", Payload: []byte(`{"id":4}`),
	}))

	res, err := f.repo.Delete(context.Background(), "4")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Offline)

	pending, err := f.queue.ListPending(models.EntityRooms)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.MethodDelete, pending[0].Method)
}

func TestOnlineOnlyDeleteFailsFastOffline(t *testing.T) {
	for _, entity := range []models.EntityType{models.EntityBeds, models.EntityPatients} {
		t.Run(string(entity), func(t *testing.T) {
			f := newFixture(t, entity)
			f.monitor.SetOnline(false)

			_, err := f.repo.Delete(context.Background(), "4")
			assert.ErrorIs(t, err, models.ErrRequiresConnectivity)

			count, qerr := f.queue.PendingCount(entity)
			require.NoError(t, qerr)
			assert.Zero(t, count)
			assert.Empty(t, f.gateway.Requests)
		})
	}
}

func TestOnlineOnlyUpdateFailsFastOffline(t *testing.T) {
	f := newFixture(t, models.EntityBeds)
	f.monitor.SetOnline(false)

	_, err := f.repo.Update(context.Background(), "4", map[string]string{"bedLabel": "B-2"})
	assert.ErrorIs(t, err, models.ErrRequiresConnectivity)

	count, qerr := f.queue.PendingCount(models.EntityBeds)
	require.NoError(t, qerr)
	assert.Zero(t, count)
	assert.Empty(t, f.gateway.Requests)
}

func TestEnqueueFailureDegradesWithoutBlocking(t *testing.T) {
	t.Run("create keeps the optimistic document", func(t *testing.T) {
		f := newFixture(t, models.EntityRooms)
		f.monitor.SetOnline(false)
		f.queue.EnqueueErr = errors.New("disk full")

		res, err := f.repo.Create(context.Background(), map[string]string{"name": "East"})
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.True(t, res.Offline)
		assert.Contains(t, res.Message, "could not be scheduled")

		docs, err := f.store.ReadAll(models.EntityRooms)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.True(t, docs[0].Pending)
	})

	t.Run("update keeps the optimistic document", func(t *testing.T) {
		f := newFixture(t, models.EntityRooms)
		f.monitor.SetOnline(false)
		f.queue.EnqueueErr = errors.New("disk full")

		res, err := f.repo.Update(context.Background(), "5", map[string]string{"name": "West"})
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.True(t, res.Offline)
		assert.Contains(t, res.Message, "could not be scheduled")

		doc, err := f.store.Get(models.EntityRooms, "5")
		require.NoError(t, err)
		assert.True(t, doc.Pending)
	})

	t.Run("delete keeps the local removal", func(t *testing.T) {
		f := newFixture(t, models.EntityRooms)
		f.monitor.SetOnline(false)
		f.queue.EnqueueErr = errors.New("disk full")

		require.NoError(t, f.store.Upsert(models.EntityRooms, models.Document{
			ID: "6", Payload: []byte(`{"id":6}`),
		}))

		res, err := f.repo.Delete(context.Background(), "6")
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.True(t, res.Offline)

		_, err = f.store.Get(models.EntityRooms, "6")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
