package integration_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitalzapata/wardsync/internal/config"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/netmon"
	"github.com/hospitalzapata/wardsync/internal/outbox"
	"github.com/hospitalzapata/wardsync/internal/repository"
	"github.com/hospitalzapata/wardsync/internal/store"
	"github.com/hospitalzapata/wardsync/internal/syncer"
	"github.com/hospitalzapata/wardsync/internal/transport"
	"github.com/hospitalzapata/wardsync/test/testutil"
)

// TestOfflineRoundTrip exercises the full offline cycle against a real
// HTTP server and SQLite persistence: work online, lose the server,
// mutate optimistically, reconnect, drain, and verify reconciliation.
func TestOfflineRoundTrip(t *testing.T) {
	server := testutil.NewWardServer()
	defer server.Close()
	server.SeedRoom(map[string]interface{}{"name": "North"})

	logger := testutil.NewTestLogger()
	dir := t.TempDir()

	gateway := transport.NewHTTPGateway(&config.APIConfig{
		BaseURL:    server.URL(),
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		UserAgent:  "wardsync-test",
	}, logger)

	docStore, err := store.NewSQLiteStore(filepath.Join(dir, "cache.db"), logger)
	require.NoError(t, err)
	defer docStore.Close()

	queue, err := outbox.NewSQLiteQueue(filepath.Join(dir, "outbox.db"), logger)
	require.NoError(t, err)
	defer queue.Close()

	monitor := netmon.NewMonitor(logger)
	registry := repository.DefaultRegistry()
	desc, err := registry.Lookup(models.EntityRooms)
	require.NoError(t, err)

	repo := repository.New(desc, gateway, docStore, queue, monitor, logger)
	engine := syncer.NewEngine(gateway, docStore, queue, registry, monitor, 100, logger)
	defer engine.Close()

	ctx := context.Background()

	// Online: listing fills the cache
	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	seededID := docs[0].ID

	// Outage begins
	server.SetFailing(true)

	res, err := repo.Create(ctx, models.Room{Name: "South"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Offline)
	assert.False(t, monitor.Online())

	// Cached listing still works and shows the optimistic entry
	docs, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var tempID string
	for _, d := range docs {
		if models.IsTempID(d.ID) {
			tempID = d.ID
		}
	}
	require.NotEmpty(t, tempID)

	// Editing the unsynced entry folds into its queued create
	_, err = repo.Update(ctx, tempID, models.Room{Name: "South wing"})
	require.NoError(t, err)

	// Deleting the synced room queues a delete
	res, err = repo.Delete(ctx, seededID)
	require.NoError(t, err)
	assert.True(t, res.Offline)

	count, err := queue.PendingCount(models.EntityRooms)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one merged create plus one delete")

	// Outage ends, drain replays everything in order
	server.SetFailing(false)
	require.NoError(t, engine.Drain(ctx, models.EntityRooms))

	count, err = queue.PendingCount(models.EntityRooms)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Server state: seeded room deleted, merged create applied
	assert.Equal(t, 1, server.RoomCount())

	// Cache reconciled to the server's confirmed document
	docs, err = docStore.ReadAll(models.EntityRooms)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.False(t, models.IsTempID(docs[0].ID))
	assert.False(t, docs[0].Pending)
	assert.Contains(t, string(docs[0].Payload), "South wing")
}

// TestPermanentRejectionRoundTrip verifies a queued create the server
// refuses is dropped without blocking the rest of the queue.
func TestPermanentRejectionRoundTrip(t *testing.T) {
	server := testutil.NewWardServer()
	defer server.Close()
	server.SeedRoom(map[string]interface{}{"name": "North"})

	logger := testutil.NewTestLogger()
	dir := t.TempDir()

	gateway := transport.NewHTTPGateway(&config.APIConfig{
		BaseURL:    server.URL(),
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		UserAgent:  "wardsync-test",
	}, logger)

	docStore, err := store.NewSQLiteStore(filepath.Join(dir, "cache.db"), logger)
	require.NoError(t, err)
	defer docStore.Close()

	queue, err := outbox.NewSQLiteQueue(filepath.Join(dir, "outbox.db"), logger)
	require.NoError(t, err)
	defer queue.Close()

	monitor := netmon.NewMonitor(logger)
	registry := repository.DefaultRegistry()
	desc, err := registry.Lookup(models.EntityRooms)
	require.NoError(t, err)

	repo := repository.New(desc, gateway, docStore, queue, monitor, logger)
	engine := syncer.NewEngine(gateway, docStore, queue, registry, monitor, 100, logger)
	defer engine.Close()

	ctx := context.Background()

	server.SetFailing(true)

	// The empty name will be refused by the server on replay
	res, err := repo.Create(ctx, models.Room{Name: ""})
	require.NoError(t, err)
	require.True(t, res.Offline)

	res, err = repo.Create(ctx, models.Room{Name: "Valid"})
	require.NoError(t, err)
	require.True(t, res.Offline)

	server.SetFailing(false)
	require.NoError(t, engine.Drain(ctx, models.EntityRooms))

	// The refused create is gone, the valid one landed
	count, err := queue.PendingCount(models.EntityRooms)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 2, server.RoomCount(), "seeded plus the valid create")

	docs, err := docStore.ReadAll(models.EntityRooms)
	require.NoError(t, err)
	for _, d := range docs {
		assert.False(t, models.IsTempID(d.ID), "no optimistic leftovers")
	}
}
