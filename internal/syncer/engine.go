package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/netmon"
	"github.com/hospitalzapata/wardsync/internal/outbox"
	"github.com/hospitalzapata/wardsync/internal/repository"
	"github.com/hospitalzapata/wardsync/internal/store"
	"github.com/hospitalzapata/wardsync/internal/transport"
)

// Engine replays queued mutations against the server. Each entity
// type drains independently and in order; a transient failure halts
// that entity's drain so later entries never jump the queue.
type Engine struct {
	gateway  transport.Gateway
	store    store.Store
	queue    outbox.Queue
	registry *repository.Registry
	monitor  *netmon.Monitor
	logger   *events.Logger

	notices       chan Notice
	noticesClosed bool

	mu       sync.Mutex
	draining map[models.EntityType]bool
}

// Notice reports drain activity to observers.
type Notice struct {
	Type      NoticeType
	Timestamp time.Time
	Entity    models.EntityType
	Entry     *outbox.Entry
	Err       error
}

// NoticeType defines drain notice types.
type NoticeType string

const (
	NoticeDrainStarted  NoticeType = "drain_started"
	NoticeEntrySynced   NoticeType = "entry_synced"
	NoticeEntryRejected NoticeType = "entry_rejected"
	NoticeDrainHalted   NoticeType = "drain_halted"
	NoticeDrainComplete NoticeType = "drain_complete"
)

// NewEngine creates a sync engine.
func NewEngine(
	gateway transport.Gateway,
	st store.Store,
	queue outbox.Queue,
	registry *repository.Registry,
	monitor *netmon.Monitor,
	noticeBuffer int,
	logger *events.Logger,
) *Engine {
	if noticeBuffer <= 0 {
		noticeBuffer = 100
	}
	return &Engine{
		gateway:  gateway,
		store:    st,
		queue:    queue,
		registry: registry,
		monitor:  monitor,
		logger:   logger.WithField("component", "sync_engine"),
		notices:  make(chan Notice, noticeBuffer),
		draining: make(map[models.EntityType]bool),
	}
}

// Notices returns the notice channel.
func (e *Engine) Notices() <-chan Notice {
	return e.notices
}

// Drain replays the queued mutations for one entity type. A drain
// already running for the same entity makes this call a no-op.
func (e *Engine) Drain(ctx context.Context, entity models.EntityType) error {
	e.mu.Lock()
	if e.draining[entity] {
		e.mu.Unlock()
		e.logger.WithField("entity", string(entity)).Debug("Drain already running, skipping")
		return nil
	}
	e.draining[entity] = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.draining, entity)
		e.mu.Unlock()
	}()

	return e.drain(ctx, entity)
}

// DrainAll drains every entity type with queued mutations. The first
// transient failure stops the whole pass; remaining entities keep
// their queues for the next trigger.
func (e *Engine) DrainAll(ctx context.Context) error {
	entities, err := e.queue.Entities()
	if err != nil {
		return fmt.Errorf("list queued entities: %w", err)
	}

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Drain(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts the notice channel.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.noticesClosed {
		e.noticesClosed = true
		close(e.notices)
	}
}

func (e *Engine) drain(ctx context.Context, entity models.EntityType) error {
	desc, err := e.registry.Lookup(entity)
	if err != nil {
		return err
	}

	entries, err := e.queue.ListPending(entity)
	if err != nil {
		return fmt.Errorf("list pending entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	e.logger.WithFields(map[string]interface{}{
		"entity": string(entity),
		"count":  len(entries),
	}).Info("Draining queued mutations")

	e.emit(Notice{Type: NoticeDrainStarted, Entity: entity})

	progress := false
	for i := range entries {
		entry := entries[i]

		if err := ctx.Err(); err != nil {
			e.emit(Notice{Type: NoticeDrainHalted, Entity: entity, Err: err})
			return err
		}

		if err := e.queue.MarkInFlight(entry.OperationID); err != nil {
			if errors.Is(err, outbox.ErrEntryNotFound) {
				// A rejected create earlier in this pass cancelled the
				// entry after we listed it.
				continue
			}
			return fmt.Errorf("mark in flight: %w", err)
		}

		if err := e.replay(ctx, desc, entry); err != nil {
			if models.IsTransient(err) {
				// Leave the entry queued and stop so later entries
				// cannot overtake it.
				if merr := e.queue.MarkPending(entry.OperationID); merr != nil {
					e.logger.WithError(merr).Error("Failed to requeue entry")
				}
				e.monitor.SetOnline(false)

				syncErr := &models.SyncError{
					Entity:      entity,
					OperationID: entry.OperationID,
					Method:      entry.Method,
					Err:         err,
				}
				e.emit(Notice{Type: NoticeDrainHalted, Entity: entity, Entry: &entry, Err: syncErr})
				e.refresh(ctx, desc, progress)
				return syncErr
			}

			// The server rejected the mutation outright. Drop it and
			// undo the optimistic local state it produced.
			e.reject(entity, entry, err)
			progress = true
			continue
		}

		progress = true
		e.emit(Notice{Type: NoticeEntrySynced, Entity: entity, Entry: &entry})
	}

	e.refresh(ctx, desc, progress)
	e.emit(Notice{Type: NoticeDrainComplete, Entity: entity})
	return nil
}

// replay sends one queued mutation and applies its confirmed result
// to the local store.
func (e *Engine) replay(ctx context.Context, desc repository.Descriptor, entry outbox.Entry) error {
	switch entry.Method {
	case outbox.MethodCreate:
		env, err := e.gateway.Post(ctx, desc.Path, json.RawMessage(entry.Payload))
		if err != nil {
			return err
		}
		e.monitor.SetOnline(true)

		// The optimistic temp-ID document gives way to the server's
		// confirmed one.
		if err := e.store.Remove(entry.Entity, entry.TargetID); err != nil {
			e.logger.WithError(err).Warn("Failed to remove optimistic document")
		}
		if obj, derr := env.DataObject(); derr == nil {
			if doc, derr := models.DocumentFromServer(obj); derr == nil {
				if err := e.store.Upsert(entry.Entity, doc); err != nil {
					e.logger.WithError(err).Warn("Failed to store confirmed document")
				}
			}
		}

	case outbox.MethodUpdate:
		env, err := e.gateway.Put(ctx, desc.ItemPath(entry.TargetID), json.RawMessage(entry.Payload))
		if err != nil {
			return err
		}
		e.monitor.SetOnline(true)

		doc := models.Document{ID: entry.TargetID, Payload: entry.Payload}
		if obj, derr := env.DataObject(); derr == nil {
			if confirmed, derr := models.DocumentFromServer(obj); derr == nil {
				doc = confirmed
			}
		}
		if err := e.store.Upsert(entry.Entity, doc); err != nil {
			e.logger.WithError(err).Warn("Failed to store confirmed document")
		}

	case outbox.MethodDelete:
		if _, err := e.gateway.Delete(ctx, desc.ItemPath(entry.TargetID)); err != nil {
			return err
		}
		e.monitor.SetOnline(true)

		if err := e.store.Remove(entry.Entity, entry.TargetID); err != nil {
			e.logger.WithError(err).Warn("Failed to remove deleted document")
		}

	default:
		return fmt.Errorf("unknown outbox method %q", entry.Method)
	}

	if err := e.queue.MarkDone(entry.OperationID); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

// reject drops a permanently refused entry. A refused create for a
// temp-ID document also cancels everything else queued against that
// ID and removes the optimistic document.
func (e *Engine) reject(entity models.EntityType, entry outbox.Entry, cause error) {
	e.monitor.SetOnline(true)

	e.logger.WithError(cause).WithFields(map[string]interface{}{
		"entity":       string(entity),
		"operation_id": entry.OperationID,
		"method":       entry.Method,
	}).Warn("Server rejected queued mutation")

	if err := e.queue.MarkDone(entry.OperationID); err != nil {
		e.logger.WithError(err).Error("Failed to drop rejected entry")
	}

	if entry.Method == outbox.MethodCreate && models.IsTempID(entry.TargetID) {
		if n, err := e.queue.CancelForTarget(entity, entry.TargetID); err != nil {
			e.logger.WithError(err).Error("Failed to cancel dependent entries")
		} else if n > 0 {
			e.logger.WithField("count", n).Info("Cancelled entries dependent on rejected create")
		}
		if err := e.store.Remove(entity, entry.TargetID); err != nil {
			e.logger.WithError(err).Warn("Failed to remove rejected optimistic document")
		}
	}

	e.emit(Notice{
		Type:   NoticeEntryRejected,
		Entity: entity,
		Entry:  &entry,
		Err: &models.SyncError{
			Entity:      entity,
			OperationID: entry.OperationID,
			Method:      entry.Method,
			Err:         cause,
		},
	})
}

// refresh re-reads the collection from the server after a drain that
// made progress, so the cache reflects authoritative state.
func (e *Engine) refresh(ctx context.Context, desc repository.Descriptor, progress bool) {
	if !progress || desc.ListPath == "" {
		return
	}

	env, err := e.gateway.Get(ctx, desc.ListPath)
	if err != nil {
		if models.IsTransient(err) {
			e.monitor.SetOnline(false)
		}
		e.logger.WithError(err).Warn("Post-drain refresh failed")
		return
	}

	items, err := env.DataList()
	if err != nil {
		e.logger.WithError(err).Warn("Post-drain refresh returned malformed listing")
		return
	}

	docs := make([]models.Document, 0, len(items))
	for _, item := range items {
		doc, derr := models.DocumentFromServer(item)
		if derr != nil {
			continue
		}
		docs = append(docs, doc)
	}

	// Optimistic documents that still have queued creates survive
	// the replacement.
	existing, err := e.store.ReadAll(desc.Type)
	if err == nil {
		for _, d := range existing {
			if models.IsTempID(d.ID) {
				docs = append(docs, d)
			}
		}
	}

	if err := e.store.ReplaceAll(desc.Type, docs); err != nil {
		e.logger.WithError(err).Warn("Failed to apply post-drain refresh")
	}
}

func (e *Engine) emit(notice Notice) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.noticesClosed {
		return
	}

	notice.Timestamp = time.Now()
	select {
	case e.notices <- notice:
	default:
		e.logger.Debug("Notice channel full, dropping notice")
	}
}
