package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/netmon"
	"github.com/hospitalzapata/wardsync/internal/outbox"
	"github.com/hospitalzapata/wardsync/internal/store"
	"github.com/hospitalzapata/wardsync/internal/transport"
)

// Repository serves reads and writes for one entity type. Online it
// talks to the API and mirrors results into the local store; offline
// it serves the cache and queues mutations in the outbox.
type Repository struct {
	desc    Descriptor
	gateway transport.Gateway
	store   store.Store
	queue   outbox.Queue
	monitor *netmon.Monitor
	logger  *events.Logger
}

// New creates a repository for one entity type.
func New(
	desc Descriptor,
	gateway transport.Gateway,
	st store.Store,
	queue outbox.Queue,
	monitor *netmon.Monitor,
	logger *events.Logger,
) *Repository {
	return &Repository{
		desc:    desc,
		gateway: gateway,
		store:   st,
		queue:   queue,
		monitor: monitor,
		logger:  logger.WithField("entity", string(desc.Type)),
	}
}

// List returns the collection. Online it refreshes the cache from the
// server first; any network failure falls back to the cached copy.
func (r *Repository) List(ctx context.Context) ([]models.Document, error) {
	if r.monitor.Online() && r.desc.ListPath != "" {
		env, err := r.gateway.Get(ctx, r.desc.ListPath)
		if err == nil {
			r.monitor.SetOnline(true)
			docs, perr := r.refreshCache(env)
			if perr == nil {
				return docs, nil
			}
			r.logger.WithError(perr).Warn("Failed to apply server listing")
		} else if !models.IsTransient(err) {
			return nil, err
		} else {
			r.monitor.SetOnline(false)
			r.logger.WithError(err).Info("Listing offline, serving cache")
		}
	}

	docs, err := r.store.ReadAll(r.desc.Type)
	if err != nil {
		r.logger.WithError(err).Warn("Cache read failed, serving empty collection")
		return []models.Document{}, nil
	}
	return docs, nil
}

// Create stores a new document. Online it POSTs and mirrors the
// confirmed document; otherwise it writes an optimistic temp-ID
// document and queues the create for a later drain.
func (r *Repository) Create(ctx context.Context, payload interface{}) (models.Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.Result{}, fmt.Errorf("marshal payload: %w", err)
	}

	if r.monitor.Online() {
		env, err := r.gateway.Post(ctx, r.desc.Path, json.RawMessage(raw))
		switch {
		case err == nil:
			r.monitor.SetOnline(true)
			r.mirrorConfirmed(env, "")
			return models.OnlineOK(env.Data), nil
		case !models.IsTransient(err):
			return models.Rejected(apiMessage(err)), nil
		default:
			r.monitor.SetOnline(false)
		}
	}

	tempID := models.NewTempID()
	doc := models.Document{ID: tempID, Pending: true, Payload: raw}
	if err := r.store.Upsert(r.desc.Type, doc); err != nil {
		return models.Result{}, fmt.Errorf("store optimistic document: %w", err)
	}

	if err := r.queue.Enqueue(outbox.Entry{
		OperationID: outbox.NewOperationID(),
		Method:      outbox.MethodCreate,
		Entity:      r.desc.Type,
		TargetID:    tempID,
		Payload:     raw,
		Status:      outbox.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		// The optimistic write already landed. Without a queue entry it
		// will never replay, but the user keeps their edit.
		r.logger.WithError(err).Error("Failed to queue create")
		return models.QueuedOK(models.ResultData(doc), "saved locally, but sync could not be scheduled"), nil
	}

	return models.QueuedOK(models.ResultData(doc), "saved locally, will sync when online"), nil
}

// Update modifies a document. Updates to a document that only exists
// locally fold into its queued create instead of queueing a second
// operation.
func (r *Repository) Update(ctx context.Context, id string, payload interface{}) (models.Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.Result{}, fmt.Errorf("marshal payload: %w", err)
	}

	if models.IsTempID(id) {
		merged, err := r.queue.MergeCreatePayload(r.desc.Type, id, raw)
		if err != nil {
			return models.Result{}, fmt.Errorf("merge queued create: %w", err)
		}
		if !merged {
			return models.Result{}, fmt.Errorf("no queued create for %s", id)
		}

		doc := models.Document{ID: id, Pending: true, Payload: raw}
		if err := r.store.Upsert(r.desc.Type, doc); err != nil {
			return models.Result{}, fmt.Errorf("store optimistic document: %w", err)
		}
		return models.QueuedOK(models.ResultData(doc), "saved locally, will sync when online"), nil
	}

	if r.monitor.Online() {
		env, err := r.gateway.Put(ctx, r.desc.ItemPath(id), json.RawMessage(raw))
		switch {
		case err == nil:
			r.monitor.SetOnline(true)
			r.mirrorConfirmed(env, id)
			return models.OnlineOK(env.Data), nil
		case !models.IsTransient(err):
			return models.Rejected(apiMessage(err)), nil
		default:
			r.monitor.SetOnline(false)
		}
	}

	if r.desc.OnlineOnlyUpdate {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	doc := models.Document{ID: id, Pending: true, Payload: raw}
	if err := r.store.Upsert(r.desc.Type, doc); err != nil {
		return models.Result{}, fmt.Errorf("store optimistic document: %w", err)
	}

	if err := r.queue.Enqueue(outbox.Entry{
		OperationID: outbox.NewOperationID(),
		Method:      outbox.MethodUpdate,
		Entity:      r.desc.Type,
		TargetID:    id,
		Payload:     raw,
		Status:      outbox.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		r.logger.WithError(err).Error("Failed to queue update")
		return models.QueuedOK(models.ResultData(doc), "saved locally, but sync could not be scheduled"), nil
	}

	return models.QueuedOK(models.ResultData(doc), "saved locally, will sync when online"), nil
}

// Delete removes a document. Deleting a document that never reached
// the server cancels its queued create locally without any network
// traffic.
func (r *Repository) Delete(ctx context.Context, id string) (models.Result, error) {
	if models.IsTempID(id) {
		if _, err := r.queue.CancelForTarget(r.desc.Type, id); err != nil {
			return models.Result{}, fmt.Errorf("cancel queued operations: %w", err)
		}
		if err := r.store.Remove(r.desc.Type, id); err != nil {
			return models.Result{}, fmt.Errorf("remove local document: %w", err)
		}
		return models.Result{OK: true, Message: "discarded unsynced document"}, nil
	}

	if r.monitor.Online() {
		env, err := r.gateway.Delete(ctx, r.desc.ItemPath(id))
		switch {
		case err == nil:
			r.monitor.SetOnline(true)
			if err := r.store.Remove(r.desc.Type, id); err != nil {
				r.logger.WithError(err).Warn("Failed to remove cached document")
			}
			return models.OnlineOK(env.Data), nil
		case !models.IsTransient(err):
			return models.Rejected(apiMessage(err)), nil
		default:
			r.monitor.SetOnline(false)
		}
	}

	if r.desc.OnlineOnlyDelete {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	if err := r.store.Remove(r.desc.Type, id); err != nil {
		return models.Result{}, fmt.Errorf("remove local document: %w", err)
	}

	if err := r.queue.Enqueue(outbox.Entry{
		OperationID: outbox.NewOperationID(),
		Method:      outbox.MethodDelete,
		Entity:      r.desc.Type,
		TargetID:    id,
		Status:      outbox.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		r.logger.WithError(err).Error("Failed to queue delete")
		return models.QueuedOK(nil, "deleted locally, but sync could not be scheduled"), nil
	}

	return models.QueuedOK(nil, "deleted locally, will sync when online"), nil
}

// PendingCount reports how many queued mutations this entity has.
func (r *Repository) PendingCount() (int, error) {
	return r.queue.PendingCount(r.desc.Type)
}

// refreshCache replaces the cached collection with the server listing,
// keeping any optimistic temp-ID documents that are still queued.
func (r *Repository) refreshCache(env *models.Envelope) ([]models.Document, error) {
	items, err := env.DataList()
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(items))
	for _, item := range items {
		doc, err := models.DocumentFromServer(item)
		if err != nil {
			r.logger.WithError(err).Warn("Skipping malformed server document")
			continue
		}
		docs = append(docs, doc)
	}

	existing, err := r.store.ReadAll(r.desc.Type)
	if err == nil {
		for _, d := range existing {
			if models.IsTempID(d.ID) {
				docs = append(docs, d)
			}
		}
	}

	if err := r.store.ReplaceAll(r.desc.Type, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// mirrorConfirmed upserts the server's confirmed document into the
// cache. fallbackID fills in when the response body has no document.
func (r *Repository) mirrorConfirmed(env *models.Envelope, fallbackID string) {
	obj, err := env.DataObject()
	if err != nil || obj == nil {
		return
	}

	doc, err := models.DocumentFromServer(obj)
	if err != nil {
		if fallbackID == "" {
			return
		}
		doc = models.Document{ID: fallbackID, Payload: obj}
	}

	if err := r.store.Upsert(r.desc.Type, doc); err != nil {
		r.logger.WithError(err).Warn("Failed to mirror confirmed document")
	}
}

func apiMessage(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
