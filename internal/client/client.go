package client

import (
	"context"
	"fmt"

	"github.com/hospitalzapata/wardsync/internal/admissions"
	"github.com/hospitalzapata/wardsync/internal/alerts"
	"github.com/hospitalzapata/wardsync/internal/config"
	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/netmon"
	"github.com/hospitalzapata/wardsync/internal/outbox"
	"github.com/hospitalzapata/wardsync/internal/repository"
	"github.com/hospitalzapata/wardsync/internal/store"
	"github.com/hospitalzapata/wardsync/internal/syncer"
	"github.com/hospitalzapata/wardsync/internal/transport"
)

// Client provides the high-level API for wardsync operations.
type Client struct {
	Alerts     *alerts.Service
	Admissions *admissions.Service
	Sync       *syncer.Engine
	Monitor    *netmon.Monitor

	config   *config.Config
	logger   *events.Logger
	gateway  transport.Gateway
	store    store.Store
	queue    outbox.Queue
	registry *repository.Registry
	repos    map[models.EntityType]*repository.Repository
}

// New creates a wardsync client.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	gateway := transport.NewGateway(&cfg.API, logger)

	docStore, err := store.NewStore(&cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	queue, err := outbox.NewQueue(&cfg.Storage, logger)
	if err != nil {
		docStore.Close()
		return nil, err
	}

	monitor := netmon.NewMonitor(logger)
	registry := repository.DefaultRegistry()

	engine := syncer.NewEngine(gateway, docStore, queue, registry, monitor, cfg.Sync.NoticeBuffer, logger)

	repos := make(map[models.EntityType]*repository.Repository)
	for _, entity := range registry.Types() {
		desc, err := registry.Lookup(entity)
		if err != nil {
			continue
		}
		repos[entity] = repository.New(desc, gateway, docStore, queue, monitor, logger)
	}

	client := &Client{
		Alerts:     alerts.NewService(gateway, queue, monitor, logger),
		Admissions: admissions.NewService(gateway, monitor, logger),
		Sync:       engine,
		Monitor:    monitor,
		config:     cfg,
		logger:     logger,
		gateway:    gateway,
		store:      docStore,
		queue:      queue,
		registry:   registry,
		repos:      repos,
	}

	// Connectivity recovery drains everything that queued up while
	// offline.
	monitor.Subscribe(func() {
		go func() {
			if err := engine.DrainAll(context.Background()); err != nil {
				logger.WithError(err).Warn("Drain on reconnect failed")
			}
		}()
	})

	return client, nil
}

// Repo returns the repository for an entity type.
func (c *Client) Repo(entity models.EntityType) (*repository.Repository, error) {
	repo, ok := c.repos[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entity)
	}
	return repo, nil
}

// PendingTotal sums the queued mutations across every entity.
func (c *Client) PendingTotal() (int, error) {
	total := 0
	for _, entity := range c.registry.Types() {
		n, err := c.queue.PendingCount(entity)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Close releases every resource the client holds.
func (c *Client) Close() error {
	c.Sync.Close()

	var firstErr error
	if err := c.queue.Close(); err != nil {
		firstErr = err
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.gateway.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
