package connlist

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/channel-console/internal/model"
)

// Fetcher lists connection records from the backend.
type Fetcher interface {
	ListConnections(ctx context.Context) ([]model.ChannelConnection, error)
}

// Cache holds the most recent connection list.
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger
	group   singleflight.Group

	mu    sync.RWMutex
	conns []model.ChannelConnection
	byID  map[int64]int
	valid bool
	gen   uint64 // Bumped by Invalidate
}

// New creates an empty cache.
func New(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Name identifies the cache as a refresh source.
func (c *Cache) Name() string {
	return "connections"
}

// List returns all records, newest first, refreshing if invalidated.
func (c *Cache) List(ctx context.Context) ([]model.ChannelConnection, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.ChannelConnection(nil), c.conns...), nil
}

// Get returns one record. ok is false if the backend does not list it.
func (c *Cache) Get(ctx context.Context, id int64) (conn model.ChannelConnection, ok bool, err error) {
	if err := c.ensure(ctx); err != nil {
		return model.ChannelConnection{}, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return model.ChannelConnection{}, false, nil
	}
	return c.conns[i], true, nil
}

// Reconnectable returns unofficial records that are not connected.
func (c *Cache) Reconnectable(ctx context.Context) ([]model.ChannelConnection, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, conn := range all {
		if conn.ChannelType == model.ChannelWhatsAppUnofficial && !conn.IsConnected() {
			out = append(out, conn)
		}
	}
	return out, nil
}

// Invalidate marks the cache stale; the next read refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.gen++
	c.mu.Unlock()
}

// Refresh fetches the list now. Concurrent callers share one request.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, shared := c.group.Do("connections", func() (any, error) {
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		conns, err := c.fetcher.ListConnections(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh connections: %w", err)
		}

		sort.SliceStable(conns, func(i, j int) bool {
			if !conns[i].CreatedAt.Equal(conns[j].CreatedAt) {
				return conns[i].CreatedAt.After(conns[j].CreatedAt)
			}
			return conns[i].ID > conns[j].ID
		})

		byID := make(map[int64]int, len(conns))
		for i, conn := range conns {
			byID[conn.ID] = i
		}

		c.mu.Lock()
		c.conns = conns
		c.byID = byID
		// An Invalidate during the fetch means the list may predate it.
		c.valid = c.gen == gen
		c.mu.Unlock()

		return nil, nil
	})

	if err == nil {
		c.logger.Debug("connection list refreshed", "shared", shared)
	}
	return err
}

func (c *Cache) ensure(ctx context.Context) error {
	c.mu.RLock()
	valid := c.valid
	c.mu.RUnlock()

	if valid {
		return nil
	}
	return c.Refresh(ctx)
}
