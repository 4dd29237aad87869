package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/rickgao/channel-console/internal/model"
)

// Errors
var (
	ErrNotFound = errors.New("proxy server not found")
	ErrDisabled = errors.New("proxy server is disabled")
)

// Lister fetches proxy servers from the backend.
type Lister interface {
	ListProxyServers(ctx context.Context) ([]model.ProxyServer, error)
}

// Selector caches the proxy list for TTL and answers selection queries.
type Selector struct {
	lister Lister
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger
	group  singleflight.Group

	mu        sync.RWMutex
	proxies   []model.ProxyServer
	fetchedAt time.Time
	loaded    bool
}

// NewSelector creates a selector. A zero ttl caches until Refresh.
func NewSelector(lister Lister, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Selector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		lister: lister,
		ttl:    ttl,
		clock:  clock,
		logger: logger,
	}
}

// Name identifies the selector as a refresh source.
func (s *Selector) Name() string {
	return "proxies"
}

// All returns every proxy, sorted by name, fetching if the cache is stale.
func (s *Selector) All(ctx context.Context) ([]model.ProxyServer, error) {
	if proxies, ok := s.cached(); ok {
		return proxies, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	proxies, _ := s.snapshot()
	return proxies, nil
}

// Enabled returns the proxies an operator may pick.
func (s *Selector) Enabled(ctx context.Context) ([]model.ProxyServer, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]model.ProxyServer, 0, len(all))
	for _, p := range all {
		if !p.Enabled {
			continue
		}
		if err := p.Validate(); err != nil {
			s.logger.Warn("skipping invalid proxy", "proxy_id", p.ID, "name", p.Name, "error", err)
			continue
		}
		enabled = append(enabled, p)
	}
	return enabled, nil
}

// Select validates that id names an enabled proxy. A nil id means a direct
// connection and is always valid.
func (s *Selector) Select(ctx context.Context, id *int64) (*model.ProxyServer, error) {
	if id == nil {
		return nil, nil
	}

	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].ID != *id {
			continue
		}
		p := all[i]
		if !p.Enabled {
			return nil, fmt.Errorf("%w: %s", ErrDisabled, p.Name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("proxy %s: %w", p.Name, err)
		}
		return &p, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrNotFound, *id)
}

// Refresh fetches the list now. Concurrent callers share one request.
func (s *Selector) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("proxies", func() (any, error) {
		proxies, err := s.lister.ListProxyServers(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh proxies: %w", err)
		}

		sort.SliceStable(proxies, func(i, j int) bool {
			return proxies[i].Name < proxies[j].Name
		})

		s.mu.Lock()
		s.proxies = proxies
		s.fetchedAt = s.clock.Now()
		s.loaded = true
		s.mu.Unlock()

		s.logger.Debug("proxy list refreshed", "count", len(proxies))
		return nil, nil
	})
	return err
}

func (s *Selector) cached() ([]model.ProxyServer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, false
	}
	if s.ttl > 0 && s.clock.Since(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	return append([]model.ProxyServer(nil), s.proxies...), true
}

func (s *Selector) snapshot() ([]model.ProxyServer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ProxyServer(nil), s.proxies...), s.loaded
}
