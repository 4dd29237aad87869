package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Source is something that can be refreshed from the backend.
type Source interface {
	Name() string
	Refresh(ctx context.Context) error
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Refresh interval (default: 1m)
	Concurrency int           // Max concurrent refreshes (default: 4)
	Timeout     time.Duration // Per-source timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Minute,
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// Poller periodically refreshes its sources.
type Poller struct {
	cfg     Config
	sources []Source
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, sources []Source, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Poller{
		cfg:     cfg,
		sources: sources,
		logger:  logger,
	}
}

// Start begins the refresh loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("refresher started",
		"interval", p.cfg.Interval,
		"sources", len(p.sources),
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main refresh loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Refresh immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll refreshes every source concurrently.
func (p *Poller) pollAll() {
	if len(p.sources) == 0 {
		p.logger.Debug("no sources to refresh")
		return
	}

	start := time.Now()

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var refreshed, errors atomic.Int64

	for _, src := range p.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			if err := p.pollSource(src); err != nil {
				p.logger.Warn("failed to refresh source",
					"source", src.Name(),
					"err", err,
				)
				errors.Add(1)
				return
			}

			refreshed.Add(1)
		}(src)
	}

	wg.Wait()

	p.logger.Debug("refresh cycle complete",
		"sources", len(p.sources),
		"refreshed", refreshed.Load(),
		"errors", errors.Load(),
		"duration", time.Since(start),
	)
}

// pollSource refreshes a single source under the per-source timeout.
func (p *Poller) pollSource(src Source) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	return src.Refresh(ctx)
}
