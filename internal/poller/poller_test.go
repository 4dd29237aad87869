package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockSource counts refreshes and optionally fails.
type mockSource struct {
	name     string
	err      error
	calls    atomic.Int32
	inFlight *atomic.Int32
	maxSeen  *atomic.Int32
	delay    time.Duration
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Refresh(ctx context.Context) error {
	m.calls.Add(1)

	if m.inFlight != nil {
		n := m.inFlight.Add(1)
		defer m.inFlight.Add(-1)
		for {
			seen := m.maxSeen.Load()
			if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func TestPoller_PollAll(t *testing.T) {
	ok := &mockSource{name: "connections"}
	failing := &mockSource{name: "proxies", err: errors.New("backend down")}

	cfg := Config{
		Interval:    time.Hour, // Long interval, we'll trigger manually.
		Concurrency: 2,
		Timeout:     5 * time.Second,
	}

	p := New(cfg, []Source{ok, failing}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.ctx = ctx

	p.pollAll()

	if got := ok.calls.Load(); got != 1 {
		t.Errorf("ok calls = %d, want 1", got)
	}
	if got := failing.calls.Load(); got != 1 {
		t.Errorf("failing calls = %d, want 1", got)
	}
}

func TestPoller_BoundedConcurrency(t *testing.T) {
	var inFlight, maxSeen atomic.Int32

	var sources []Source
	for i := 0; i < 6; i++ {
		sources = append(sources, &mockSource{
			name:     "src",
			inFlight: &inFlight,
			maxSeen:  &maxSeen,
			delay:    20 * time.Millisecond,
		})
	}

	p := New(Config{Interval: time.Hour, Concurrency: 2, Timeout: time.Second}, sources, nil)
	p.ctx = context.Background()
	p.pollAll()

	if got := maxSeen.Load(); got > 2 {
		t.Errorf("max in flight = %d, want <= 2", got)
	}
}

func TestPoller_Timeout(t *testing.T) {
	slow := &mockSource{name: "slow", delay: time.Second}

	p := New(Config{Interval: time.Hour, Concurrency: 1, Timeout: 10 * time.Millisecond}, []Source{slow}, nil)
	p.ctx = context.Background()

	if err := p.pollSource(slow); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestPoller_StartStop(t *testing.T) {
	src := &mockSource{name: "connections"}

	cfg := Config{
		Interval:    50 * time.Millisecond,
		Concurrency: 1,
		Timeout:     time.Second,
	}

	p := New(cfg, []Source{src}, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Immediate pass plus at least one tick.
	time.Sleep(120 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := src.calls.Load(); got < 2 {
		t.Errorf("calls = %d, want >= 2", got)
	}

	// No refreshes after stop.
	after := src.calls.Load()
	time.Sleep(100 * time.Millisecond)
	if got := src.calls.Load(); got != after {
		t.Errorf("calls after stop = %d, want %d", got, after)
	}
}
