package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/rickgao/channel-console/internal/api"
	"github.com/rickgao/channel-console/internal/model"
	"github.com/rickgao/channel-console/internal/realtime"
)

// Repository is the subset of the REST client the manager drives.
type Repository interface {
	Cleaner
	CreateConnection(ctx context.Context, req api.CreateConnectionRequest) (*model.ChannelConnection, error)
	UpdateProxy(ctx context.Context, id int64, proxyID *int64) error
	Connect(ctx context.Context, id int64) error
	Reconnect(ctx context.Context, id int64) error
	GetConnection(ctx context.Context, id int64) (*model.ChannelConnection, error)
}

// Presenter shows the QR code to the operator.
type Presenter interface {
	ShowQR(payload string)
	Close()
}

// Invalidator is notified when the set of connection records changed.
type Invalidator interface {
	Invalidate()
}

// JournalEntry is one recorded status change.
type JournalEntry struct {
	ConnectionID int64
	Attempt      uint64
	Event        string
	From         Status
	To           Status
	Message      string
	At           time.Time
}

// Journal persists status changes. Failures are logged only.
type Journal interface {
	Append(ctx context.Context, e JournalEntry) error
}

// Observer receives counters for metrics.
type Observer interface {
	SessionStarted()
	Transition(from, to Status)
	QRReceived()
	Failure(kind ErrorKind)
	Cleanup(result CleanupResult)
}

// Config configures a Manager.
type Config struct {
	AccountName    string        // Display name for created records
	QRTimeout      time.Duration // Wait for a QR code after a connect request
	AutoCloseDelay time.Duration // Delay before the presenter closes on success
	CleanupTimeout time.Duration // Bound on each cleanup run
	EventBuffer    int
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		AccountName:    "WhatsApp",
		QRTimeout:      30 * time.Second,
		AutoCloseDelay: 2 * time.Second,
		CleanupTimeout: 15 * time.Second,
		EventBuffer:    64,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock injects the clock for the QR timeout and auto-close timers.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPresenter sets the QR presenter.
func WithPresenter(p Presenter) Option {
	return func(m *Manager) {
		m.presenter = p
	}
}

// WithInvalidator sets the connection list cache to invalidate.
func WithInvalidator(inv Invalidator) Option {
	return func(m *Manager) {
		m.invalidator = inv
	}
}

// WithJournal sets the transition journal.
func WithJournal(j Journal) Option {
	return func(m *Manager) {
		m.journal = j
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// timeoutFired is posted by the QR timer and verified against the
// controller before it reaches Transition.
type timeoutFired struct{ token uint64 }

func (timeoutFired) eventName() string { return "qr_timer" }

// Manager is the session driver. Public methods never block on the network
// and never fail; callers observe results through State and Subscribe.
type Manager struct {
	cfg         Config
	repo        Repository
	clock       clockwork.Clock
	logger      *slog.Logger
	presenter   Presenter
	invalidator Invalidator
	journal     Journal
	observer    Observer

	timeout   *QRTimer
	autoClose clockwork.Timer // Event loop only

	events    chan Event
	journalCh chan JournalEntry
	stopped   chan struct{}
	running   atomic.Bool
	cooldown  atomic.Bool

	// Set once by Run before the loop starts
	ctx context.Context
	wg  sync.WaitGroup

	mu    sync.RWMutex
	state State

	subsMu sync.Mutex
	subs   map[chan State]struct{}
}

// NewManager creates a session manager in the idle state.
func NewManager(cfg Config, repo Repository, opts ...Option) *Manager {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = 15 * time.Second
	}

	m := &Manager{
		cfg:       cfg,
		repo:      repo,
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		events:    make(chan Event, cfg.EventBuffer),
		journalCh: make(chan JournalEntry, 256),
		stopped:   make(chan struct{}),
		state:     NewState(),
		subs:      make(map[chan State]struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.timeout = NewQRTimer(m.clock, cfg.QRTimeout)
	return m
}

// Start begins pairing. A nil proxyID uses the selected proxy.
func (m *Manager) Start(proxyID *int64) {
	m.post(StartRequested{ProxyID: clonePtr(proxyID)})
}

// SelectProxy records the operator's proxy choice. nil means direct.
func (m *Manager) SelectProxy(proxyID *int64) {
	m.post(ProxySelected{ProxyID: clonePtr(proxyID)})
}

// GenerateQR requests a new QR code. manual marks an operator retry.
func (m *Manager) GenerateQR(manual bool) {
	m.post(GenerateQRRequested{Manual: manual})
}

// Cancel abandons the session and cleans up the pending record in the
// background.
func (m *Manager) Cancel() {
	m.post(CancelRequested{})
}

// ReconnectExisting loads an existing record so it can be paired again.
func (m *Manager) ReconnectExisting(id int64) {
	m.post(ReconnectRequested{ConnectionID: id})
}

// HandleMessage feeds a realtime message into the session. It is meant to be
// registered with realtime.Client.OnMessage.
func (m *Manager) HandleMessage(msg realtime.Message) {
	switch msg.Type {
	case realtime.TypeQRCode:
		m.post(QRReceived{ConnectionID: msg.ConnectionID, QRCode: msg.QRCode})
	case realtime.TypeConnectionStatus:
		m.post(StatusChanged{ConnectionID: msg.ConnectionID, Status: model.ConnectionStatus(msg.Status)})
	case realtime.TypeConnectionError:
		m.post(ConnectionErrored{ConnectionID: msg.ConnectionID, Message: msg.Error})
	}
}

// HandleSocketState surfaces realtime cooldowns. It is meant to be
// registered with realtime.Client.OnStateChange.
func (m *Manager) HandleSocketState(st realtime.SocketState) {
	if m.cooldown.CompareAndSwap(!st.CooldownActive, st.CooldownActive) {
		m.post(SocketCooldown{Active: st.CooldownActive})
	}
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Subscribe returns a channel receiving a snapshot after every transition,
// and a function to unsubscribe. A slow subscriber only sees the latest
// snapshot.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 16)

	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	m.subsMu.Unlock()

	return ch, func() {
		m.subsMu.Lock()
		delete(m.subs, ch)
		m.subsMu.Unlock()
	}
}

// Run processes events until ctx is cancelled. Pending events are applied,
// timers disarmed, and in-flight cleanups and journal writes awaited before
// it returns.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return nil
	}
	m.ctx = ctx

	if m.journal != nil {
		m.wg.Add(1)
		go m.journalLoop()
	}

	m.logger.Debug("session manager started")

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case ev := <-m.events:
			m.apply(ev)
		}
	}
}

func (m *Manager) shutdown() {
	for drained := false; !drained; {
		select {
		case ev := <-m.events:
			m.apply(ev)
		default:
			drained = true
		}
	}

	m.timeout.Disarm()
	if m.autoClose != nil {
		m.autoClose.Stop()
	}

	close(m.journalCh)
	close(m.stopped)
	m.wg.Wait()

	m.logger.Debug("session manager stopped")
}

// post enqueues an event. After shutdown events are dropped.
func (m *Manager) post(ev Event) {
	select {
	case <-m.stopped:
		return
	default:
	}

	select {
	case m.events <- ev:
	case <-m.stopped:
	}
}

func (m *Manager) apply(ev Event) {
	if f, ok := ev.(timeoutFired); ok {
		if !m.timeout.Fired(f.token) {
			m.logger.Debug("discarding stale qr timeout", "token", f.token)
			return
		}
		ev = QRTimedOut{}
	}

	prev := m.state
	next, cmds := Transition(prev, ev)

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	m.record(prev, next, ev)

	for _, cmd := range cmds {
		m.execute(cmd)
	}

	// Subscribers see a state whose effects have already been issued
	m.publish(next)
}

// record journals and counts status changes.
func (m *Manager) record(prev, next State, ev Event) {
	if _, ok := ev.(StartRequested); ok && next.Attempt != prev.Attempt && m.observer != nil {
		m.observer.SessionStarted()
	}

	id := next.ActiveID()
	if id == 0 {
		id = prev.ActiveID()
	}

	if _, ok := ev.(CancelRequested); ok {
		m.journalEntry(id, next.Attempt, ev, prev.Status, StatusCancelled, next.Message)
		m.journalEntry(id, next.Attempt, ev, StatusCancelled, next.Status, next.Message)
		m.transitioned(prev.Status, next.Status)
		return
	}

	if prev.Status == next.Status {
		return
	}

	m.journalEntry(id, next.Attempt, ev, prev.Status, next.Status, next.Message)
	m.transitioned(prev.Status, next.Status)

	m.logger.Info("session transition",
		"connection_id", id,
		"from", prev.Status,
		"to", next.Status,
		"event", EventName(ev),
	)
}

func (m *Manager) transitioned(from, to Status) {
	if m.observer != nil && from != to {
		m.observer.Transition(from, to)
	}
}

func (m *Manager) journalEntry(id int64, attempt uint64, ev Event, from, to Status, msg string) {
	if m.journal == nil {
		return
	}

	e := JournalEntry{
		ConnectionID: id,
		Attempt:      attempt,
		Event:        EventName(ev),
		From:         from,
		To:           to,
		Message:      msg,
		At:           m.clock.Now(),
	}

	select {
	case m.journalCh <- e:
	default:
		m.logger.Warn("journal buffer full, dropping entry", "event", e.Event)
	}
}

func (m *Manager) journalLoop() {
	defer m.wg.Done()

	for e := range m.journalCh {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), 5*time.Second)
		if err := m.journal.Append(ctx, e); err != nil {
			m.logger.Warn("journal append failed", "error", err, "event", e.Event)
		}
		cancel()
	}
}

func (m *Manager) publish(s State) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for ch := range m.subs {
		snap := s.Clone()
		select {
		case ch <- snap:
		default:
			// Replace the oldest snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (m *Manager) execute(cmd Command) {
	switch c := cmd.(type) {
	case CreateConnection:
		m.goRequest(func(ctx context.Context) Event {
			conn, err := m.repo.CreateConnection(ctx, api.CreateConnectionRequest{
				ChannelType:   string(model.ChannelWhatsAppUnofficial),
				AccountID:     "whatsapp_" + uuid.NewString(),
				AccountName:   m.cfg.AccountName,
				ProxyServerID: c.ProxyID,
			})
			return ConnectionCreated{Attempt: c.Attempt, Connection: conn, Err: err}
		})

	case UpdateProxy:
		m.goRequest(func(ctx context.Context) Event {
			err := m.repo.UpdateProxy(ctx, c.ConnectionID, c.ProxyID)
			return ProxyUpdated{Attempt: c.Attempt, ProxyID: c.ProxyID, Err: err}
		})

	case RequestConnect:
		m.goRequest(func(ctx context.Context) Event {
			var err error
			if c.Reconnect {
				err = m.repo.Reconnect(ctx, c.ConnectionID)
			} else {
				err = m.repo.Connect(ctx, c.ConnectionID)
			}
			return ConnectResult{Attempt: c.Attempt, Generation: c.Generation, Err: err}
		})

	case LoadConnection:
		m.goRequest(func(ctx context.Context) Event {
			conn, err := m.repo.GetConnection(ctx, c.ConnectionID)
			return ConnectionLoaded{Attempt: c.Attempt, Connection: conn, Err: err}
		})

	case Cleanup:
		m.wg.Add(1)
		go m.cleanup(c.ConnectionID, c.DisconnectOnly)

	case ArmTimeout:
		m.timeout.Arm(func(token uint64) {
			m.post(timeoutFired{token: token})
		})

	case DisarmTimeout:
		m.timeout.Disarm()

	case ShowQR:
		if m.observer != nil {
			m.observer.QRReceived()
		}
		if m.presenter != nil {
			m.presenter.ShowQR(c.Payload)
		}

	case ScheduleAutoClose:
		if m.autoClose != nil {
			m.autoClose.Stop()
		}
		m.autoClose = m.clock.AfterFunc(m.cfg.AutoCloseDelay, func() {
			m.post(AutoCloseElapsed{Attempt: c.Attempt})
		})

	case ClosePresenter:
		if m.presenter != nil {
			m.presenter.Close()
		}

	case InvalidateConnections:
		if m.invalidator != nil {
			m.invalidator.Invalidate()
		}

	case Report:
		m.logger.Warn("session failure",
			"kind", c.Err.Kind,
			"connection_id", c.Err.ConnectionID,
			"error", c.Err.Err,
		)
		if m.observer != nil {
			m.observer.Failure(c.Err.Kind)
		}
	}
}

// goRequest runs a REST call off the loop and posts its result.
func (m *Manager) goRequest(call func(ctx context.Context) Event) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.post(call(m.ctx))
	}()
}

// cleanup runs detached from the loop context so that a shutdown right
// after Cancel still removes the record.
func (m *Manager) cleanup(id int64, disconnectOnly bool) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), m.cfg.CleanupTimeout)
	defer cancel()

	var res CleanupResult
	if disconnectOnly {
		res = RunDisconnect(ctx, m.repo, id)
	} else {
		res = RunCleanup(ctx, m.repo, id)
	}
	switch {
	case res.Kept && res.Disconnected:
		m.logger.Info("disconnected existing connection", "connection_id", id)
	case res.Deleted:
		m.logger.Info("removed abandoned connection", "connection_id", id)
	case res.Disconnected:
		m.logger.Warn("delete failed, disconnected instead",
			"connection_id", id,
			"error", res.DeleteErr,
		)
	default:
		m.logger.Error("cleanup failed", "connection_id", id, "error", res.Err())
	}

	if m.observer != nil {
		m.observer.Cleanup(res)
	}
	if res.OK() && m.invalidator != nil {
		m.invalidator.Invalidate()
	}
}
