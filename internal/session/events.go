package session

import "github.com/rickgao/channel-console/internal/model"

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// Operator intents.
type (
	// StartRequested begins pairing. ProxyID overrides the selected proxy
	// when non-nil.
	StartRequested struct{ ProxyID *int64 }

	// ProxySelected records the operator's proxy pick.
	ProxySelected struct{ ProxyID *int64 }

	// GenerateQRRequested asks for a (new) QR code.
	GenerateQRRequested struct{ Manual bool }

	// CancelRequested abandons the session.
	CancelRequested struct{}

	// ReconnectRequested re-enters the flow for an existing record.
	ReconnectRequested struct{ ConnectionID int64 }
)

// REST results. Attempt echoes the State.Attempt the request was issued in.
type (
	ConnectionCreated struct {
		Attempt    uint64
		Connection *model.ChannelConnection
		Err        error
	}

	ProxyUpdated struct {
		Attempt uint64
		ProxyID *int64
		Err     error
	}

	ConnectResult struct {
		Attempt    uint64
		Generation uint64
		Err        error
	}

	ConnectionLoaded struct {
		Attempt    uint64
		Connection *model.ChannelConnection
		Err        error
	}
)

// Socket events.
type (
	QRReceived struct {
		ConnectionID int64
		QRCode       string
	}

	StatusChanged struct {
		ConnectionID int64
		Status       model.ConnectionStatus
	}

	ConnectionErrored struct {
		ConnectionID int64
		Message      string
	}

	SocketCooldown struct{ Active bool }
)

// Timers.
type (
	// QRTimedOut is delivered only after the timeout controller confirmed
	// the fire belongs to the currently armed timer.
	QRTimedOut struct{}

	AutoCloseElapsed struct{ Attempt uint64 }
)

func (StartRequested) eventName() string      { return "start" }
func (ProxySelected) eventName() string       { return "select_proxy" }
func (GenerateQRRequested) eventName() string { return "generate_qr" }
func (CancelRequested) eventName() string     { return "cancel" }
func (ReconnectRequested) eventName() string  { return "reconnect" }
func (ConnectionCreated) eventName() string   { return "connection_created" }
func (ProxyUpdated) eventName() string        { return "proxy_updated" }
func (ConnectResult) eventName() string       { return "connect_result" }
func (ConnectionLoaded) eventName() string    { return "connection_loaded" }
func (QRReceived) eventName() string          { return "qr_received" }
func (StatusChanged) eventName() string       { return "status_changed" }
func (ConnectionErrored) eventName() string   { return "connection_error" }
func (SocketCooldown) eventName() string      { return "socket_cooldown" }
func (QRTimedOut) eventName() string          { return "qr_timeout" }
func (AutoCloseElapsed) eventName() string    { return "auto_close" }

// EventName returns the journal name of an event.
func EventName(ev Event) string {
	return ev.eventName()
}
