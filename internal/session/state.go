package session

import "github.com/rickgao/channel-console/internal/model"

// Status is the local session status.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusCreating    Status = "creating"
	StatusConnecting  Status = "connecting"
	StatusAwaitingQR  Status = "awaiting_qr"
	StatusQRDisplayed Status = "qr_displayed"
	StatusConnected   Status = "connected"
	StatusError       Status = "error"

	// StatusCancelled never rests in State; a cancel collapses into idle in
	// the same transition. It only appears in the journal.
	StatusCancelled Status = "cancelled"
)

// State is the session snapshot. Manager owns the live copy; everything
// handed out is a Clone.
type State struct {
	ActiveConnectionID *int64
	Status             Status
	RemoteStatus       model.ConnectionStatus // Last backend-reported status

	QRPayload              *string
	AwaitingManualQR       bool
	QRGenerationInProgress bool
	ProxyUpdatePending     bool
	RetryCount             int

	SelectedProxyID *int64 // Operator's pick
	BoundProxyID    *int64 // Proxy stored on the active record
	ReconnectMode   bool   // Entered through ReconnectExisting

	Message   string    // Last operator-facing message
	Warning   string    // Non-fatal problem (proxy update)
	LastError ErrorKind

	// Attempt advances on every start, cancel and reconnect so results of
	// earlier requests can be recognized. Generation advances per QR request.
	Attempt    uint64
	Generation uint64
}

// NewState returns the initial idle state.
func NewState() State {
	return State{Status: StatusIdle}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.ActiveConnectionID = clonePtr(s.ActiveConnectionID)
	s.QRPayload = clonePtr(s.QRPayload)
	s.SelectedProxyID = clonePtr(s.SelectedProxyID)
	s.BoundProxyID = clonePtr(s.BoundProxyID)
	return s
}

// ActiveID returns the active connection id, or 0.
func (s State) ActiveID() int64 {
	if s.ActiveConnectionID == nil {
		return 0
	}
	return *s.ActiveConnectionID
}

// QR returns the QR payload, or "".
func (s State) QR() string {
	if s.QRPayload == nil {
		return ""
	}
	return *s.QRPayload
}

// Terminal reports whether the pairing reached connected.
func (s State) Terminal() bool {
	return s.Status == StatusConnected
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func isActive(s State, id int64) bool {
	return s.ActiveConnectionID != nil && *s.ActiveConnectionID == id
}
