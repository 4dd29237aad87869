package session

// Command is an effect requested by Transition and executed by Manager.
type Command interface {
	isCommand()
}

type (
	// CreateConnection creates the pending record. The driver generates
	// the account id.
	CreateConnection struct {
		Attempt uint64
		ProxyID *int64
	}

	UpdateProxy struct {
		Attempt      uint64
		ConnectionID int64
		ProxyID      *int64
	}

	// RequestConnect asks the backend for a QR code. Reconnect selects the
	// reconnect endpoint for records entered through ReconnectExisting.
	RequestConnect struct {
		Attempt      uint64
		Generation   uint64
		ConnectionID int64
		Reconnect    bool
	}

	LoadConnection struct {
		Attempt      uint64
		ConnectionID int64
	}

	// Cleanup removes an abandoned record: delete, falling back to
	// disconnect. DisconnectOnly leaves a pre-existing record in place.
	Cleanup struct {
		ConnectionID   int64
		DisconnectOnly bool
	}

	ArmTimeout    struct{}
	DisarmTimeout struct{}

	ShowQR            struct{ Payload string }
	ScheduleAutoClose struct{ Attempt uint64 }
	ClosePresenter    struct{}

	InvalidateConnections struct{}

	// Report logs and counts a failure. It does not change state.
	Report struct{ Err *Error }
)

func (CreateConnection) isCommand()      {}
func (UpdateProxy) isCommand()           {}
func (RequestConnect) isCommand()        {}
func (LoadConnection) isCommand()        {}
func (Cleanup) isCommand()               {}
func (ArmTimeout) isCommand()            {}
func (DisarmTimeout) isCommand()         {}
func (ShowQR) isCommand()                {}
func (ScheduleAutoClose) isCommand()     {}
func (ClosePresenter) isCommand()        {}
func (InvalidateConnections) isCommand() {}
func (Report) isCommand()                {}
