package session

import "fmt"

// ErrorKind classifies a failure surfaced to the operator.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	CreationFailure        ErrorKind = "creation_failure"
	ProxyUpdateFailure     ErrorKind = "proxy_update_failure"
	ConnectRequestFailure  ErrorKind = "connect_request_failure"
	QRTimeout              ErrorKind = "qr_timeout"
	BackendConnectionError ErrorKind = "backend_connection_error"
	SocketDisconnected     ErrorKind = "socket_disconnected"
	CleanupFailure         ErrorKind = "cleanup_failure"
	LookupFailure          ErrorKind = "lookup_failure"
)

// Error is a session failure tied to a connection.
type Error struct {
	Kind         ErrorKind
	ConnectionID int64 // 0 when no record exists yet
	Err          error
}

func (e *Error) Error() string {
	if e.ConnectionID != 0 {
		return fmt.Sprintf("%s (connection %d): %v", e.Kind, e.ConnectionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
