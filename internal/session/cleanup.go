package session

import (
	"context"
	"errors"
)

// Cleaner removes backend state for an abandoned connection.
type Cleaner interface {
	DeleteConnection(ctx context.Context, id int64) error
	Disconnect(ctx context.Context, id int64) error
}

// CleanupResult records both steps of a cleanup.
type CleanupResult struct {
	ConnectionID  int64
	Deleted       bool
	DeleteErr     error
	Disconnected  bool  // Only attempted when the delete failed
	DisconnectErr error
	Kept          bool  // The record predates the session and was only disconnected
}

// OK reports whether either step succeeded.
func (r CleanupResult) OK() bool {
	return r.Deleted || r.Disconnected
}

// Err returns a CleanupFailure error if both steps failed.
func (r CleanupResult) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{
		Kind:         CleanupFailure,
		ConnectionID: r.ConnectionID,
		Err:          errors.Join(r.DeleteErr, r.DisconnectErr),
	}
}

// Step names the step that finished the cleanup: "delete", "disconnect" or
// "failed".
func (r CleanupResult) Step() string {
	switch {
	case r.Deleted:
		return "delete"
	case r.Disconnected:
		return "disconnect"
	default:
		return "failed"
	}
}

// RunCleanup deletes the record and falls back to a disconnect when the
// delete fails. Each step is attempted exactly once.
func RunCleanup(ctx context.Context, c Cleaner, id int64) CleanupResult {
	res := CleanupResult{ConnectionID: id}

	if err := c.DeleteConnection(ctx, id); err != nil {
		res.DeleteErr = err
	} else {
		res.Deleted = true
		return res
	}

	if err := c.Disconnect(ctx, id); err != nil {
		res.DisconnectErr = err
	} else {
		res.Disconnected = true
	}
	return res
}

// RunDisconnect disconnects a record the session did not create. The record
// itself is never deleted.
func RunDisconnect(ctx context.Context, c Cleaner, id int64) CleanupResult {
	res := CleanupResult{ConnectionID: id, Kept: true}
	if err := c.Disconnect(ctx, id); err != nil {
		res.DisconnectErr = err
	} else {
		res.Disconnected = true
	}
	return res
}
