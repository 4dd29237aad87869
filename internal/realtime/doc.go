// Package realtime implements the client side of the backend event socket.
//
// The Client:
//   - Dials the /ws endpoint and authenticates with the operator's user id
//   - Decodes JSON frames and hands typed messages to a single handler
//   - Reconnects at a fixed interval after abnormal closes, up to
//     MaxAttempts, then backs off for a cooldown period before resuming
//   - Ends on a normal (1000) close from the server or on Close()
//
// Filtering by connection id is left to the caller, which knows which
// pairing is active.
package realtime
