// Package database provides the optional PostgreSQL session journal.
//
// When configured, every pairing session status change is appended to the
// channel_session_events table so operators can audit abandoned and failed
// pairings after the console exits.
package database
