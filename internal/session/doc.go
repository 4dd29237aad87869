// Package session drives the lifecycle of pairing one unofficial messaging
// channel: create the connection record, request a QR code, wait for the
// backend to report the scan, and clean up whatever is left behind when the
// operator gives up.
//
// The state machine is a pure function (Transition) over State and Event
// that returns the next State plus a list of Commands. Manager owns the only
// copy of State, runs Transition on a single goroutine and executes the
// commands: REST calls in goroutines that post their results back as
// events, timers on an injectable clock, presenter updates, journal writes
// and metrics.
package session
