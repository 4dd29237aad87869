// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Pairing sessions started and status transitions
//   - QR codes received and failures by kind
//   - Cleanup outcomes by step
//   - Event socket connection state, reconnect attempts and cooldowns
//   - Malformed socket frames
//
// Metrics live on a private registry so several consoles can share a
// process and tests stay isolated.
package metrics
