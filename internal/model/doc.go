// Package model defines shared data types used across the channel console.
//
// Records mirror what the connection backend stores; the session manager
// treats them as read-only snapshots and never mutates them locally.
//
// Conventions:
//   - IDs: int64, assigned by the backend
//   - Nullable references: pointers (nil = unset)
//   - Timestamps: time.Time in UTC
package model
