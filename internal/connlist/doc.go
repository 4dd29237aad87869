// Package connlist caches the operator's channel connection records.
//
// The session manager invalidates the cache whenever it creates, pairs or
// removes a record; the poller refreshes it periodically. Concurrent
// refreshes collapse into one backend request.
package connlist
