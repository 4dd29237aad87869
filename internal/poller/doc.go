// Package poller implements the background refresher.
//
// The Poller:
//   - Refreshes each registered Source on a fixed interval
//   - Runs one pass immediately on start
//   - Bounds concurrent refreshes with a semaphore
//   - Applies a per-source timeout and logs failures without stopping
package poller
