// Package health serves the console's local HTTP endpoints: a JSON health
// report, Prometheus metrics and the current QR code as a PNG.
package health
