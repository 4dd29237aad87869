// Package proxy lists the proxy servers a new pairing can be routed through
// and validates the operator's pick.
package proxy
