// Package api provides the REST client for the channel connection backend.
//
// Endpoints (relative to the configured base URL):
//   - POST   /channel-connections                 create a pending connection
//   - GET    /channel-connections[/{id}]          list / fetch records
//   - PUT    /channel-connections/{id}/proxy      reassign proxy
//   - POST   /channel-connections/{id}/reconnect  request a fresh QR for an existing record
//   - DELETE /channel-connections/{id}            remove a record
//   - POST   /whatsapp/connect/{id}               start pairing (result arrives over the socket)
//   - POST   /whatsapp/disconnect/{id}            tear down a pairing
//   - GET    /whatsapp-proxy-servers              enumerate proxies
//
// Only GET requests are retried. Mutating requests are sent exactly once so
// that a slow backend never receives duplicate pairing requests.
package api
