// Package http provides the gin handlers of the chat relay.
//
// Routes:
//   - POST /chat: stream a persona reply as text/plain
//   - GET /health: liveness check
package http
