// Package server assembles the relay: persona, backend, circuit breaker,
// metrics, tracing and the gin router, served by a net/http server with
// graceful shutdown.
package server
