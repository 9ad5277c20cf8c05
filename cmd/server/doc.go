// Package main is the entry point for the KetonAI chat relay.
//
// The server accepts POST /chat with {"message": "..."} and streams the
// Gemini reply back as plain text, using a fixed keto-coach persona.
//
// Configuration:
//   - Environment variables (GEMINI_API_KEY is required)
//   - CLI flags (override env vars)
//
// Usage:
//
//	GEMINI_API_KEY=... ./server
//
//	# Development mode (colored logs)
//	GEMINI_API_KEY=... ./server -dev -port 8080
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, in-flight replies drain for
//     SHUTDOWN_TIMEOUT
package main
