// Package config provides 12-factor configuration management for the relay.
//
// Configuration is loaded once from environment variables at startup and is
// read-only afterwards.
//
// Configuration Sections:
//   - Server: HTTP listen address and shutdown drain
//   - Gemini: API credential, base URL and version, optional client timeout
//   - Persona: optional persona override file
//   - Logging: Log level and output format
//   - Breaker: circuit breaker guarding stream setup
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - GEMINI_API_KEY (required), GEMINI_BASE_URL, GEMINI_API_VERSION, GEMINI_TIMEOUT
//   - PERSONA_FILE
//   - LOG_LEVEL, LOG_DEV
//   - BREAKER_ENABLED, BREAKER_THRESHOLD, BREAKER_COOLDOWN
package config
