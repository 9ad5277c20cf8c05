// Package gemini implements relay.Backend on the Gemini API through the
// google.golang.org/genai SDK.
//
// Open calls Models.GenerateContentStream and pulls the first response
// before returning, so an upstream refusal surfaces from Open as an
// *APIError rather than from the first Recv. Verdict tells the circuit
// breaker which of those refusals reflect on the service.
package gemini
