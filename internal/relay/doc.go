/*
Package relay implements the chat relay: one inbound message in, one
backend generation stream out, fragments copied to the caller in order.

# Lifecycle

Every request moves through

	Received → Validated → BackendCalled → Streaming → Completed

and may fail from any non-terminal state. Serve reports the terminal state
as an Outcome; the transport decides what the caller sees:

  - rejected: nothing was sent to the backend (400)
  - backend_error: the backend failed before any byte was written (500)
  - truncated: the backend failed after bytes were written; the status is
    already committed so the connection is aborted
  - client_gone: the caller disconnected; the outbound call is cancelled

# Usage

	r := relay.New(backend, relay.NewTemplate(persona.Default()))
	out := r.Serve(ctx, relay.ChatRequest{Message: "hi"}, sink)
*/
package relay
