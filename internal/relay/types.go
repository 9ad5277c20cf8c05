package relay

import (
	"context"
	"errors"

	"github.com/KetonAI/backend/internal/persona"
)

const (
	RoleUser = "user"

	// MIMETextPlain is the response format hint sent to the backend.
	MIMETextPlain = "text/plain"
)

// ErrNoMessage reports a request without a usable message.
var ErrNoMessage = errors.New("no message provided")

// ChatRequest is the inbound request body.
type ChatRequest struct {
	Message string `json:"message"`
}

// Validate rejects absent or empty messages. Whitespace is a message.
func (r ChatRequest) Validate() error {
	if r.Message == "" {
		return ErrNoMessage
	}
	return nil
}

// Part is one piece of content. Only text parts are produced.
type Part struct {
	Text string
}

// Content is one turn of the conversation.
type Content struct {
	Role  string
	Parts []Part
}

// GenerationRequest is the backend-agnostic outbound request. It is built
// once per ChatRequest and never modified afterwards.
type GenerationRequest struct {
	Model             string
	SystemInstruction string
	Temperature       float32
	ResponseMIMEType  string
	Contents          []Content
}

// Fragment is one incremental piece of generated text.
type Fragment struct {
	Text string
}

// Stream is an ordered, single-use sequence of fragments.
// Recv returns io.EOF when the backend ends the stream normally.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

// Backend opens generation streams. Implementations must be safe for
// concurrent use.
type Backend interface {
	Open(ctx context.Context, req *GenerationRequest) (Stream, error)
}

// Template is the fixed part of every GenerationRequest.
type Template struct {
	Model             string
	SystemInstruction string
	Temperature       float32
}

// NewTemplate derives a template from a persona profile.
func NewTemplate(p persona.Profile) Template {
	return Template{
		Model:             p.Model,
		SystemInstruction: p.SystemInstruction,
		Temperature:       p.Temperature,
	}
}

// Build returns a new GenerationRequest carrying message as the only user turn.
func (t Template) Build(message string) *GenerationRequest {
	return &GenerationRequest{
		Model:             t.Model,
		SystemInstruction: t.SystemInstruction,
		Temperature:       t.Temperature,
		ResponseMIMEType:  MIMETextPlain,
		Contents: []Content{
			{
				Role:  RoleUser,
				Parts: []Part{{Text: message}},
			},
		},
	}
}
