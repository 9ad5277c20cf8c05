package relay

import (
	"context"
	"errors"
	"time"
)

// State is the lifecycle position of a single relayed request.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateBackendCalled
	StateStreaming
	StateCompleted
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateBackendCalled:
		return "backend_called"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Kind classifies a finished relay for callers that map it to a transport.
type Kind string

const (
	KindCompleted    Kind = "completed"
	KindRejected     Kind = "rejected"
	KindBackendError Kind = "backend_error"
	KindTruncated    Kind = "truncated"
	KindClientGone   Kind = "client_gone"
)

// Outcome describes how a relay ended.
type Outcome struct {
	State State
	// FailedIn is the last state reached before failing.
	FailedIn     State
	Err          error
	Fragments    int
	Bytes        int64
	OpenDuration time.Duration
	Duration     time.Duration
}

// Committed reports whether any response byte reached the sink. Once true,
// the status line can no longer change.
func (o Outcome) Committed() bool {
	return o.Bytes > 0
}

// Kind classifies the outcome.
func (o Outcome) Kind() Kind {
	switch {
	case o.State == StateCompleted:
		return KindCompleted
	case errors.Is(o.Err, ErrNoMessage):
		return KindRejected
	case errors.Is(o.Err, context.Canceled), errors.Is(o.Err, ErrSinkClosed):
		return KindClientGone
	case o.Committed():
		return KindTruncated
	default:
		return KindBackendError
	}
}
