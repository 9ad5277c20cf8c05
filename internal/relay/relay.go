package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KetonAI/backend/internal/infrastructure/resilience"
)

// ErrSinkClosed wraps write failures on the inbound response.
var ErrSinkClosed = errors.New("response sink closed")

// Sink is the inbound response channel.
type Sink interface {
	// Prepare is called once after the backend accepted the request and
	// before the first fragment is written. No bytes may be sent by it.
	Prepare()
	Write(p []byte) (int, error)
	Flush()
}

// Relay bridges one inbound request to one backend stream. A Relay is
// immutable and shared by all concurrent requests.
type Relay struct {
	backend  Backend
	template Template
	breaker  *resilience.Breaker
}

// Option configures a Relay.
type Option func(*Relay)

// WithBreaker guards stream setup with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(r *Relay) {
		r.breaker = b
	}
}

// New creates a relay over backend using tmpl for every request.
func New(backend Backend, tmpl Template, opts ...Option) *Relay {
	r := &Relay{
		backend:  backend,
		template: tmpl,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Template returns the fixed request template.
func (r *Relay) Template() Template {
	return r.template
}

// Serve validates req, opens a backend stream and copies every non-empty
// fragment to sink in arrival order, flushing after each one. It never
// retries. Cancelling ctx aborts the outbound call.
func (r *Relay) Serve(ctx context.Context, req ChatRequest, sink Sink) (out Outcome) {
	start := time.Now()
	state := StateReceived
	defer func() {
		out.Duration = time.Since(start)
	}()

	fail := func(err error) Outcome {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		out.State = StateFailed
		out.FailedIn = state
		out.Err = err
		return out
	}

	if err := req.Validate(); err != nil {
		return fail(err)
	}
	state = StateValidated

	genReq := r.template.Build(req.Message)

	openStart := time.Now()
	stream, err := r.open(ctx, genReq)
	out.OpenDuration = time.Since(openStart)
	state = StateBackendCalled
	if err != nil {
		return fail(fmt.Errorf("open stream: %w", err))
	}
	defer stream.Close()

	sink.Prepare()
	state = StateStreaming

	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			out.State = StateCompleted
			return out
		}
		if err != nil {
			return fail(fmt.Errorf("receive fragment %d: %w", out.Fragments+1, err))
		}
		if frag.Text == "" {
			continue
		}

		n, err := io.WriteString(sink, frag.Text)
		out.Bytes += int64(n)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrSinkClosed, err))
		}
		out.Fragments++
		sink.Flush()
	}
}

func (r *Relay) open(ctx context.Context, req *GenerationRequest) (Stream, error) {
	if r.breaker == nil {
		return r.backend.Open(ctx, req)
	}

	return resilience.Do(r.breaker, func() (Stream, error) {
		return r.backend.Open(ctx, req)
	})
}
