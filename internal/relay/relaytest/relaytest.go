// Package relaytest provides in-memory backends and sinks for relay tests.
package relaytest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/KetonAI/backend/internal/relay"
)

// ErrBackend is the default failure returned by scripted backends.
var ErrBackend = errors.New("scripted backend failure")

// Backend is a scripted relay.Backend.
//
// Every opened stream yields Fragments in order. When Err is set the stream
// returns it after FailAfter fragments instead of continuing. When Hold is
// set the stream blocks after the last fragment until the context passed to
// Open is cancelled.
type Backend struct {
	Fragments []string
	OpenErr   error
	Err       error
	FailAfter int
	Hold      bool

	mu      sync.Mutex
	calls   int
	closed  int
	last    *relay.GenerationRequest
	lastCtx context.Context
}

// Reply returns a backend that streams fragments and ends normally.
func Reply(fragments ...string) *Backend {
	return &Backend{Fragments: fragments}
}

// FailOpen returns a backend whose Open always fails with err.
func FailOpen(err error) *Backend {
	return &Backend{OpenErr: err}
}

// FailAfter returns a backend that streams fragments and then fails.
func FailAfter(err error, fragments ...string) *Backend {
	return &Backend{Fragments: fragments, Err: err, FailAfter: len(fragments)}
}

// Open implements relay.Backend.
func (b *Backend) Open(ctx context.Context, req *relay.GenerationRequest) (relay.Stream, error) {
	b.mu.Lock()
	b.calls++
	b.last = req
	b.lastCtx = ctx
	b.mu.Unlock()

	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &stream{backend: b, ctx: ctx}, nil
}

// Calls returns how many times Open was invoked.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Closed returns how many opened streams were closed.
func (b *Backend) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// LastRequest returns the request passed to the most recent Open.
func (b *Backend) LastRequest() *relay.GenerationRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// LastContext returns the context passed to the most recent Open.
func (b *Backend) LastContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCtx
}

type stream struct {
	backend *Backend
	ctx     context.Context
	sent    int
}

func (s *stream) Recv() (relay.Fragment, error) {
	b := s.backend
	if b.Err != nil && s.sent == b.FailAfter {
		return relay.Fragment{}, b.Err
	}
	if s.sent < len(b.Fragments) {
		text := b.Fragments[s.sent]
		s.sent++
		return relay.Fragment{Text: text}, nil
	}
	if b.Hold {
		<-s.ctx.Done()
		return relay.Fragment{}, s.ctx.Err()
	}
	return relay.Fragment{}, io.EOF
}

func (s *stream) Close() error {
	s.backend.mu.Lock()
	s.backend.closed++
	s.backend.mu.Unlock()
	return nil
}

// MockBackend is a testify mock of relay.Backend.
type MockBackend struct {
	mock.Mock
}

// Open mocks the Open method.
func (m *MockBackend) Open(ctx context.Context, req *relay.GenerationRequest) (relay.Stream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(relay.Stream), args.Error(1)
}

// Sink records everything a relay writes.
type Sink struct {
	// WriteErr, when set, fails every Write.
	WriteErr error

	Prepared bool
	Flushes  int
	Writes   []string

	buf bytes.Buffer
}

// Prepare implements relay.Sink.
func (s *Sink) Prepare() {
	s.Prepared = true
}

// Write implements relay.Sink.
func (s *Sink) Write(p []byte) (int, error) {
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	s.Writes = append(s.Writes, string(p))
	return s.buf.Write(p)
}

// Flush implements relay.Sink.
func (s *Sink) Flush() {
	s.Flushes++
}

// String returns the concatenated body.
func (s *Sink) String() string {
	return s.buf.String()
}
