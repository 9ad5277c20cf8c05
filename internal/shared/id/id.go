// Package id provides centralized ID generation for the relay.
//
// IDs are ULIDs prefixed with their kind:
//   - Lexicographic sortability: traces sort by start time in log search
//   - Prefixed types: trace_*, span_*, req_* are readable in logs
//   - Type safety: separate types prevent mixing trace and span IDs
package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TraceID identifies an entire request flow, inbound and outbound
type TraceID string

// SpanID identifies one operation within a trace
type SpanID string

// RequestID identifies a single HTTP request to the relay
type RequestID string

const (
	TracePrefix   = "trace"
	SpanPrefix    = "span"
	RequestPrefix = "req"

	separator = "_"
)

// Generator generates prefixed ULIDs. IDs from one generator are strictly
// increasing, even within the same millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return prefix + separator + g.Generate().String()
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// ParseRequestID accepts s only if it has the form req_<ULID>, as
// produced by NewRequestID.
func ParseRequestID(s string) (RequestID, bool) {
	rest, ok := strings.CutPrefix(s, RequestPrefix+separator)
	if !ok {
		return "", false
	}
	if _, err := ulid.ParseStrict(rest); err != nil {
		return "", false
	}
	return RequestID(s), true
}

func (id TraceID) String() string   { return string(id) }
func (id SpanID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }
