package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTrialInFlight is returned while half-open when every trial slot is taken.
	ErrTrialInFlight = errors.New("circuit breaker trial in flight")
)

// Verdict is how the result of a guarded call counts against the breaker.
type Verdict int

const (
	Success Verdict = iota
	Failure
	// Ignore leaves the counts untouched, e.g. for a caller that hung up.
	Ignore
)

// Classifier maps the error of a guarded call to a Verdict.
type Classifier func(err error) Verdict

// FailOnError counts every non-nil error as a failure.
func FailOnError(err error) Verdict {
	if err == nil {
		return Success
	}
	return Failure
}

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold uint32
	// Cooldown is how long the breaker stays open before admitting trial calls.
	Cooldown time.Duration
	// Trials is the number of calls admitted while half-open. All of them
	// must succeed to close the breaker.
	Trials uint32
	// Window clears the closed-state counts periodically.
	Window time.Duration
	// Classify defaults to FailOnError.
	Classify Classifier
	// OnStateChange is called with the breaker lock held; it must not call
	// back into the breaker.
	OnStateChange func(name string, from State, to State)
}

const (
	defaultThreshold = 5
	defaultCooldown  = 30 * time.Second
	defaultWindow    = time.Minute
)

// Counts holds the statistics of the current state
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	Ignored              uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker guards calls to a shared dependency. It never retries; a call
// refused by the breaker fails with ErrCircuitOpen or ErrTrialInFlight.
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	counts     Counts
	expiry     time.Time
	generation uint64
}

// New creates a circuit breaker, filling unset settings with defaults
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = defaultThreshold
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = defaultCooldown
	}
	if settings.Trials == 0 {
		settings.Trials = 1
	}
	if settings.Window <= 0 {
		settings.Window = defaultWindow
	}
	if settings.Classify == nil {
		settings.Classify = FailOnError
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		expiry:   time.Now().Add(settings.Window),
	}
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())
	return b.state
}

// Counts returns a copy of the counts of the current state
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Do runs fn if the breaker admits it and records its result. A panic in
// fn counts as a failure and is re-raised.
func Do[T any](b *Breaker, fn func() (T, error)) (result T, err error) {
	generation, err := b.admit()
	if err != nil {
		return result, err
	}

	defer func() {
		if p := recover(); p != nil {
			b.settle(generation, Failure)
			panic(p)
		}
	}()

	result, err = fn()
	b.settle(generation, b.settings.Classify(err))
	return result, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())

	switch {
	case b.state == StateOpen:
		return 0, ErrCircuitOpen
	case b.state == StateHalfOpen && b.counts.Requests >= b.settings.Trials:
		return 0, ErrTrialInFlight
	}

	b.counts.Requests++
	return b.generation, nil
}

// settle applies v to the counts if the breaker has not changed state
// since the call was admitted.
func (b *Breaker) settle(generation uint64, v Verdict) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refresh(now)
	if generation != b.generation {
		return
	}

	switch v {
	case Success:
		b.counts.Successes++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.Trials {
			b.transition(StateClosed, now)
		}

	case Failure:
		b.counts.Failures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.state == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.Threshold {
			b.transition(StateOpen, now)
		}

	case Ignore:
		b.counts.Ignored++
		// Hand the slot back so an ignored trial does not wedge half-open.
		if b.state == StateHalfOpen {
			b.counts.Requests--
		}
	}
}

// refresh applies time-driven transitions: the closed window rolling over
// and the cooldown of the open state running out.
func (b *Breaker) refresh(now time.Time) {
	switch b.state {
	case StateClosed:
		if b.expiry.Before(now) {
			b.counts = Counts{}
			b.generation++
			b.expiry = now.Add(b.settings.Window)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
}

func (b *Breaker) transition(to State, now time.Time) {
	from := b.state
	if from == to {
		return
	}

	b.state = to
	b.counts = Counts{}
	b.generation++

	switch to {
	case StateClosed:
		b.expiry = now.Add(b.settings.Window)
	case StateOpen:
		b.expiry = now.Add(b.settings.Cooldown)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
