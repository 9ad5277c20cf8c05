package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUpstream = errors.New("upstream refused")
	errCaller   = errors.New("request refused")
)

// classify treats errCaller as proof the dependency is up and ignores
// cancellations.
func classify(err error) Verdict {
	switch {
	case err == nil, errors.Is(err, errCaller):
		return Success
	case errors.Is(err, context.Canceled):
		return Ignore
	}
	return Failure
}

func call(b *Breaker, err error) error {
	_, got := Do(b, func() (string, error) {
		if err != nil {
			return "", err
		}
		return "ok", nil
	})
	return got
}

func callN(b *Breaker, n int, err error) {
	for i := 0; i < n; i++ {
		_ = call(b, err)
	}
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		results       []error
		expectedState State
	}{
		{name: "stays closed on successes", results: []error{nil, nil, nil}, expectedState: StateClosed},
		{name: "success resets the failure run", results: []error{errUpstream, errUpstream, nil, errUpstream}, expectedState: StateClosed},
		{name: "opens at threshold", results: []error{errUpstream, errUpstream, errUpstream}, expectedState: StateOpen},
		{name: "caller errors never open", results: []error{errCaller, errCaller, errCaller, errCaller}, expectedState: StateClosed},
		{name: "ignored errors do not break the run", results: []error{errUpstream, context.Canceled, errUpstream, errUpstream}, expectedState: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", Settings{
				Threshold: 3,
				Cooldown:  time.Minute,
				Classify:  classify,
			})

			for _, err := range tt.results {
				_ = call(breaker, err)
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{Cooldown: time.Minute, Classify: classify})

	require.NoError(t, call(breaker, nil))
	callN(breaker, 1, errUpstream)
	callN(breaker, 2, context.Canceled)

	counts := breaker.Counts()
	assert.Equal(t, uint32(4), counts.Requests)
	assert.Equal(t, uint32(1), counts.Successes)
	assert.Equal(t, uint32(1), counts.Failures)
	assert.Equal(t, uint32(2), counts.Ignored)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerDefaultsCountEveryError(t *testing.T) {
	breaker := New("test", Settings{})

	callN(breaker, defaultThreshold-1, errCaller)
	assert.Equal(t, StateClosed, breaker.State())

	callN(breaker, 1, context.Canceled)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerOpenFailsFast(t *testing.T) {
	breaker := New("gemini", Settings{Threshold: 2, Cooldown: time.Minute})
	callN(breaker, 2, errUpstream)
	require.Equal(t, StateOpen, breaker.State())

	called := false
	_, err := Do(breaker, func() (string, error) {
		called = true
		return "ok", nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not reach the dependency")
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	breaker := New("gemini", Settings{
		Threshold: 2,
		Cooldown:  50 * time.Millisecond,
		Trials:    2,
	})
	callN(breaker, 2, errUpstream)
	assert.Equal(t, StateOpen, breaker.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	for i := 0; i < 2; i++ {
		require.NoError(t, call(breaker, nil))
	}
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := New("gemini", Settings{Threshold: 1, Cooldown: 20 * time.Millisecond})
	callN(breaker, 1, errUpstream)

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, breaker.State())

	callN(breaker, 1, errUpstream)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerHalfOpenLimitsTrials(t *testing.T) {
	breaker := New("gemini", Settings{Threshold: 1, Cooldown: 20 * time.Millisecond})
	callN(breaker, 1, errUpstream)
	time.Sleep(30 * time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = Do(breaker, func() (string, error) {
			close(started)
			<-release
			return "ok", nil
		})
	}()
	<-started

	assert.ErrorIs(t, call(breaker, nil), ErrTrialInFlight)

	close(release)
	assert.Eventually(t, func() bool {
		return breaker.State() == StateClosed
	}, time.Second, 5*time.Millisecond)
}

func TestBreakerIgnoredTrialReleasesSlot(t *testing.T) {
	breaker := New("gemini", Settings{
		Threshold: 1,
		Cooldown:  20 * time.Millisecond,
		Classify:  classify,
	})
	callN(breaker, 1, errUpstream)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, breaker.State())

	callN(breaker, 1, context.Canceled)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, call(breaker, nil), "the slot of an ignored trial must be reusable")
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string

	breaker := New("gemini", Settings{
		Threshold: 2,
		Cooldown:  10 * time.Millisecond,
		OnStateChange: func(name string, from State, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	callN(breaker, 2, errUpstream)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, call(breaker, nil))

	assert.Equal(t, []string{
		"gemini:closed->open",
		"gemini:open->half-open",
		"gemini:half-open->closed",
	}, transitions)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker := New("test", Settings{Cooldown: time.Minute, Classify: classify})

	assert.Panics(t, func() {
		_, _ = Do(breaker, func() (string, error) {
			panic("boom")
		})
	})
	assert.Equal(t, uint32(1), breaker.Counts().Failures)
}
