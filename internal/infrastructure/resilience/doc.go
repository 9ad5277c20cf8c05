/*
Package resilience provides the circuit breaker that guards backend stream
setup.

When the generation backend keeps refusing new streams (revoked credential,
quota exhausted, outage) the breaker opens and further requests fail fast
with ErrCircuitOpen instead of each waiting on a doomed upstream call. The
breaker never retries; callers still see one failure per request.

A Classifier decides what a guarded call's error says about the dependency.
Errors the caller caused count as successes, and cancellations are ignored,
so one misbehaving caller cannot open the breaker for everyone.

# Usage

	breaker := resilience.New("gemini", resilience.Settings{
		Threshold: 5,
		Cooldown:  30 * time.Second,
		Classify:  gemini.Verdict,
	})

	stream, err := resilience.Do(breaker, func() (relay.Stream, error) {
		return backend.Open(ctx, req)
	})

# States

	Closed --[Threshold failures]-> Open --[Cooldown]-> Half-Open --[Trials successes]-> Closed
	                                                        |
	                                                    [failure]
	                                                        v
	                                                       Open
*/
package resilience
