/*
Package tracing provides lightweight request tracing for the relay.

Each inbound request gets a span. The trace continues an X-Trace-ID sent by
the caller or starts a new one, and the same trace is propagated on the
outbound Gemini call so upstream logs can be correlated with ours.

# Usage

	tracer := tracing.New("ketonai", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// outbound
	tracing.InjectTraceContext(ctx, req.Header)

	// log lines
	logger.Info("relay finished", tracing.Fields(ctx)...)

# Trace Format

Traces use HTTP headers for propagation:
- X-Trace-ID: identifier for the entire request flow (trace_<ulid>)
- X-Span-ID: identifier for the current operation (span_<ulid>)

Finished spans are buffered (1000) and logged by a background collector.
Spans that carry an error are logged at warn level, the rest at debug.
*/
package tracing
