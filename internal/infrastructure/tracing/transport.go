package tracing

import "net/http"

// Transport returns a RoundTripper that copies the trace context of each
// request's context into its headers before handing it to base.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{base: base}
}

type transport struct {
	base http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if GetTraceID(req.Context()) == "" {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	InjectTraceContext(req.Context(), out.Header)
	return t.base.RoundTrip(out)
}
