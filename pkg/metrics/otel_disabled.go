//go:build !otel
// +build !otel

package metrics

import "context"

// OTelTracer is a stub tracer for binaries built without the otel tag:
// observer.go can unconditionally wrap a handshake in a span without an
// otel/!otel branch at the call site.
type OTelTracer struct{}

// NewOTelTracer returns a no-op tracer when OpenTelemetry is not enabled.
func NewOTelTracer(serviceName string) *OTelTracer {
	return &OTelTracer{}
}

// StartSpan returns a no-op span ender; the handshake or record call it
// wraps runs exactly as it would with tracing enabled.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	return ctx, func(err error) {}
}

// OTelEnabled reports whether OpenTelemetry support is built in.
func OTelEnabled() bool {
	return false
}
