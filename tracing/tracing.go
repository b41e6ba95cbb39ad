// Package tracing wires the engine's settlement and reconciliation paths
// into Jaeger via OpenTracing, so a slow or failing validator round-trip
// shows up as a span rather than only as a log line.
package tracing

import (
	"context"
	"io"

	"github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Init configures serviceName as the global OpenTracing tracer, reporting
// spans to a local Jaeger agent. The returned closer must be closed on
// shutdown to flush any buffered spans.
func Init(serviceName string) (opentracing.Tracer, io.Closer, error) {
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans: false,
		},
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}

// StartSpanFromContext is a thin convenience wrapper kept here so callers
// never need to import opentracing directly.
func StartSpanFromContext(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operationName)
}
