package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Provider is a single event's tracer provider: one root span per
// invocation (spec.md §4.9 "one invocation"), writing its completed
// span tree to a local debug file rather than a collector.
type Provider struct {
	tp       *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
	exporter *fileExporter
}

// New creates a Provider that writes completed trace trees under
// debugDir. debugDir == "" disables the file sink (spans are still
// built and walked, just never persisted) — what `cupcake eval` does
// when --debug-files is not set.
func New(serviceName, debugDir string) *Provider {
	exp := newFileExporter(debugDir)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithIDGenerator(uuidIDGenerator{}),
	)
	return &Provider{
		tp:       tp,
		tracer:   tp.Tracer(serviceName),
		exporter: exp,
	}
}

// StartInvocation opens the root span for one orchestrator run.
func (p *Provider) StartInvocation(ctx context.Context, harness string) (context.Context, oteltrace.Span) {
	return p.tracer.Start(ctx, "cupcake.evaluate",
		oteltrace.WithAttributes(attribute.String("harness", harness)))
}

// StartSpan opens a child span under whatever span is active in ctx.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return p.tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// Shutdown flushes any trace trees still buffered (a root span that
// never completed, e.g. after a panic) and releases resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}
