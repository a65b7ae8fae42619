// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telemetry configures OpenTelemetry tracing.
//
// Custom span attributes use the "truckdoc." prefix. Advisory spans follow the
// GenAI semantic conventions where they apply.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "go.astrophena.name/truckdoc"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initializes the trace provider with an OTLP gRPC exporter.
// If endpoint is empty, tracing stays disabled.
// The returned shutdown function must be called on exit.
func InitTraceProvider(ctx context.Context, endpoint, serviceName, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartUpdateSpan creates the parent span for one webhook update.
func StartUpdateSpan(ctx context.Context, requestID, kind string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "bot.update",
		trace.WithAttributes(
			attribute.String("truckdoc.request_id", requestID),
			attribute.String("truckdoc.update_kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartFleetSpan creates a child span for a fleet provider call.
func StartFleetSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "fleet."+op,
		trace.WithAttributes(
			attribute.String("truckdoc.fleet_op", op),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartAdvisorySpan creates a child span for a text generation call.
func StartAdvisorySpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "gen_ai.generate",
		trace.WithAttributes(
			attribute.String("gen_ai.system", provider),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// End ends span, marking it as failed if err is not nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
