// Package lambdawrap composes cross-cutting concerns around typed Lambda
// handlers: a log context carrying the request id, one trace span per
// invocation, and error reporting with a flush before returning.
package lambdawrap

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fpang/massive-shoot/internal/errtrack"
	"github.com/fpang/massive-shoot/internal/logging"
)

// Handler is a typed Lambda handler.
type Handler[In, Out any] func(ctx context.Context, in In) (Out, error)

// RequestID returns the Lambda request id from ctx, or a fresh UUID when
// running outside Lambda.
func RequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

// WithLogContext attaches a logger with requestId and function fields.
func WithLogContext[In, Out any](function string, h Handler[In, Out]) Handler[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		ctx = logging.WithFields(ctx, map[string]string{
			"requestId": RequestID(ctx),
			"function":  function,
		})
		return h(ctx, in)
	}
}

// WithTracing runs h inside a span named after the function. flush, when
// non-nil, is called after the span ends.
func WithTracing[In, Out any](tracer trace.Tracer, function string, flush func(context.Context) error, h Handler[In, Out]) Handler[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		ctx, span := tracer.Start(ctx, function, trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("faas.invocation_id", RequestID(ctx))))
		out, err := h(ctx, in)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if flush != nil {
			if ferr := flush(ctx); ferr != nil {
				logging.Ctx(ctx).Warn().Err(ferr).Msg("Failed to flush spans")
			}
		}
		return out, err
	}
}

// WithErrorReport captures a returned error and flushes the reporter on
// every invocation.
func WithErrorReport[In, Out any](rep errtrack.Reporter, function string, h Handler[In, Out]) Handler[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		defer rep.Flush()
		out, err := h(ctx, in)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Invocation failed")
			rep.Capture(ctx, err, map[string]string{"function": function})
		}
		return out, err
	}
}

// Deps bundles what Wrap needs.
type Deps struct {
	Tracer   trace.Tracer
	Flush    func(context.Context) error
	Reporter errtrack.Reporter
}

// Wrap applies log context, tracing and error reporting, outermost first.
func Wrap[In, Out any](function string, deps Deps, h Handler[In, Out]) Handler[In, Out] {
	rep := deps.Reporter
	if rep == nil {
		rep = errtrack.Nop{}
	}
	inner := WithErrorReport(rep, function, h)
	if deps.Tracer != nil {
		inner = WithTracing(deps.Tracer, function, deps.Flush, inner)
	}
	return WithLogContext(function, inner)
}
