package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fpang/massive-shoot/internal/errtrack"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/metrics"
)

// RecordFunc processes one SQS message. A returned error marks only that
// message as failed.
type RecordFunc func(ctx context.Context, msg events.SQSMessage) error

// Batch runs a RecordFunc over every message of an SQS event and builds
// the partial-batch response. Records are processed sequentially.
type Batch struct {
	Name     string
	Process  RecordFunc
	Reporter errtrack.Reporter
	Tracer   trace.Tracer
}

// Handle is the Lambda handler for an SQS event source configured with
// ReportBatchItemFailures.
func (b *Batch) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	logger := logging.Ctx(ctx)
	if len(ev.Records) == 0 {
		logger.Info().Msg("No SQS records to process")
		return resp, nil
	}

	start := time.Now()
	for _, msg := range ev.Records {
		if err := b.processOne(ctx, msg); err != nil {
			logger.Error().Err(err).Str("messageId", msg.MessageId).Msg("Failed to process SQS record")
			b.reporter().Capture(ctx, err, map[string]string{
				"handler":   b.Name,
				"messageId": msg.MessageId,
			})
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: msg.MessageId,
			})
			continue
		}
		logger.Debug().Str("messageId", msg.MessageId).Msg("Processed SQS record")
	}

	failed := len(resp.BatchItemFailures)
	metrics.Default().
		Dimension("Handler", b.Name).
		Metric("RecordsProcessed", float64(len(ev.Records)-failed), metrics.UnitCount).
		Metric("RecordsFailed", float64(failed), metrics.UnitCount).
		Metric("BatchLatencyMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Flush()

	logger.Info().
		Int("records", len(ev.Records)).
		Int("failed", failed).
		Msg("SQS batch complete")
	return resp, nil
}

// processOne isolates a record: a panic is converted into that record's
// failure so the rest of the batch still runs.
func (b *Batch) processOne(ctx context.Context, msg events.SQSMessage) (err error) {
	ctx, span := b.tracer().Start(ctx, b.Name+".record",
		trace.WithAttributes(attribute.String("messaging.message.id", msg.MessageId)))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v", msg.MessageId, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	return b.Process(ctx, msg)
}

func (b *Batch) reporter() errtrack.Reporter {
	if b.Reporter == nil {
		return errtrack.Nop{}
	}
	return b.Reporter
}

func (b *Batch) tracer() trace.Tracer {
	if b.Tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return b.Tracer
}
