package lambdawrap

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fpang/massive-shoot/internal/errtrack"
)

func TestRequestID_FromLambdaContext(t *testing.T) {
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	if got := RequestID(ctx); got != "req-1" {
		t.Errorf("RequestID = %q", got)
	}
}

func TestRequestID_FallbackIsUnique(t *testing.T) {
	a, b := RequestID(context.Background()), RequestID(context.Background())
	if a == "" || a == b {
		t.Errorf("expected distinct fallback ids, got %q and %q", a, b)
	}
}

func TestWithLogContext_AttachesLogger(t *testing.T) {
	h := WithLogContext("fn", func(ctx context.Context, _ string) (bool, error) {
		return zerolog.Ctx(ctx).GetLevel() != zerolog.Disabled, nil
	})
	ok, _ := h(context.Background(), "")
	if !ok {
		t.Error("expected a logger in context")
	}
}

func TestWrap_ReportsErrorAndFlushes(t *testing.T) {
	rec := &errtrack.Recorder{}
	flushed := 0
	boom := errors.New("boom")

	h := Wrap("fn", Deps{
		Tracer:   noop.NewTracerProvider().Tracer("test"),
		Flush:    func(context.Context) error { flushed++; return nil },
		Reporter: rec,
	}, func(context.Context, int) (int, error) { return 0, boom })

	if _, err := h(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(rec.Errors()) != 1 || rec.Errors()[0].Tags["function"] != "fn" {
		t.Errorf("unexpected captures: %+v", rec.Errors())
	}
	if rec.Flushes() != 1 || flushed != 1 {
		t.Errorf("flushes: reporter=%d tracer=%d", rec.Flushes(), flushed)
	}
}

func TestWrap_SuccessPassesThrough(t *testing.T) {
	rec := &errtrack.Recorder{}
	h := Wrap("fn", Deps{Reporter: rec}, func(_ context.Context, n int) (int, error) { return n * 2, nil })
	out, err := h(context.Background(), 21)
	if err != nil || out != 42 {
		t.Errorf("got %d, %v", out, err)
	}
	if len(rec.Errors()) != 0 {
		t.Error("nothing should be reported")
	}
}
