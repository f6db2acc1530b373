package rendition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/massive-shoot/internal/fanout"
	"github.com/fpang/massive-shoot/internal/imagekey"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/metrics"
	"github.com/fpang/massive-shoot/internal/objectstore"
)

// Worker produces one rendition for each original it is notified about.
type Worker struct {
	objects   objectstore.Store
	rendition imagekey.Rendition
	prefix    string
}

// NewWorker creates a worker for variant (a rendition configuration name
// other than "original").
func NewWorker(objects objectstore.Store, variant, prefix string) (*Worker, error) {
	r, err := imagekey.ParseRendition(variant)
	if err != nil {
		return nil, err
	}
	if r == imagekey.Original {
		return nil, errors.New("original is not a derived rendition")
	}
	return &Worker{objects: objects, rendition: r, prefix: prefix}, nil
}

// Rendition returns the variant this worker produces.
func (w *Worker) Rendition() imagekey.Rendition { return w.rendition }

// ProcessRecord is a queue.RecordFunc for a fan-out queue.
func (w *Worker) ProcessRecord(ctx context.Context, msg events.SQSMessage) error {
	refs, err := fanout.DecodeNotification(msg.Body)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if _, err := w.Render(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}

// Render writes the rendition of ref and returns its key. Keys that are
// not originals are skipped with an empty key, so the worker never reacts
// to its own output.
func (w *Worker) Render(ctx context.Context, ref fanout.ObjectRef) (string, error) {
	logger := logging.Ctx(ctx).With().
		Str("variant", w.rendition.String()).
		Str("source", ref.Key).
		Logger()

	if !imagekey.IsOriginal(w.prefix, ref.Key) {
		logger.Debug().Msg("Skipping non-original key")
		return "", nil
	}

	start := time.Now()
	head, err := w.objects.Head(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return "", err
	}
	meta, err := imagekey.DecodeMetadata(head.Metadata)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ref.Key, err)
	}

	data, _, err := w.objects.Get(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return "", err
	}
	res, err := Transform(data, w.rendition)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ref.Key, err)
	}

	key := imagekey.Key(w.prefix, w.rendition, meta.UserID, meta.ImageID)
	if err := w.objects.Put(ctx, ref.Bucket, key, res.Data, res.ContentType, head.Metadata); err != nil {
		return "", err
	}

	elapsed := time.Since(start)
	metrics.Default().
		Dimension("Variant", w.rendition.String()).
		Metric("RenditionBytes", float64(len(res.Data)), metrics.UnitBytes).
		Metric("RenditionLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Property("sourceFormat", res.SourceFormat).
		Flush()

	logger.Info().
		Str("key", key).
		Str("contentType", res.ContentType).
		Int("width", res.Width).
		Int("height", res.Height).
		Int("size", len(res.Data)).
		Dur("elapsed", elapsed).
		Msg("Rendition written")
	return key, nil
}
