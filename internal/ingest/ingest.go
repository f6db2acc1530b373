// Package ingest turns a queued LINE image event into a stored original
// plus its index record.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/massive-shoot/internal/imagekey"
	"github.com/fpang/massive-shoot/internal/line"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/objectstore"
	"github.com/fpang/massive-shoot/internal/store"
)

// ContentFetcher downloads message content from the provider.
type ContentFetcher interface {
	GetMessageContent(ctx context.Context, messageID string) (*line.Content, error)
}

// Worker stores originals. It holds no per-request state.
type Worker struct {
	fetcher ContentFetcher
	objects objectstore.Store
	images  store.ImageStore
	bucket  string
	prefix  string
}

// NewWorker wires a Worker. prefix is the save prefix without a trailing
// slash.
func NewWorker(fetcher ContentFetcher, objects objectstore.Store, images store.ImageStore, bucket, prefix string) *Worker {
	return &Worker{
		fetcher: fetcher,
		objects: objects,
		images:  images,
		bucket:  bucket,
		prefix:  prefix,
	}
}

// ProcessRecord is a queue.RecordFunc.
func (w *Worker) ProcessRecord(ctx context.Context, msg events.SQSMessage) error {
	_, err := w.Ingest(ctx, []byte(msg.Body))
	return err
}

// Ingest fetches, stores and indexes one image. Repeating it for the same
// event rewrites the same object and record.
func (w *Worker) Ingest(ctx context.Context, body []byte) (*store.ImageRecord, error) {
	ev, err := line.ParseImageEvent(body)
	if err != nil {
		return nil, err
	}

	messageID := ev.MessageID
	meta := imagekey.Metadata{
		UserID:  ev.UserID,
		ImageID: imagekey.ImageID(imagekey.SourceLINE, messageID),
		Created: float64(ev.Timestamp) / 1000,
	}
	logger := logging.Ctx(ctx).With().
		Str("lineMessageId", messageID).
		Str("userId", meta.UserID).
		Str("imageId", meta.ImageID).
		Logger()

	content, err := w.fetcher.GetMessageContent(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("fetch content %s: %w", messageID, err)
	}

	if ts, ok := captureTime(content.Data); ok {
		taken := float64(ts.UnixMilli()) / 1000
		meta.TakenAt = &taken
		logger.Debug().Time("takenAt", ts).Msg("EXIF capture time found")
	}

	key := imagekey.Key(w.prefix, imagekey.Original, meta.UserID, meta.ImageID)
	if err := w.objects.Put(ctx, w.bucket, key, content.Data, content.ContentType, meta.Encode()); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	rec := &store.ImageRecord{
		UserID:      meta.UserID,
		ImageID:     meta.ImageID,
		Created:     meta.Created,
		ContentType: content.ContentType,
		ObjectKey:   key,
		TakenAt:     meta.TakenAt,
	}
	if err := w.images.PutImage(ctx, rec); err != nil {
		return nil, fmt.Errorf("index image: %w", err)
	}

	logger.Info().
		Str("key", key).
		Str("contentType", content.ContentType).
		Int("size", len(content.Data)).
		Dur("eventAge", time.Since(time.UnixMilli(ev.Timestamp))).
		Msg("Original stored")
	return rec, nil
}
