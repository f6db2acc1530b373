// Package indexer rebuilds image records from stored originals. It runs on
// the same fan-out as the rendition workers, so an index record exists even
// if the ingestion worker's own write was lost.
package indexer

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/massive-shoot/internal/fanout"
	"github.com/fpang/massive-shoot/internal/imagekey"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/objectstore"
	"github.com/fpang/massive-shoot/internal/store"
)

// Indexer writes one record per original.
type Indexer struct {
	objects objectstore.Store
	images  store.ImageStore
	prefix  string
}

// New creates an Indexer.
func New(objects objectstore.Store, images store.ImageStore, prefix string) *Indexer {
	return &Indexer{objects: objects, images: images, prefix: prefix}
}

// ProcessRecord is a queue.RecordFunc for the indexer's fan-out queue.
func (ix *Indexer) ProcessRecord(ctx context.Context, msg events.SQSMessage) error {
	refs, err := fanout.DecodeNotification(msg.Body)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if _, err := ix.Index(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}

// Index heads the original and upserts its record. Non-original keys are
// skipped and return nil.
func (ix *Indexer) Index(ctx context.Context, ref fanout.ObjectRef) (*store.ImageRecord, error) {
	if !imagekey.IsOriginal(ix.prefix, ref.Key) {
		logging.Ctx(ctx).Debug().Str("key", ref.Key).Msg("Skipping non-original key")
		return nil, nil
	}

	head, err := ix.objects.Head(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return nil, err
	}
	rec, err := RecordFromObject(head)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref.Key, err)
	}
	if err := ix.images.PutImage(ctx, rec); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("userId", rec.UserID).
		Str("imageId", rec.ImageID).
		Str("key", ref.Key).
		Msg("Image indexed")
	return rec, nil
}

// RecordFromObject builds the index record for a stored original.
func RecordFromObject(obj *objectstore.Object) (*store.ImageRecord, error) {
	meta, err := imagekey.DecodeMetadata(obj.Metadata)
	if err != nil {
		return nil, err
	}
	return &store.ImageRecord{
		UserID:      meta.UserID,
		ImageID:     meta.ImageID,
		Created:     meta.Created,
		ContentType: obj.ContentType,
		ObjectKey:   obj.Key,
		TakenAt:     meta.TakenAt,
	}, nil
}
