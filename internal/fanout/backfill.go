package fanout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/massive-shoot/internal/imagekey"
	"github.com/fpang/massive-shoot/internal/objectstore"
)

// Backfill republishes an ObjectCreated record for every original under
// prefix. Renditions and index records are rebuilt downstream; every
// consumer overwrites, so running it twice is harmless. It returns the
// number of originals published.
func Backfill(ctx context.Context, objects objectstore.Store, pub Publisher, bucket, prefix string) (int, error) {
	published := 0
	err := objects.List(ctx, bucket, imagekey.OriginalPrefix(prefix), func(obj objectstore.Object) error {
		if !imagekey.IsOriginal(prefix, obj.Key) {
			return nil
		}
		if err := pub.Publish(ctx, ObjectCreatedRecord(bucket, obj)); err != nil {
			return fmt.Errorf("publish %s: %w", obj.Key, err)
		}
		published++
		return nil
	})
	return published, err
}

// ObjectCreatedRecord builds the record S3 would have sent for obj. The key
// is form-encoded the way S3 encodes it in notifications.
func ObjectCreatedRecord(bucket string, obj objectstore.Object) events.S3EventRecord {
	var rec events.S3EventRecord
	rec.EventVersion = "2.1"
	rec.EventSource = "aws:s3"
	rec.EventName = "ObjectCreated:Put"
	rec.EventTime = time.Now().UTC()
	rec.S3.Bucket.Name = bucket
	rec.S3.Bucket.Arn = "arn:aws:s3:::" + bucket
	rec.S3.Object.Key = strings.ReplaceAll(url.QueryEscape(obj.Key), "%2F", "/")
	rec.S3.Object.Size = obj.Size
	return rec
}
