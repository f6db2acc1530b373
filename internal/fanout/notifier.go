package fanout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/massive-shoot/internal/imagekey"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/metrics"
)

// Notifier republishes ObjectCreated events for originals.
type Notifier struct {
	publisher Publisher
	prefix    string
}

// NewNotifier creates a Notifier that only forwards keys that are
// originals under prefix.
func NewNotifier(publisher Publisher, prefix string) *Notifier {
	return &Notifier{publisher: publisher, prefix: prefix}
}

// Handle is the Lambda handler for the bucket's event notification. Any
// publish failure fails the invocation so the event source retries; the
// already-published records are re-sent, which consumers tolerate.
func (n *Notifier) Handle(ctx context.Context, ev events.S3Event) (int, error) {
	logger := logging.Ctx(ctx)
	published := 0
	for _, rec := range ev.Records {
		if !strings.HasPrefix(rec.EventName, "ObjectCreated:") {
			logger.Debug().Str("eventName", rec.EventName).Msg("Skipping non-create event")
			continue
		}
		key := decodeKey(rec.S3.Object.Key)
		if !imagekey.IsOriginal(n.prefix, key) {
			logger.Debug().Str("key", key).Msg("Skipping non-original key")
			continue
		}
		if err := n.publisher.Publish(ctx, rec); err != nil {
			return published, fmt.Errorf("publish %s: %w", key, err)
		}
		published++
		logger.Info().Str("bucket", rec.S3.Bucket.Name).Str("key", key).Msg("Original fanned out")
	}

	metrics.Default().
		Dimension("Handler", "notify").
		Metric("OriginalsPublished", float64(published), metrics.UnitCount).
		Flush()
	return published, nil
}

// decodeKey undoes the form encoding S3 applies to keys in notifications.
func decodeKey(key string) string {
	if k, err := url.QueryUnescape(key); err == nil {
		return k
	}
	return key
}
