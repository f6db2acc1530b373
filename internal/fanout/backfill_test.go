package fanout

import (
	"context"
	"errors"
	"testing"

	"github.com/fpang/massive-shoot/internal/objectstore"
)

func TestBackfill_PublishesOnlyOriginals(t *testing.T) {
	ctx := context.Background()
	objects := objectstore.NewMemory()
	for _, key := range []string{
		".images/original/U1/L1",
		".images/original/U2/L2 copy",
		".images/webp/400/U1/L1",
		".images/original/U1/L1/extra",
		"other/original/U1/L1",
	} {
		if err := objects.Put(ctx, "b", key, []byte("x"), "image/jpeg", nil); err != nil {
			t.Fatal(err)
		}
	}

	pub := &recordingPublisher{}
	n, err := Backfill(ctx, objects, pub, "b", ".images")
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 2 || len(pub.keys) != 2 {
		t.Fatalf("published %d (%v), want 2", n, pub.keys)
	}
	decoded := map[string]bool{}
	for _, k := range pub.keys {
		decoded[decodeKey(k)] = true
	}
	if !decoded[".images/original/U1/L1"] || !decoded[".images/original/U2/L2 copy"] {
		t.Errorf("unexpected keys %v", pub.keys)
	}
}

func TestBackfill_StopsOnPublishError(t *testing.T) {
	ctx := context.Background()
	objects := objectstore.NewMemory()
	_ = objects.Put(ctx, "b", ".images/original/U1/L1", []byte("x"), "image/jpeg", nil)

	_, err := Backfill(ctx, objects, &recordingPublisher{err: errors.New("throttled")}, "b", ".images")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestObjectCreatedRecord_KeyEncoding(t *testing.T) {
	rec := ObjectCreatedRecord("b", objectstore.Object{Key: ".images/original/U1/a b+c", Size: 3})
	if rec.S3.Object.Key != ".images/original/U1/a+b%2Bc" {
		t.Errorf("key = %s", rec.S3.Object.Key)
	}
	if decodeKey(rec.S3.Object.Key) != ".images/original/U1/a b+c" {
		t.Errorf("round trip failed: %s", decodeKey(rec.S3.Object.Key))
	}
	if rec.EventName != "ObjectCreated:Put" || rec.S3.Object.Size != 3 {
		t.Errorf("unexpected record %+v", rec)
	}
}
