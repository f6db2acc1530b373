package rendition

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/massive-shoot/internal/fanout"
	"github.com/fpang/massive-shoot/internal/imagekey"
	"github.com/fpang/massive-shoot/internal/metrics"
	"github.com/fpang/massive-shoot/internal/objectstore"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(&bytes.Buffer{})
	os.Exit(m.Run())
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return cfg, format
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		rendition  imagekey.Rendition
		wantType   string
		wantW      int
		wantH      int
		wantFormat string
	}{
		{"landscape png resized", pngBytes(t, 800, 600), imagekey.ResizedOriginalFormat, "image/png", 400, 300, "png"},
		{"portrait jpeg resized", jpegBytes(t, 300, 900), imagekey.ResizedOriginalFormat, "image/jpeg", 133, 400, "jpeg"},
		{"jpeg to webp full size", jpegBytes(t, 640, 480), imagekey.WebPOriginalSize, "image/webp", 640, 480, "webp"},
		{"png to webp resized", pngBytes(t, 1000, 1000), imagekey.WebPResized, "image/webp", 400, 400, "webp"},
		{"small image not upscaled", pngBytes(t, 120, 80), imagekey.WebPResized, "image/webp", 120, 80, "webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Transform(tt.input, tt.rendition)
			if err != nil {
				t.Fatalf("Transform: %v", err)
			}
			if res.ContentType != tt.wantType {
				t.Errorf("content type = %s, want %s", res.ContentType, tt.wantType)
			}
			cfg, format := decodeConfig(t, res.Data)
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
			if format != tt.wantFormat {
				t.Errorf("format = %s, want %s", format, tt.wantFormat)
			}
		})
	}
}

func TestTransform_NotAnImage(t *testing.T) {
	if _, err := Transform([]byte("hello"), imagekey.WebPResized); err == nil {
		t.Fatal("expected decode error")
	}
}

const (
	bucket      = "bucket"
	prefix      = ".images"
	originalKey = ".images/original/U1/L123"
)

func seedOriginal(t *testing.T, objects *objectstore.Memory, meta map[string]string) {
	t.Helper()
	if err := objects.Put(context.Background(), bucket, originalKey, pngBytes(t, 800, 600), "image/png", meta); err != nil {
		t.Fatal(err)
	}
}

var originalMeta = map[string]string{"userid": "U1", "imageid": "L123", "created": "1700000000"}

func TestWorker_RenderEachVariant(t *testing.T) {
	want := map[string]string{
		"resized_original_format": ".images/original_format/400/U1/L123",
		"webp_original_size":      ".images/webp/original_size/U1/L123",
		"webp_resized":            ".images/webp/400/U1/L123",
	}
	for variant, wantKey := range want {
		t.Run(variant, func(t *testing.T) {
			objects := objectstore.NewMemory()
			seedOriginal(t, objects, originalMeta)
			w, err := NewWorker(objects, variant, prefix)
			if err != nil {
				t.Fatalf("NewWorker: %v", err)
			}

			key, err := w.Render(context.Background(), fanout.ObjectRef{Bucket: bucket, Key: originalKey})
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if key != wantKey {
				t.Errorf("key = %s, want %s", key, wantKey)
			}
			obj, err := objects.Head(context.Background(), bucket, key)
			if err != nil {
				t.Fatalf("rendition missing: %v", err)
			}
			for k, v := range originalMeta {
				if obj.Metadata[k] != v {
					t.Errorf("metadata[%s] = %q, want %q", k, obj.Metadata[k], v)
				}
			}
		})
	}
}

func TestWorker_RenderIsIdempotent(t *testing.T) {
	objects := objectstore.NewMemory()
	seedOriginal(t, objects, originalMeta)
	w, _ := NewWorker(objects, "webp_resized", prefix)
	ref := fanout.ObjectRef{Bucket: bucket, Key: originalKey}

	k1, err := w.Render(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	first, _, _ := objects.Get(context.Background(), bucket, k1)
	k2, err := w.Render(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	second, _, _ := objects.Get(context.Background(), bucket, k2)

	if k1 != k2 {
		t.Errorf("keys differ: %s vs %s", k1, k2)
	}
	if objects.Len() != 2 {
		t.Errorf("expected original + 1 rendition, got %d objects", objects.Len())
	}
	if !bytes.Equal(first, second) {
		t.Error("re-rendering produced different bytes")
	}
}

func TestWorker_SkipsDerivedKeys(t *testing.T) {
	objects := objectstore.NewMemory()
	w, _ := NewWorker(objects, "webp_resized", prefix)
	key, err := w.Render(context.Background(), fanout.ObjectRef{Bucket: bucket, Key: ".images/webp/400/U1/L123"})
	if err != nil || key != "" {
		t.Errorf("expected skip, got %q, %v", key, err)
	}
	if objects.Puts() != 0 {
		t.Error("nothing should be written")
	}
}

func TestWorker_MissingMetadata(t *testing.T) {
	objects := objectstore.NewMemory()
	seedOriginal(t, objects, map[string]string{"created": "1"})
	w, _ := NewWorker(objects, "webp_resized", prefix)
	_, err := w.Render(context.Background(), fanout.ObjectRef{Bucket: bucket, Key: originalKey})
	if !errors.Is(err, imagekey.ErrMissingMetadata) {
		t.Errorf("err = %v, want ErrMissingMetadata", err)
	}
}

func TestWorker_MissingOriginal(t *testing.T) {
	w, _ := NewWorker(objectstore.NewMemory(), "webp_resized", prefix)
	_, err := w.Render(context.Background(), fanout.ObjectRef{Bucket: bucket, Key: originalKey})
	if !errors.Is(err, objectstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWorker_ProcessRecordSNSEnvelope(t *testing.T) {
	objects := objectstore.NewMemory()
	seedOriginal(t, objects, originalMeta)
	w, _ := NewWorker(objects, "resized_original_format", prefix)

	body := `{"Type":"Notification","Message":"{\"Records\":[{\"eventName\":\"ObjectCreated:Put\",\"s3\":{\"bucket\":{\"name\":\"bucket\"},\"object\":{\"key\":\".images/original/U1/L123\"}}}]}"}`
	if err := w.ProcessRecord(context.Background(), events.SQSMessage{MessageId: "m1", Body: body}); err != nil {
		t.Fatalf("ProcessRecord: %v", err)
	}
	if _, err := objects.Head(context.Background(), bucket, ".images/original_format/400/U1/L123"); err != nil {
		t.Errorf("rendition not written: %v", err)
	}
}

func TestNewWorker_RejectsOriginal(t *testing.T) {
	if _, err := NewWorker(objectstore.NewMemory(), "original", prefix); err == nil {
		t.Error("expected error for original")
	}
	if _, err := NewWorker(objectstore.NewMemory(), "sepia", prefix); err == nil {
		t.Error("expected error for unknown variant")
	}
}
