package objectstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemory_PutHeadGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.Put(ctx, "b", ".images/original/U1/L1", []byte("data"), "image/jpeg",
		map[string]string{"UserId": "U1", "x-amz-meta-imageid": "L1"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	obj, err := m.Head(ctx, "b", ".images/original/U1/L1")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if obj.ContentType != "image/jpeg" || obj.Size != 4 {
		t.Errorf("unexpected object: %+v", obj)
	}
	if obj.Metadata["userid"] != "U1" || obj.Metadata["imageid"] != "L1" {
		t.Errorf("metadata not normalized: %v", obj.Metadata)
	}

	data, _, err := m.Get(ctx, "b", ".images/original/U1/L1")
	if err != nil || string(data) != "data" {
		t.Errorf("Get = %q, %v", data, err)
	}
}

func TestMemory_NotFound(t *testing.T) {
	m := NewMemory()
	if _, err := m.Head(context.Background(), "b", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Head error = %v, want ErrNotFound", err)
	}
	if _, _, err := m.Get(context.Background(), "b", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestMemory_OverwriteKeepsOneObject(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 3; i++ {
		if err := m.Put(ctx, "b", "k", []byte("v"), "image/webp", nil); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 object, got %d", m.Len())
	}
	if m.Puts() != 3 {
		t.Errorf("expected 3 puts, got %d", m.Puts())
	}
}

func TestMemory_ListPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"p/original/U1/b", "p/original/U1/a", "p/webp/400/U1/a"} {
		m.Put(ctx, "b", k, []byte("x"), "image/png", nil)
	}
	m.Put(ctx, "other", "p/original/U2/a", []byte("x"), "image/png", nil)

	var keys []string
	err := m.List(ctx, "b", "p/original/", func(o Object) error {
		keys = append(keys, o.Key)
		return nil
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0] != "p/original/U1/a" || keys[1] != "p/original/U1/b" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestNormalizeMetadata(t *testing.T) {
	got := normalizeMetadata(map[string]string{"X-Amz-Meta-Created": "1", "UserID": "U"})
	if got["created"] != "1" || got["userid"] != "U" {
		t.Errorf("unexpected: %v", got)
	}
}

func TestProjectTagging(t *testing.T) {
	if got := *projectTagging(); got != "Project=massive-shoot" {
		t.Errorf("tagging = %q", got)
	}
}
