package objectstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
)

type memObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memObject
	puts    int
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func memKey(bucket, key string) string { return bucket + "\x00" + key }

func (m *Memory) Head(_ context.Context, bucket, key string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[memKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("head %s/%s: %w", bucket, key, ErrNotFound)
	}
	return &Object{
		Bucket:      bucket,
		Key:         key,
		ContentType: o.contentType,
		Size:        int64(len(o.body)),
		Metadata:    maps.Clone(o.metadata),
	}, nil
}

func (m *Memory) Get(ctx context.Context, bucket, key string) ([]byte, *Object, error) {
	obj, err := m.Head(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.objects[memKey(bucket, key)].body...), obj, nil
}

func (m *Memory) Put(_ context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memKey(bucket, key)] = memObject{
		body:        append([]byte(nil), body...),
		contentType: contentType,
		metadata:    normalizeMetadata(metadata),
	}
	m.puts++
	return nil
}

func (m *Memory) List(_ context.Context, bucket, prefix string, fn func(Object) error) error {
	m.mu.Lock()
	var objs []Object
	for k, o := range m.objects {
		b, key, _ := strings.Cut(k, "\x00")
		if b == bucket && strings.HasPrefix(key, prefix) {
			objs = append(objs, Object{Bucket: b, Key: key, Size: int64(len(o.body))})
		}
	}
	m.mu.Unlock()

	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })
	for _, o := range objs {
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Puts returns the number of Put calls, including overwrites.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
