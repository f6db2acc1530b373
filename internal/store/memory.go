package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryImageStore is an in-process ImageStore for tests and local runs.
type MemoryImageStore struct {
	mu      sync.Mutex
	records map[[2]string]ImageRecord
	puts    int
}

var _ ImageStore = (*MemoryImageStore)(nil)

// NewMemoryImageStore returns an empty store.
func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{records: make(map[[2]string]ImageRecord)}
}

func (m *MemoryImageStore) PutImage(_ context.Context, rec *ImageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *rec
	if rec.TakenAt != nil {
		v := *rec.TakenAt
		r.TakenAt = &v
	}
	m.records[[2]string{rec.UserID, rec.ImageID}] = r
	m.puts++
	return nil
}

// ScanImages returns records ordered by key so results are deterministic.
func (m *MemoryImageStore) ScanImages(_ context.Context) ([]ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ImageRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ImageID < out[j].ImageID
	})
	return out, nil
}

// Get returns the record for (userID, imageID).
func (m *MemoryImageStore) Get(userID, imageID string) (ImageRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[[2]string{userID, imageID}]
	return r, ok
}

// Puts returns the number of PutImage calls.
func (m *MemoryImageStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
