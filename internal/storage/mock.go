package storage

import (
	"context"
	"errors"
	"sync"
)

// MockStore is an in-memory object store used in tests. Optional func
// fields override the default map-backed behavior.
type MockStore struct {
	UploadFunc          func(ctx context.Context, key string, data []byte, contentType string) error
	DeleteFunc          func(ctx context.Context, key string) error
	PresignDownloadFunc func(ctx context.Context, key, filename string, inline bool) (string, error)

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{objects: make(map[string][]byte)}
}

func (m *MockStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, key, data, contentType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.New("object not found")
	}
	delete(m.objects, key)
	return nil
}

func (m *MockStore) PresignDownload(ctx context.Context, key, filename string, inline bool) (string, error) {
	if m.PresignDownloadFunc != nil {
		return m.PresignDownloadFunc(ctx, key, filename, inline)
	}
	return "https://storage.example.com/" + key, nil
}

// Has reports whether an object with the key is currently stored.
func (m *MockStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Len reports how many objects are currently stored.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
