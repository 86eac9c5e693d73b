package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MockStorage is an in-memory ObjectStorage for tests
type MockStorage struct {
	objects map[string][]byte
	mu      sync.RWMutex

	// FailDelete makes DeleteObject fail, for best-effort cleanup tests
	FailDelete bool
}

// NewMockStorage creates an empty mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{objects: make(map[string][]byte)}
}

// PutObject stores content in memory
func (m *MockStorage) PutObject(_ context.Context, key string, content []byte, _ string) error {
	m.mu.Lock()
	m.objects[key] = content
	m.mu.Unlock()
	return nil
}

// GetPresignedURL returns a fake presigned URL for a stored object
func (m *MockStorage) GetPresignedURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("file not found in mock storage: %s", key)
	}
	return fmt.Sprintf("https://test-bucket.s3.eu-west-1.amazonaws.com/%s?mock=true", key), nil
}

// DeleteObject removes an object from memory
func (m *MockStorage) DeleteObject(_ context.Context, key string) error {
	if m.FailDelete {
		return errors.New("mock storage delete failure")
	}

	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Exists checks if an object is stored
func (m *MockStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[key]
	return exists
}

// Keys returns the stored object keys
func (m *MockStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
