package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStorage keeps objects in process. Used by tests and by the server
// when no bucket is configured.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string]Object
	// FailUpload, when set, is returned by every Upload call.
	FailUpload error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]Object)}
}

func (m *MemoryStorage) Upload(ctx context.Context, obj Object) (string, error) {
	if m.FailUpload != nil {
		return "", m.FailUpload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	locator := m.Locator(obj.Bucket, obj.Key)
	m.objects[locator] = obj
	return locator, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, bucket, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, locator)
	return nil
}

func (m *MemoryStorage) Locator(bucket, key string) string {
	return fmt.Sprintf("memory://%s/%s", bucket, key)
}

// Get returns the stored object for a locator.
func (m *MemoryStorage) Get(locator string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[locator]
	return obj, ok
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
