package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ErrObjectNotFound is returned when a key does not exist in a MemStore.
var ErrObjectNotFound = errors.New("storage: object not found")

// MemStore is an in-memory ObjectStore used by tests and dry runs.
// All methods are safe for concurrent use.
type MemStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte

	// FailCopies maps source keys to the number of times Copy should fail
	// before succeeding. Used to exercise retry paths.
	FailCopies map[string]int

	copies []string
}

// NewMemStore creates a MemStore for the named bucket.
func NewMemStore(bucket string) *MemStore {
	return &MemStore{
		bucket:     bucket,
		objects:    make(map[string][]byte),
		FailCopies: make(map[string]int),
	}
}

// Bucket returns the bucket name.
func (m *MemStore) Bucket() string {
	return m.bucket
}

// Put stores data under key.
func (m *MemStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

// PutSized stores a zero-filled object of the given size, for tests that
// only care about byte counts.
func (m *MemStore) PutSized(key string, size int64) {
	m.Put(key, make([]byte, size))
}

// List enumerates objects under prefix in lexical key order.
func (m *MemStore) List(_ context.Context, prefix string, limit int) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var objs []Object
	for _, key := range keys {
		if strings.HasSuffix(key, "/") && len(m.objects[key]) == 0 {
			continue
		}
		objs = append(objs, Object{Key: key, Size: int64(len(m.objects[key]))})
		if limit > 0 && len(objs) >= limit {
			break
		}
	}
	return objs, nil
}

// Copy duplicates srcKey's data under dstKey, honoring any configured
// failure injection.
func (m *MemStore) Copy(_ context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := m.FailCopies[srcKey]; n > 0 {
		m.FailCopies[srcKey] = n - 1
		return fmt.Errorf("copy %s: injected failure", srcKey)
	}

	data, ok := m.objects[srcKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, srcKey)
	}

	m.objects[dstKey] = append([]byte(nil), data...)
	m.copies = append(m.copies, srcKey+" -> "+dstKey)
	return nil
}

// Download writes the object's data into w.
func (m *MemStore) Download(_ context.Context, key string, w io.Writer) (int64, error) {
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// CopyLog returns the "src -> dst" record of every successful copy, in
// order.
func (m *MemStore) CopyLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.copies...)
}

// Has reports whether key exists.
func (m *MemStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Verify interface implementation at compile time.
var _ ObjectStore = (*MemStore)(nil)
