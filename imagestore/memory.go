package imagestore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
)

// Memory is an in-memory Store for tests.
type Memory struct {
	mu     sync.RWMutex
	images map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{images: make(map[string][]byte)}
}

// Put reads r to the end and stores a copy.
func (m *Memory) Put(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(&contextReader{ctx: ctx, r: r})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[name] = data
	return nil
}

// Open returns a reader over a snapshot of the image.
func (m *Memory) Open(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.images[name]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Names lists the stored images in sorted order.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.images))
	for name := range m.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
