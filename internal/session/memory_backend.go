package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps the session in process memory only.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (b *MemoryBackend) Get(_ context.Context, keys ...string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := b.data[key]; ok {
			values[key] = v
		}
	}
	return values, nil
}

func (b *MemoryBackend) Update(_ context.Context, set map[string]string, del ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range del {
		delete(b.data, key)
	}
	for key, value := range set {
		b.data[key] = value
	}
	return nil
}

func (b *MemoryBackend) Ping(_ context.Context) error {
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
