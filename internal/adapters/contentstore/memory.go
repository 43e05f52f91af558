package contentstore

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// MemoryStore keeps representations in a map. Used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) PutItem(_ context.Context, basePath string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[basePath] = append([]byte(nil), body...)
	return nil
}

func (s *MemoryStore) DeleteItem(_ context.Context, basePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[basePath]; !ok {
		return interfaces.ErrStoreNotFound
	}
	delete(s.items, basePath)
	return nil
}

// Get returns the stored body for basePath.
func (s *MemoryStore) Get(basePath string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.items[basePath]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), body...), true
}

// Paths lists stored base paths in order.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.items))
	for path := range s.items {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
