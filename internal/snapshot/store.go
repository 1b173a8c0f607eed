package snapshot

import (
	"context"
	"sync"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// Store persists the external-ID -> content-hash mapping for each content
// type. Replace is a full atomic swap: the orchestrator recomputes the whole
// set once per pass and writes it in one shot, never merging incrementally.
type Store interface {
	Load(ctx context.Context, ct domain.ContentType) (map[string]string, error)
	Replace(ctx context.Context, ct domain.ContentType, entries map[string]string) error
}

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[domain.ContentType]map[string]string
}

// NewMemoryStore returns an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[domain.ContentType]map[string]string{}}
}

// Load returns a copy of the stored mapping; callers may mutate it freely.
func (s *MemoryStore) Load(_ context.Context, ct domain.ContentType) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.data[ct]))
	for id, h := range s.data[ct] {
		out[id] = h
	}
	return out, nil
}

// Replace swaps in the new mapping for the content type.
func (s *MemoryStore) Replace(_ context.Context, ct domain.ContentType, entries map[string]string) error {
	cp := make(map[string]string, len(entries))
	for id, h := range entries {
		cp[id] = h
	}
	s.mu.Lock()
	s.data[ct] = cp
	s.mu.Unlock()
	return nil
}
