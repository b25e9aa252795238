package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore implements Store with JSON blobs held in memory. Values are
// marshaled on save so loads always observe a deep copy, matching the
// round-trip behavior of the durable stores.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// saves counts successful Save calls, exposed for tests asserting
	// that guest sessions never write.
	saves int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save serializes value under key.
func (s *MemoryStore) Save(ctx context.Context, key string, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob
	s.saves++
	return nil
}

// Load deserializes the value stored under key into out.
func (s *MemoryStore) Load(ctx context.Context, key string, out any) (bool, error) {
	s.mu.RLock()
	blob, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Remove deletes the value stored under key.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// SaveCount returns the number of successful saves so far.
func (s *MemoryStore) SaveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
