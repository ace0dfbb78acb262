package kvstore

import (
	"strings"
	"sync"
)

// MemoryStore is a map-backed Store. It is the default backend and the one
// used in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string]string
	used       int64
	quotaBytes int64
	closed     bool
}

// NewMemoryStore returns an empty store. quotaBytes <= 0 means unlimited.
func NewMemoryStore(quotaBytes int64) *MemoryStore {
	return &MemoryStore{data: make(map[string]string), quotaBytes: quotaBytes}
}

// Get implements Store.
func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store.
func (s *MemoryStore) Set(key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	used := s.used + entrySize(key, value)
	if old, ok := s.data[key]; ok {
		used -= entrySize(key, old)
	}
	if s.quotaBytes > 0 && used > s.quotaBytes {
		return ErrQuotaExceeded
	}

	s.data[key] = value
	s.used = used
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if old, ok := s.data[key]; ok {
		s.used -= entrySize(key, old)
		delete(s.data, key)
	}
	return nil
}

// Keys implements Store.
func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// UsedBytes returns the bytes currently stored.
func (s *MemoryStore) UsedBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
