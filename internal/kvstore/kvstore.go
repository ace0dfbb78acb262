// Package kvstore provides the synchronous string key-value capability the
// recommendation cache persists into.
//
// Backends are small and local: an in-memory map, a directory of files and
// an embedded BadgerDB. All of them can refuse a write with ErrQuotaExceeded
// when a configured capacity would be exceeded; callers are expected to
// treat that as a recoverable condition.
//
// No backend coordinates writers across processes. Two processes sharing a
// file or badger directory race with last-write-wins semantics.
package kvstore

import (
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Common errors.
var (
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrInvalidKey    = errors.New("key cannot be empty")
	ErrClosed        = errors.New("store is closed")
)

// Store is a synchronous string key-value store.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value. It returns
	// ErrQuotaExceeded when the write would exceed the store's capacity;
	// the previous value, if any, is left in place.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists all keys starting with prefix, in no particular order.
	Keys(prefix string) ([]string, error)

	// Close releases the backend's resources.
	Close() error
}

// Options configures Open.
type Options struct {
	// Backend is memory, file or badger.
	Backend string

	// Directory holds file and badger data.
	Directory string

	// QuotaBytes caps the stored bytes (keys plus values); 0 means unlimited.
	QuotaBytes int64
}

// Open constructs the backend named by opts.Backend.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(opts.QuotaBytes), nil
	case BackendFile:
		return NewFileStore(opts.Directory, opts.QuotaBytes)
	case BackendBadger:
		return OpenBadgerStore(opts.Directory, opts.QuotaBytes)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
