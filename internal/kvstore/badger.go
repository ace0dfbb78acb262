package kvstore

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is a Store backed by an embedded BadgerDB.
type BadgerStore struct {
	db         *badger.DB
	quotaBytes int64
	ownsDB     bool
	closed     atomic.Bool
}

// OpenBadgerStore opens (or creates) a BadgerDB in directory. An empty
// directory opens an in-memory database.
func OpenBadgerStore(directory string, quotaBytes int64) (*BadgerStore, error) {
	opts := badger.DefaultOptions(directory)
	if directory == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db, quotaBytes: quotaBytes, ownsDB: true}, nil
}

// NewBadgerStore wraps an already open database. Close leaves db open.
func NewBadgerStore(db *badger.DB, quotaBytes int64) *BadgerStore {
	return &BadgerStore{db: db, quotaBytes: quotaBytes}
}

// Get implements Store.
func (s *BadgerStore) Get(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	if s.closed.Load() {
		return "", ErrClosed
	}

	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set implements Store.
func (s *BadgerStore) Set(key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if s.closed.Load() {
		return ErrClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if s.quotaBytes > 0 {
			used, err := usedBytes(txn, key)
			if err != nil {
				return err
			}
			if used+int64(len(key)+len(value)) > s.quotaBytes {
				return ErrQuotaExceeded
			}
		}
		return txn.Set([]byte(key), []byte(value))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, badger.ErrTxnTooBig):
		return ErrQuotaExceeded
	default:
		return fmt.Errorf("set %s: %w", key, err)
	}
}

// Delete implements Store.
func (s *BadgerStore) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if s.closed.Load() {
		return ErrClosed
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Keys implements Store.
func (s *BadgerStore) Keys(prefix string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) || !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// usedBytes sums key and value sizes of every live entry except skip.
func usedBytes(txn *badger.Txn, skip string) (int64, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var total int64
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		if string(item.Key()) == skip {
			continue
		}
		total += int64(len(item.Key())) + item.ValueSize()
	}
	return total, nil
}
