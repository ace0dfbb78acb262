package kvstore

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// fileExtension marks value files inside the store directory.
const fileExtension = ".kv"

// FileStore keeps one file per key in a directory. Writes go to a temporary
// file that is renamed into place, so readers never observe a torn value.
type FileStore struct {
	directory  string
	quotaBytes int64

	mu sync.RWMutex
}

// NewFileStore creates the directory if needed. quotaBytes <= 0 means
// unlimited.
func NewFileStore(directory string, quotaBytes int64) (*FileStore, error) {
	if directory == "" {
		return nil, errors.New("store directory cannot be empty")
	}
	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{directory: directory, quotaBytes: quotaBytes}, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.keyToFilePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read value file: %w", err)
	}
	return string(data), nil
}

// Set implements Store.
func (s *FileStore) Set(key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.keyToFilePath(key)

	if s.quotaBytes > 0 {
		used, err := s.sizeLocked()
		if err != nil {
			return err
		}
		if info, statErr := os.Stat(filePath); statErr == nil {
			used -= info.Size()
		}
		if used+int64(len(value)) > s.quotaBytes {
			return ErrQuotaExceeded
		}
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write value file: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename value file: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.keyToFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete value file: %w", err)
	}
	return nil
}

// Keys implements Store.
func (s *FileStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExtension {
			continue
		}
		key, unescapeErr := url.PathUnescape(strings.TrimSuffix(entry.Name(), fileExtension))
		if unescapeErr != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Size returns the total bytes of all value files.
func (s *FileStore) Size() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sizeLocked()
}

// Directory returns the store directory.
func (s *FileStore) Directory() string {
	return s.directory
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) sizeLocked() (int64, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return 0, fmt.Errorf("failed to read store directory: %w", err)
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExtension {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// keyToFilePath maps a key onto a file name; PathEscape keeps the mapping
// reversible and free of separators.
func (s *FileStore) keyToFilePath(key string) string {
	return filepath.Join(s.directory, url.PathEscape(key)+fileExtension)
}
