package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Storage.Load when no record exists for a key.
var ErrNotFound = errors.New("store: record not found")

// Storage persists store snapshots keyed by name.
type Storage interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

// FileStorage keeps one JSON file per key under a state directory.
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (fs *FileStorage) path(key string) string {
	return filepath.Join(fs.dir, key+".json")
}

func (fs *FileStorage) Load(key string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state for %q: %w", key, err)
	}
	return data, nil
}

func (fs *FileStorage) Save(key string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmp := fs.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state for %q: %w", key, err)
	}
	if err := os.Rename(tmp, fs.path(key)); err != nil {
		return fmt.Errorf("failed to commit state for %q: %w", key, err)
	}
	return nil
}

func (fs *FileStorage) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete state for %q: %w", key, err)
	}
	return nil
}

// MemoryStorage is an in-memory Storage used by tests.
type MemoryStorage struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string][]byte)}
}

func (ms *MemoryStorage) Load(key string) ([]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	data, ok := ms.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (ms *MemoryStorage) Save(key string, data []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	ms.records[key] = cp
	return nil
}

func (ms *MemoryStorage) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.records, key)
	return nil
}

// snapshot is the versioned envelope every persisted record is wrapped in.
// A version mismatch on load discards the record.
type snapshot struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

func saveSnapshot(s Storage, key string, version int, state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state for %q: %w", key, err)
	}
	data, err := json.Marshal(snapshot{Version: version, State: raw})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %q: %w", key, err)
	}
	return s.Save(key, data)
}

// loadSnapshot decodes a persisted record into state. Records with a
// different version are removed and reported as not found.
func loadSnapshot(s Storage, key string, version int, state interface{}) error {
	data, err := s.Load(key)
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		_ = s.Delete(key)
		return ErrNotFound
	}
	if snap.Version != version {
		_ = s.Delete(key)
		return ErrNotFound
	}
	if err := json.Unmarshal(snap.State, state); err != nil {
		_ = s.Delete(key)
		return ErrNotFound
	}
	return nil
}
