// Package prefs persists user preferences as primitive key/value pairs.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrInvalidValue is returned when a value is not a float, int, string or bool.
var ErrInvalidValue = errors.New("prefs: unsupported value type")

// Store is the key/value contract the pipeline consumes.
type Store interface {
	// HasKey reports whether name has a stored value
	HasKey(name string) bool

	// Get returns the stored value for name, or def if absent
	Get(name string, def any) any

	// Set stores value under name
	Set(name string, value any) error

	// Reset removes every stored value
	Reset() error
}

// JSONStore implements Store using a JSON file for persistence.
// Every Set is written through to disk.
type JSONStore struct {
	path   string
	values map[string]any
	mu     sync.RWMutex
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int            `json:"version"`
	UpdatedAt string         `json:"updated_at"`
	Values    map[string]any `json:"values"`
}

const currentVersion = 1

// NewJSONStore opens the store at path, loading it if the file exists.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path:   path,
		values: make(map[string]any),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load preferences: %w", err)
		}
	}

	return s, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	s.values = make(map[string]any, len(stored.Values))
	for k, v := range stored.Values {
		s.values[k] = v
	}
	return nil
}

// save writes the store to disk. Caller holds the write lock.
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Values:    s.values,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// HasKey reports whether name has a stored value.
func (s *JSONStore) HasKey(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[name]
	return ok
}

// Get returns the stored value for name, or def if absent.
// Numbers read back from disk are float64; use the typed helpers.
func (s *JSONStore) Get(name string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[name]; ok {
		return v
	}
	return def
}

// Set stores value under name and persists the store.
func (s *JSONStore) Set(name string, value any) error {
	if !validValue(value) {
		return fmt.Errorf("%w: %s=%T", ErrInvalidValue, name, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	return s.save()
}

// Reset removes every stored value and persists the empty store.
func (s *JSONStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any)
	return s.save()
}

// Keys returns the stored keys in sorted order.
func (s *JSONStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the backing file path.
func (s *JSONStore) Path() string {
	return s.path
}

// MemoryStore is a non-persistent Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]any)}
}

func (m *MemoryStore) HasKey(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[name]
	return ok
}

func (m *MemoryStore) Get(name string, def any) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[name]; ok {
		return v
	}
	return def
}

func (m *MemoryStore) Set(name string, value any) error {
	if !validValue(value) {
		return fmt.Errorf("%w: %s=%T", ErrInvalidValue, name, value)
	}
	m.mu.Lock()
	m.values[name] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Reset() error {
	m.mu.Lock()
	m.values = make(map[string]any)
	m.mu.Unlock()
	return nil
}

func validValue(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, string, bool:
		return true
	}
	return false
}
