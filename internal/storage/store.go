package storage

import (
	"errors"
	"sort"
	"sync"
)

// ErrKeyNotFound is returned when a key doesn't exist in the store
var ErrKeyNotFound = errors.New("key not found")

// Store defines the interface for a node's key-value table
// All implementations must be thread-safe for concurrent access
type Store interface {
	// Get retrieves a value by key
	// Returns ErrKeyNotFound if the key doesn't exist
	Get(key string) (int32, error)

	// Put stores a value with the given key
	// Overwrites any existing value for the key
	Put(key string, value int32) error

	// Delete removes a key-value pair
	// Returns ErrKeyNotFound if the key doesn't exist
	Delete(key string) error

	// List returns all keys in the store in lexicographic order
	List() []string

	// Stats returns storage statistics
	Stats() StoreStats
}

// StoreStats contains statistics about the store
type StoreStats struct {
	Keys int // Number of keys
}

// MemoryStore implements Store interface with in-memory storage
// Uses sync.RWMutex for thread-safe concurrent access
type MemoryStore struct {
	data map[string]int32 // Key-value storage
	mu   sync.RWMutex     // Protects data
}

// NewMemoryStore creates a new, empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]int32),
	}
}

// Get retrieves a value by key
func (m *MemoryStore) Get(key string) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		return 0, ErrKeyNotFound
	}
	return value, nil
}

// Put inserts or overwrites key
func (m *MemoryStore) Put(key string, value int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

// Delete removes key. The presence check and the removal happen under one
// lock so two concurrent deletes of the same key cannot both succeed.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		return ErrKeyNotFound
	}
	delete(m.data, key)
	return nil
}

// List returns a sorted snapshot of the keys
func (m *MemoryStore) List() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Stats returns the current key count
func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return StoreStats{Keys: len(m.data)}
}
