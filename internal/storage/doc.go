// Package storage provides the per-node table behind shardkv: a concurrent
// mapping from string keys to 32-bit signed integer values.
//
// # Overview
//
// Every node owns exactly one table. The table is never shared across nodes
// and is never reachable except through the Store interface, whose
// implementations carry their own synchronization.
//
//	┌─────────────────────────────────────┐
//	│            MemoryStore              │
//	├─────────────────────────────────────┤
//	│  data: map[string]int32             │
//	│  mu:   sync.RWMutex                 │
//	├─────────────────────────────────────┤
//	│  Get    → RLock  (shared)           │
//	│  Put    → Lock   (exclusive)        │
//	│  Delete → Lock   (exclusive)        │
//	└─────────────────────────────────────┘
//
// # Concurrency
//
// Writers hold the exclusive lock, readers the shared lock. A reader therefore
// always observes a value that was completely written, and no two mutations
// interleave. Operations on different keys carry no ordering relationship, and
// concurrent operations on the same key race: the table only promises that each
// individual operation is atomic.
//
// # Lifecycle
//
// Tables start empty and live only as long as the process. There is no
// persistence, eviction or expiry.
//
// # Errors
//
// ErrKeyNotFound is returned by Get and Delete when the key is absent. Callers
// compare with errors.Is.
//
// # Example
//
//	store := storage.NewMemoryStore()
//	_ = store.Put("foo", 42)
//
//	v, err := store.Get("foo") // 42, nil
//	err = store.Delete("foo")  // nil
//	err = store.Delete("foo")  // storage.ErrKeyNotFound
package storage
