package shard

import (
	"sync/atomic"

	"github.com/dreamware/shardkv/internal/storage"
)

// ShardOf returns the index of the shard owning key. shardCount must be
// positive.
func ShardOf(key string, shardCount int) int {
	var sum uint64
	for i := 0; i < len(key); i++ {
		sum += uint64(key[i])
	}
	return int(sum % uint64(shardCount))
}

// Shard represents the data partition owned by one node
type Shard struct {
	Store storage.Store // The node's table
	Stats *ShardStats   // Operation statistics
	ID    int           // Shard index, equal to the owning node's index
}

// ShardStats tracks operational statistics for a shard
type ShardStats struct {
	Ops     OperationStats     // Operation counts
	Storage storage.StoreStats // Storage statistics
}

// OperationStats tracks operation counts
type OperationStats struct {
	Gets    uint64 // Number of get operations
	Sets    uint64 // Number of set operations
	Deletes uint64 // Number of delete operations
}

// ShardInfo contains metadata about a shard
type ShardInfo struct {
	ID       int // Shard index
	KeyCount int // Number of keys
}

// NewShard creates a new shard with in-memory storage
func NewShard(id int) *Shard {
	return &Shard{
		ID:    id,
		Store: storage.NewMemoryStore(),
		Stats: &ShardStats{},
	}
}

// Get retrieves a value from the shard
func (s *Shard) Get(key string) (int32, error) {
	atomic.AddUint64(&s.Stats.Ops.Gets, 1)
	return s.Store.Get(key)
}

// Set stores a value in the shard
func (s *Shard) Set(key string, value int32) error {
	atomic.AddUint64(&s.Stats.Ops.Sets, 1)
	return s.Store.Put(key, value)
}

// Delete removes a key from the shard
func (s *Shard) Delete(key string) error {
	atomic.AddUint64(&s.Stats.Ops.Deletes, 1)
	return s.Store.Delete(key)
}

// ListKeys returns all keys in the shard
func (s *Shard) ListKeys() []string {
	return s.Store.List()
}

// OwnsKey reports whether key maps to this shard in a cluster of numShards
func (s *Shard) OwnsKey(key string, numShards int) bool {
	if numShards <= 0 {
		return false
	}
	return ShardOf(key, numShards) == s.ID
}

// GetStats returns a snapshot of the shard's statistics
func (s *Shard) GetStats() ShardStats {
	return ShardStats{
		Ops: OperationStats{
			Gets:    atomic.LoadUint64(&s.Stats.Ops.Gets),
			Sets:    atomic.LoadUint64(&s.Stats.Ops.Sets),
			Deletes: atomic.LoadUint64(&s.Stats.Ops.Deletes),
		},
		Storage: s.Store.Stats(),
	}
}

// Info returns metadata about the shard
func (s *Shard) Info() ShardInfo {
	return ShardInfo{
		ID:       s.ID,
		KeyCount: s.Store.Stats().Keys,
	}
}
