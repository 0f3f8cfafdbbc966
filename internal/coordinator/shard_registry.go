// Package coordinator implements the orchestration layer for shardkv.
// See doc.go for complete package documentation.
package coordinator

import (
	"fmt"

	"github.com/dreamware/shardkv/internal/cluster"
	"github.com/dreamware/shardkv/internal/shard"
)

// ShardAssignment records which node serves a shard.
//
// Assignments are fixed when the registry is built. The registry hands out
// copies, so callers may keep or modify them freely.
type ShardAssignment struct {
	// Node is the node serving the shard. Node.Index always equals ShardID.
	Node cluster.NodeInfo

	// ShardID is the shard index, in [0, numShards).
	ShardID int
}

// ShardRegistry is the authoritative shard → node table for a running
// cluster. It is the address lookup the router uses to turn a key into a
// connection target:
//
//	┌─────────────────────────────────────┐
//	│         ShardRegistry               │
//	├─────────────────────────────────────┤
//	│  assignments: [shardID] → node      │
//	│  numShards:   len(assignments)      │
//	├─────────────────────────────────────┤
//	│  Key → ShardOf → Shard → Node addr  │
//	│  "foo" → 324%3 → 0 → 127.0.0.1:8001 │
//	└─────────────────────────────────────┘
//
// The registry is immutable after NewShardRegistry returns, so it needs no
// locking and is safe for concurrent use.
type ShardRegistry struct {
	assignments []ShardAssignment
}

// NewShardRegistry builds the registry for cfg, assigning shard i to the node
// with index i.
//
// Returns an error if cfg does not validate.
//
// Example:
//
//	cfg, _ := cluster.ParseNodeList(cluster.DefaultNodes)
//	registry, err := NewShardRegistry(cfg)
//	if err != nil {
//	    log.Fatalf("registry: %v", err)
//	}
//	addr, _ := registry.AddrForShard(registry.GetShardForKey("foo"))
func NewShardRegistry(cfg *cluster.Config) (*ShardRegistry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	assignments := make([]ShardAssignment, len(cfg.Nodes))
	for i, n := range cfg.Nodes {
		assignments[i] = ShardAssignment{ShardID: i, Node: n}
	}
	return &ShardRegistry{assignments: assignments}, nil
}

// NumShards returns the total number of shards in the cluster.
func (r *ShardRegistry) NumShards() int {
	return len(r.assignments)
}

// GetAssignment returns the assignment for shardID, or nil if shardID is out
// of range.
func (r *ShardRegistry) GetAssignment(shardID int) *ShardAssignment {
	if shardID < 0 || shardID >= len(r.assignments) {
		return nil
	}
	a := r.assignments[shardID]
	return &a
}

// GetAllAssignments returns every assignment ordered by shard ID.
func (r *ShardRegistry) GetAllAssignments() []*ShardAssignment {
	out := make([]*ShardAssignment, len(r.assignments))
	for i := range r.assignments {
		a := r.assignments[i]
		out[i] = &a
	}
	return out
}

// Nodes returns the cluster's nodes ordered by index.
func (r *ShardRegistry) Nodes() []cluster.NodeInfo {
	nodes := make([]cluster.NodeInfo, len(r.assignments))
	for i, a := range r.assignments {
		nodes[i] = a.Node
	}
	return nodes
}

// GetShardForKey returns the shard owning key.
func (r *ShardRegistry) GetShardForKey(key string) int {
	return shard.ShardOf(key, len(r.assignments))
}

// GetNodeForKey returns the node owning key.
func (r *ShardRegistry) GetNodeForKey(key string) cluster.NodeInfo {
	return r.assignments[r.GetShardForKey(key)].Node
}

// AddrForShard returns the address of the node serving shardID. Its
// signature matches router.AddrFunc.
func (r *ShardRegistry) AddrForShard(shardID int) (string, error) {
	if shardID < 0 || shardID >= len(r.assignments) {
		return "", fmt.Errorf("invalid shard ID %d, must be in range [0, %d)", shardID, len(r.assignments))
	}
	return r.assignments[shardID].Node.Addr, nil
}
