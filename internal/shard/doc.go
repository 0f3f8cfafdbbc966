// Package shard implements key placement and the per-node data partition for
// shardkv.
//
// # Placement
//
// ShardOf maps a key to a shard index in [0, shardCount) by summing the key's
// byte values and reducing modulo shardCount:
//
//	"foo" → 'f'+'o'+'o' = 102+111+111 = 324 → 324 % 3 = 0
//	"a"   → 97  → 97 % 3 = 1
//	""    → 0   → shard 0
//
// The function is deterministic across calls and processes, which is the only
// property placement needs: a key always reaches the same node for the life of
// the cluster. It is not a consistent-hashing scheme and moves almost every key
// if the shard count changes. Shard counts are fixed at cluster startup, so that
// never happens.
//
// # Shards
//
// A Shard is the partition a node serves. It wraps the node's storage.Store and
// counts the operations applied to it:
//
//	┌─────────────────────────────────────┐
//	│               SHARD                 │
//	├─────────────────────────────────────┤
//	│  ID     → shard index == node index │
//	│  Store  → storage.MemoryStore       │
//	│  Stats  → gets / sets / deletes     │
//	└─────────────────────────────────────┘
//
// The store provides all synchronization for data. Counters are updated with
// atomic operations so reading statistics never takes the store lock for
// longer than a key count.
package shard
