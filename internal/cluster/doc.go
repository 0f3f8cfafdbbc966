// Package cluster describes the fixed membership of a shardkv cluster: which
// nodes exist, their indexes, and the addresses they listen on.
//
// # Membership
//
// A cluster is N nodes with indexes 0..N-1. Node i owns shard i, so N is also
// the shard count handed to the router. Membership is decided once at startup
// and never changes while the cluster runs; there is no join, leave or
// rebalancing.
//
//	index │ addr
//	──────┼────────────────
//	  0   │ 127.0.0.1:8001
//	  1   │ 127.0.0.1:8002
//	  2   │ 127.0.0.1:8003
//
// # Sources
//
// Membership comes from a YAML file loaded with LoadConfig, or from a
// comma-separated address list parsed with ParseNodeList, where each address's
// position is its index. The YAML form:
//
//	nodes:
//	  - index: 0
//	    addr: 127.0.0.1:8001
//	  - index: 1
//	    addr: 127.0.0.1:8002
//
// Either way the result goes through Config.Validate before anything is
// started.
package cluster
