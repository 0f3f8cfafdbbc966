// Package coordinator implements the orchestration layer for shardkv: the
// fixed shard → node table, node health probing, and in-process cluster
// bootstrap.
//
// # Overview
//
// The coordinator decides nothing at runtime. Membership is read once from
// configuration, every node gets shard i where i is its index, and that
// assignment holds until the process exits. What remains for the coordinator
// is to start the nodes, confirm they accept connections, and hand the router
// a way to turn a shard index into an address.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          COORDINATOR                │
//	├─────────────────────────────────────┤
//	│                                     │
//	│  ┌──────────────────────────────┐   │
//	│  │   ShardRegistry              │   │
//	│  │   - shard i → node i         │   │
//	│  │   - AddrForShard (router)    │   │
//	│  │   - immutable, lock-free     │   │
//	│  └──────────────────────────────┘   │
//	│                                     │
//	│  ┌──────────────────────────────┐   │
//	│  │   HealthMonitor              │   │
//	│  │   - TCP dial probes          │   │
//	│  │   - WaitReady at startup     │   │
//	│  │   - periodic status logging  │   │
//	│  └──────────────────────────────┘   │
//	│                                     │
//	│  ┌──────────────────────────────┐   │
//	│  │   Cluster                    │   │
//	│  │   - binds all node addresses │   │
//	│  │   - one accept loop per node │   │
//	│  │   - coordinated shutdown     │   │
//	│  └──────────────────────────────┘   │
//	│                                     │
//	└─────────────────────────────────────┘
//
// # Bootstrap Sequence
//
//  1. Load membership (cluster.LoadConfig or cluster.ParseNodeList).
//  2. StartCluster binds every address, then serves each node; or, with
//     external nodes, skip this step.
//  3. NewShardRegistry builds the table from the bound addresses.
//  4. HealthMonitor.WaitReady polls registry.Nodes() until each node accepts
//     a connection.
//  5. router.New takes registry.NumShards() and registry.AddrForShard, and
//     the command source starts reading lines.
//
// No command is accepted before step 4 succeeds.
//
// # Health Checks
//
// A probe is a TCP connect followed by an immediate close. Nodes read nothing
// from such a connection and answer it with ERROR: Invalid command without
// logging, so probes never touch a node's table. After three consecutive failures a node is
// marked unhealthy and the OnUnhealthy callback fires once; a single success
// restores it. There is no failover: requests for an unhealthy node's keys
// keep failing with ConnectFailed until it returns.
//
// # Limitations
//
//   - Membership cannot change while the cluster runs.
//   - Changing the node count moves almost every key, and data does not
//     follow.
//   - Nothing is replicated; losing a node loses its table.
//
// # See Also
//
//   - internal/cluster: membership types and configuration loading
//   - internal/node: the per-node TCP server
//   - internal/router: key placement and the request round trip
//   - cmd/coordinator: bootstrap plus interactive command source
package coordinator
