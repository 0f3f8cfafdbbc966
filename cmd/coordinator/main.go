// Package main runs the shardkv coordinator: it brings up the cluster, waits
// for every node to accept connections, and then reads commands from stdin,
// routing each one to the node that owns its key.
//
// Configuration:
//   - CLUSTER_CONFIG: Path to a YAML cluster file (overrides CLUSTER_NODES)
//   - CLUSTER_NODES: Comma-separated node addresses, index = position
//     (default: "127.0.0.1:8001,127.0.0.1:8002,127.0.0.1:8003")
//   - CLUSTER_EMBED: Start the nodes in this process (default: "true")
//   - ROUTER_DIAL_TIMEOUT: Dial timeout per command (default: "5s")
//   - HEALTH_INTERVAL: Enables periodic node health checks when set
//   - CLUSTER_READY_TIMEOUT: How long to wait for nodes at startup (default: "10s")
//
// Example session:
//
//	$ ./coordinator
//	SET apple 5
//	OK (from node 2)
//	GET apple
//	5 (from node 2)
//	DEL apple
//	OK (from node 2)
//	GET apple
//	ERROR: Key not found
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dreamware/shardkv/internal/cluster"
	"github.com/dreamware/shardkv/internal/coordinator"
	"github.com/dreamware/shardkv/internal/router"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

type config struct {
	cluster        *cluster.Config
	dialTimeout    time.Duration
	healthInterval time.Duration
	readyTimeout   time.Duration
	embed          bool
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logFatal("config: %v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		logFatal("coordinator: %v", err)
		return
	}
	log.Println("coordinator stopped")
}

// run starts (or attaches to) the cluster and serves the console until in is
// exhausted or ctx is cancelled. Embedded nodes are shut down before it
// returns.
func run(ctx context.Context, cfg config, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	members := cfg.cluster
	if cfg.embed {
		c, err := coordinator.StartCluster(ctx, cfg.cluster)
		if err != nil {
			return err
		}
		defer func() {
			if err := c.Close(); err != nil {
				log.Printf("cluster shutdown: %v", err)
			}
		}()
		members = c.Config()
	}

	registry, err := coordinator.NewShardRegistry(members)
	if err != nil {
		return err
	}

	monitor := coordinator.NewHealthMonitor(cfg.healthInterval)
	readyCtx, readyCancel := context.WithTimeout(ctx, cfg.readyTimeout)
	err = monitor.WaitReady(readyCtx, registry.Nodes())
	readyCancel()
	if err != nil {
		return err
	}

	if cfg.healthInterval > 0 {
		monitor.SetOnUnhealthy(func(n cluster.NodeInfo) {
			log.Printf("commands for shard %d will fail until %s is back", n.Index, n)
		})
		go monitor.Start(ctx, registry.Nodes)
	}

	r, err := router.New(registry.NumShards(), registry.AddrForShard,
		router.WithDialTimeout(cfg.dialTimeout))
	if err != nil {
		return err
	}

	for _, a := range registry.GetAllAssignments() {
		log.Printf("shard %d -> %s", a.ShardID, a.Node.Addr)
	}
	log.Printf("coordinator ready with %d shards", registry.NumShards())

	return runConsole(ctx, r, in, out)
}

func loadConfig() (config, error) {
	var (
		cfg config
		err error
	)

	if path := getenv("CLUSTER_CONFIG", ""); path != "" {
		cfg.cluster, err = cluster.LoadConfig(path)
	} else {
		cfg.cluster, err = cluster.ParseNodeList(getenv("CLUSTER_NODES", cluster.DefaultNodes))
	}
	if err != nil {
		return cfg, err
	}

	if cfg.embed, err = strconv.ParseBool(getenv("CLUSTER_EMBED", "true")); err != nil {
		return cfg, fmt.Errorf("CLUSTER_EMBED: %w", err)
	}
	if cfg.dialTimeout, err = envDuration("ROUTER_DIAL_TIMEOUT", router.DefaultDialTimeout); err != nil {
		return cfg, err
	}
	if cfg.healthInterval, err = envDuration("HEALTH_INTERVAL", 0); err != nil {
		return cfg, err
	}
	if cfg.readyTimeout, err = envDuration("CLUSTER_READY_TIMEOUT", 10*time.Second); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := getenv(k, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", k, d)
	}
	return d, nil
}

// getenv retrieves an environment variable with a fallback default value.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
