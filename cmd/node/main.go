// Package main runs a single shardkv storage node as its own process.
//
// A node owns one shard of the key space. It listens on a TCP address and
// answers one text command per connection:
//
//	SET <key> <value>   ->  OK (from node <index>)
//	GET <key>           ->  <value> (from node <index>)
//	DEL <key>           ->  OK (from node <index>)
//
// Failures are reported as a single "ERROR: ..." line. The node closes the
// connection after every reply.
//
// Configuration:
//   - NODE_INDEX: Shard index served by this node (required)
//   - NODE_LISTEN: Listen address (default: "127.0.0.1:8001")
//   - NODE_READ_TIMEOUT: Time a client has to send its request (default: "5s")
//
// Example usage:
//
//	NODE_INDEX=0 NODE_LISTEN=127.0.0.1:8001 ./node &
//	NODE_INDEX=1 NODE_LISTEN=127.0.0.1:8002 ./node &
//	NODE_INDEX=2 NODE_LISTEN=127.0.0.1:8003 ./node &
//	CLUSTER_EMBED=false ./coordinator
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dreamware/shardkv/internal/node"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

type config struct {
	listen      string
	index       int
	readTimeout time.Duration
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logFatal("config: %v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logFatal("node[%d]: %v", cfg.index, err)
		return
	}
	log.Println("node stopped")
}

// run serves until ctx is cancelled. A clean shutdown returns nil.
func run(ctx context.Context, cfg config) error {
	n := node.New(cfg.index, node.WithReadTimeout(cfg.readTimeout))
	err := n.ListenAndServe(ctx, cfg.listen)
	if errors.Is(err, node.ErrNodeClosed) {
		return nil
	}
	return err
}

func loadConfig() (config, error) {
	cfg := config{listen: getenv("NODE_LISTEN", "127.0.0.1:8001")}

	index, err := strconv.Atoi(mustGetenv("NODE_INDEX"))
	if err != nil || index < 0 {
		return cfg, fmt.Errorf("NODE_INDEX must be a non-negative integer, got %q", os.Getenv("NODE_INDEX"))
	}
	cfg.index = index

	cfg.readTimeout, err = time.ParseDuration(getenv("NODE_READ_TIMEOUT", node.DefaultReadTimeout.String()))
	if err != nil {
		return cfg, fmt.Errorf("NODE_READ_TIMEOUT: %w", err)
	}
	return cfg, nil
}

// getenv retrieves an environment variable with a fallback default value.
// Empty values are treated as unset.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// mustGetenv retrieves a required environment variable, terminating the
// program if it's not set.
func mustGetenv(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	logFatal("missing env %s", k)
	return ""
}
