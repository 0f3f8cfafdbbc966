// Package coordinator provides the cluster coordination functionality.
// This file implements health monitoring for the cluster's nodes.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/shardkv/internal/cluster"
)

// HealthStatus is the monitor's view of a node.
type HealthStatus string

const (
	StatusUnknown   HealthStatus = "unknown"
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// NodeHealth tracks the health status of a single node in the cluster.
// It maintains the current status, last successful check time, and failure count.
// Thread-safe: Protected by HealthMonitor's mutex when accessed.
type NodeHealth struct {
	LastCheck        time.Time        // Timestamp of the last health check attempt
	LastHealthy      time.Time        // Timestamp of the last successful health check
	Node             cluster.NodeInfo // The node being tracked
	Status           HealthStatus     // Current status
	ConsecutiveFails int              // Number of consecutive failed health checks
}

// HealthMonitor probes nodes by opening a TCP connection to their address and
// closing it without sending a request. Nodes answer such an empty
// connection with an invalid-command reply that nobody reads.
//
// It serves two purposes: WaitReady blocks bootstrap until every node accepts
// connections, and Start runs periodic checks that log nodes going down and
// coming back. There is no failover, so an unhealthy node only produces log
// lines and a callback.
// Thread-safe: All methods are safe for concurrent access.
type HealthMonitor struct {
	nodes       map[int]*NodeHealth         // Current health status per node index
	checkFunc   func(addr string) error     // Function to perform health check
	onUnhealthy func(node cluster.NodeInfo) // Callback when node becomes unhealthy
	ctx         context.Context             // Context for cancellation
	cancel      context.CancelFunc          // Cancel function for shutdown
	interval    time.Duration               // How often to check node health
	timeout     time.Duration               // Dial timeout for health checks
	mu          sync.RWMutex                // Protects nodes map
	wg          sync.WaitGroup              // Wait group for graceful shutdown
	maxFailures int                         // Failures before marking unhealthy
}

// NewHealthMonitor creates a new health monitor with the specified check interval.
// Nodes are marked unhealthy after 3 consecutive failures.
//
// Example:
//
//	monitor := NewHealthMonitor(5 * time.Second)
//	go monitor.Start(ctx, registry.Nodes)
func NewHealthMonitor(interval time.Duration) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	h := &HealthMonitor{
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		nodes:       make(map[int]*NodeHealth),
		ctx:         ctx,
		cancel:      cancel,
	}
	h.checkFunc = h.defaultHealthCheck
	return h
}

// SetOnUnhealthy sets the callback invoked when a node becomes unhealthy.
// The callback runs on its own goroutine.
func (h *HealthMonitor) SetOnUnhealthy(callback func(node cluster.NodeInfo)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUnhealthy = callback
}

// SetCheckFunction overrides the default TCP dial check.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(addr string) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkFunc = checkFunc
}

// Start runs health checks every interval until ctx is canceled or Stop is
// called. It blocks; run it on its own goroutine.
func (h *HealthMonitor) Start(ctx context.Context, nodeProvider func() []cluster.NodeInfo) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	log.Printf("health monitor started with interval %v", h.interval)

	h.checkAllNodes(nodeProvider())

	for {
		select {
		case <-ticker.C:
			h.checkAllNodes(nodeProvider())
		case <-ctx.Done():
			log.Println("health monitor stopping due to context cancellation")
			return
		case <-h.ctx.Done():
			log.Println("health monitor stopping due to internal cancellation")
			return
		}
	}
}

// Stop cancels monitoring and waits for Start to return.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
}

// WaitReady probes every node until all of them pass a check, polling every
// interval. It returns nil once all nodes are healthy, or an error listing
// the nodes still failing when ctx ends.
func (h *HealthMonitor) WaitReady(ctx context.Context, nodes []cluster.NodeInfo) error {
	poll := h.interval
	if poll <= 0 || poll > 100*time.Millisecond {
		poll = 50 * time.Millisecond
	}

	pending := append([]cluster.NodeInfo(nil), nodes...)
	for {
		var lastErr error
		still := pending[:0]
		for _, n := range pending {
			if err := h.check(n.Addr); err != nil {
				lastErr = err
				still = append(still, n)
			}
		}
		pending = still
		if len(pending) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			names := make([]string, len(pending))
			for i, n := range pending {
				names[i] = n.String()
			}
			return fmt.Errorf("nodes not ready: %s: %w", strings.Join(names, ", "),
				errors.Join(ctx.Err(), lastErr))
		case <-time.After(poll):
		}
	}
}

func (h *HealthMonitor) check(addr string) error {
	h.mu.RLock()
	fn := h.checkFunc
	h.mu.RUnlock()
	return fn(addr)
}

// checkAllNodes checks every provided node and forgets nodes that are no
// longer provided.
func (h *HealthMonitor) checkAllNodes(nodes []cluster.NodeInfo) {
	current := make(map[int]bool)
	for _, n := range nodes {
		current[n.Index] = true
		h.checkNode(n)
	}

	h.mu.Lock()
	for idx := range h.nodes {
		if !current[idx] {
			delete(h.nodes, idx)
			log.Printf("removed node[%d] from health monitoring", idx)
		}
	}
	h.mu.Unlock()
}

// checkNode performs a health check on a single node and updates its record,
// firing onUnhealthy on the transition to unhealthy.
func (h *HealthMonitor) checkNode(node cluster.NodeInfo) {
	h.mu.Lock()
	health, exists := h.nodes[node.Index]
	if !exists {
		health = &NodeHealth{
			Node:        node,
			Status:      StatusUnknown,
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		h.nodes[node.Index] = health
	}
	h.mu.Unlock()

	err := h.check(node.Addr)

	h.mu.Lock()
	defer h.mu.Unlock()

	health.LastCheck = time.Now()

	if err != nil {
		health.ConsecutiveFails++
		log.Printf("health check failed for %s (attempt %d/%d): %v",
			node, health.ConsecutiveFails, h.maxFailures, err)

		if health.ConsecutiveFails >= h.maxFailures {
			previous := health.Status
			health.Status = StatusUnhealthy

			if previous != StatusUnhealthy {
				log.Printf("%s marked as unhealthy after %d failures", node, health.ConsecutiveFails)
				if h.onUnhealthy != nil {
					go h.onUnhealthy(node)
				}
			}
		}
		return
	}

	if health.Status == StatusUnhealthy {
		log.Printf("%s recovered and is now healthy", node)
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = time.Now()
}

// defaultHealthCheck dials addr over TCP and closes the connection.
func (h *HealthMonitor) defaultHealthCheck(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, h.timeout)
	if err != nil {
		return fmt.Errorf("health check dial failed: %w", err)
	}
	return conn.Close()
}

// GetNodeHealth returns a copy of the health record for node index, or nil if
// the node is not being monitored.
func (h *HealthMonitor) GetNodeHealth(index int) *NodeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.nodes[index]
	if !exists {
		return nil
	}
	cp := *health
	return &cp
}

// GetAllNodeHealth returns copies of all health records keyed by node index.
func (h *HealthMonitor) GetAllNodeHealth() map[int]*NodeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[int]*NodeHealth, len(h.nodes))
	for idx, health := range h.nodes {
		cp := *health
		result[idx] = &cp
	}
	return result
}

// IsHealthy reports whether node index passed its most recent checks.
// Returns false if the node is not being monitored.
func (h *HealthMonitor) IsHealthy(index int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.nodes[index]
	return exists && health.Status == StatusHealthy
}
