package cluster

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// DefaultNodes is the address list used when nothing else is configured.
const DefaultNodes = "127.0.0.1:8001,127.0.0.1:8002,127.0.0.1:8003"

var (
	// ErrNoNodes is returned when a configuration lists no nodes.
	ErrNoNodes = errors.New("cluster: no nodes configured")
	// ErrInvalidIndex is returned when node indexes are not exactly 0..N-1.
	ErrInvalidIndex = errors.New("cluster: node indexes must be 0..N-1")
	// ErrInvalidAddr is returned for empty or duplicate node addresses.
	ErrInvalidAddr = errors.New("cluster: invalid node address")
)

// Config is the static cluster membership.
type Config struct {
	Nodes []NodeInfo `yaml:"nodes"`
}

// ParseNodeList builds a Config from comma-separated addresses. Whitespace
// around each address is ignored; the address's position becomes its index.
func ParseNodeList(list string) (*Config, error) {
	cfg := &Config{}
	for _, addr := range strings.Split(list, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		cfg.Nodes = append(cfg.Nodes, NodeInfo{Index: len(cfg.Nodes), Addr: addr})
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML cluster file. Nodes are sorted by index before
// validation, so the file may list them in any order.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cluster config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse cluster config %s: %w", path, err)
	}

	slices.SortFunc(cfg.Nodes, func(a, b NodeInfo) int { return a.Index - b.Index })
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cluster config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that the config has at least one node, that Nodes[i] has
// index i, and that addresses are non-empty and unique.
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return ErrNoNodes
	}
	for i, n := range c.Nodes {
		if n.Index != i {
			return fmt.Errorf("%w: position %d has index %d", ErrInvalidIndex, i, n.Index)
		}
		if n.Addr == "" {
			return fmt.Errorf("%w: node %d has no address", ErrInvalidAddr, i)
		}
		if j := slices.IndexFunc(c.Nodes[:i], func(o NodeInfo) bool { return o.Addr == n.Addr }); j >= 0 {
			return fmt.Errorf("%w: %s used by nodes %d and %d", ErrInvalidAddr, n.Addr, j, i)
		}
	}
	return nil
}

// ShardCount is the number of shards, one per node.
func (c *Config) ShardCount() int {
	return len(c.Nodes)
}

// Addrs returns node addresses ordered by index.
func (c *Config) Addrs() []string {
	addrs := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		addrs[i] = n.Addr
	}
	return addrs
}
