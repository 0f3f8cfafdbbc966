package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/dreamware/shardkv/internal/cluster"
	"github.com/dreamware/shardkv/internal/node"
)

// Cluster is a set of nodes served in-process, one accept loop per node.
type Cluster struct {
	cfg   *cluster.Config
	nodes []*node.Node
	wg    sync.WaitGroup
}

// StartCluster binds every address in cfg and then serves each node on its
// own goroutine. All listeners are bound before StartCluster returns, so the
// cluster accepts connections as soon as it has a result. If any address
// cannot be bound, the listeners already opened are closed and the error is
// returned.
//
// Config reports the addresses actually bound, which differ from cfg only for
// port 0.
func StartCluster(ctx context.Context, cfg *cluster.Config, opts ...node.Option) (*Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	listeners := make([]net.Listener, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		ln, err := net.Listen("tcp", n.Addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return nil, fmt.Errorf("start %s: %w", n, err)
		}
		listeners = append(listeners, ln)
	}

	c := &Cluster{cfg: &cluster.Config{Nodes: make([]cluster.NodeInfo, len(cfg.Nodes))}}
	for i, ln := range listeners {
		c.cfg.Nodes[i] = cluster.NodeInfo{Index: i, Addr: ln.Addr().String()}

		nd := node.New(i, opts...)
		c.nodes = append(c.nodes, nd)

		c.wg.Add(1)
		go func(ln net.Listener) {
			defer c.wg.Done()
			if err := nd.Serve(ctx, ln); err != nil && !errors.Is(err, node.ErrNodeClosed) {
				log.Printf("node[%d] stopped: %v", nd.Index(), err)
			}
		}(ln)
	}

	return c, nil
}

// Config returns the cluster membership with resolved addresses.
func (c *Cluster) Config() *cluster.Config {
	return c.cfg
}

// Nodes returns the running nodes ordered by index.
func (c *Cluster) Nodes() []*node.Node {
	return c.nodes
}

// Close stops every node and waits for their accept loops to exit.
func (c *Cluster) Close() error {
	var errs []error
	for _, n := range c.nodes {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.wg.Wait()
	return errors.Join(errs...)
}
