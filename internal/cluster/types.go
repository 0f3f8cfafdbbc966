package cluster

import "fmt"

// NodeInfo identifies one node. It is immutable once the cluster starts.
type NodeInfo struct {
	Addr  string `yaml:"addr"`
	Index int    `yaml:"index"`
}

func (n NodeInfo) String() string {
	return fmt.Sprintf("node[%d]@%s", n.Index, n.Addr)
}
