// Package router places commands on the node that owns their key and relays
// the node's single reply line.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/dreamware/shardkv/internal/protocol"
	"github.com/dreamware/shardkv/internal/shard"
)

// DefaultDialTimeout bounds connection establishment when no option
// overrides it.
const DefaultDialTimeout = 5 * time.Second

// AddrFunc returns the address of the node serving a shard index.
type AddrFunc func(shard int) (string, error)

// StaticAddrs serves addrs[i] for shard i.
func StaticAddrs(addrs []string) AddrFunc {
	return func(i int) (string, error) {
		if i < 0 || i >= len(addrs) {
			return "", fmt.Errorf("no address for shard %d", i)
		}
		return addrs[i], nil
	}
}

// Router maps keys to nodes and performs one request/reply round trip per
// command. It holds no connections between calls and is safe for concurrent
// use.
type Router struct {
	lookup     AddrFunc
	dialer     net.Dialer
	shardCount int
	ioTimeout  time.Duration
}

// Option configures a Router.
type Option func(*Router)

// WithDialTimeout bounds connection establishment. Zero means no bound beyond
// the caller's context.
func WithDialTimeout(d time.Duration) Option {
	return func(r *Router) { r.dialer.Timeout = d }
}

// WithIOTimeout bounds the send and receive phase of each round trip. Zero,
// the default, waits for as long as the caller's context allows.
func WithIOTimeout(d time.Duration) Option {
	return func(r *Router) { r.ioTimeout = d }
}

// New creates a router over shardCount shards whose addresses come from
// lookup.
func New(shardCount int, lookup AddrFunc, opts ...Option) (*Router, error) {
	if shardCount <= 0 {
		return nil, fmt.Errorf("router: shard count must be positive, got %d", shardCount)
	}
	if lookup == nil {
		return nil, errors.New("router: nil address lookup")
	}

	r := &Router{
		lookup:     lookup,
		shardCount: shardCount,
		dialer:     net.Dialer{Timeout: DefaultDialTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ShardCount returns the number of shards the router places keys over.
func (r *Router) ShardCount() int { return r.shardCount }

// Locate returns the shard index and node address owning key.
func (r *Router) Locate(key string) (int, string, error) {
	idx := shard.ShardOf(key, r.shardCount)
	addr, err := r.lookup(idx)
	if err != nil {
		return idx, "", err
	}
	return idx, addr, nil
}

// Route sends line to the node owning its key and returns the node's reply
// without its newline. Lines with fewer than two tokens or an unknown verb
// fail with InvalidCommand and never reach the network. An unreachable node
// fails with ConnectFailed. Node-side errors such as a bad SET value are not
// Go errors: they come back as the reply text.
func (r *Router) Route(ctx context.Context, line string) (string, error) {
	_, key, err := protocol.SplitCommandLine(line)
	if err != nil {
		return "", &Error{Kind: InvalidCommand, Err: err}
	}

	idx, addr, err := r.Locate(key)
	if err != nil {
		return "", &Error{Kind: ConnectFailed, Shard: idx, Err: err}
	}

	conn, err := r.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.Printf("router: shard %d at %s unreachable: %v", idx, addr, err)
		return "", &Error{Kind: ConnectFailed, Shard: idx, Addr: addr, Err: err}
	}
	defer conn.Close()

	if r.ioTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(r.ioTimeout))
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	reply, err := roundTrip(conn, line)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &Error{Kind: Transport, Shard: idx, Addr: addr, Err: err}
	}
	return reply, nil
}

func roundTrip(conn net.Conn, line string) (string, error) {
	if _, err := io.WriteString(conn, line); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	// Half-close so the node sees the end of the request even without a
	// trailing newline.
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return "", fmt.Errorf("close write: %w", err)
		}
	}
	reply, err := protocol.ReadReply(conn)
	if err != nil {
		return "", fmt.Errorf("receive: %w", err)
	}
	return reply, nil
}
