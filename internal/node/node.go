// Package node implements a shardkv storage node: a TCP server that owns one
// shard and serves exactly one request per connection.
//
// Each accepted connection runs on its own goroutine. The node reads one
// request line, applies it to its shard, writes one reply line and closes the
// connection on every path. Malformed input always produces an ERROR reply;
// an I/O failure on one connection is logged and affects nothing else.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/dreamware/shardkv/internal/protocol"
	"github.com/dreamware/shardkv/internal/shard"
	"github.com/dreamware/shardkv/internal/storage"
)

// DefaultReadTimeout bounds how long a connection may take to send its
// request.
const DefaultReadTimeout = 5 * time.Second

// ErrNodeClosed is returned by Serve and ListenAndServe after Close or after
// the serving context is canceled.
var ErrNodeClosed = errors.New("node: closed")

// Node owns one shard and serves it over TCP.
type Node struct {
	shard    *shard.Shard
	listener net.Listener

	readTimeout  time.Duration
	writeTimeout time.Duration

	wg     sync.WaitGroup // in-flight connections
	mu     sync.Mutex     // protects listener, closed and wg.Add
	index  int
	closed bool
}

// Option configures a Node.
type Option func(*Node)

// WithReadTimeout sets the per-connection deadline for reading the request.
// Zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(n *Node) { n.readTimeout = d }
}

// WithWriteTimeout sets the per-connection deadline for writing the reply.
// Zero, the default, disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(n *Node) { n.writeTimeout = d }
}

// New creates a node with the given cluster index and an empty shard.
func New(index int, opts ...Option) *Node {
	n := &Node{
		index:       index,
		shard:       shard.NewShard(index),
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Index returns the node's cluster index.
func (n *Node) Index() int { return n.index }

// Shard returns the shard the node serves.
func (n *Node) Shard() *shard.Shard { return n.shard }

// Addr returns the listening address, or nil before Serve has been called.
func (n *Node) Addr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// ListenAndServe listens on the TCP address addr and then calls Serve.
func (n *Node) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("node[%d] listen %s: %w", n.index, addr, err)
	}
	return n.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or Close is called,
// handling each on its own goroutine. It waits for in-flight connections
// before returning ErrNodeClosed. Any other accept failure is returned as is.
func (n *Node) Serve(ctx context.Context, ln net.Listener) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		ln.Close()
		return ErrNodeClosed
	}
	n.listener = ln
	n.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()
		ln.Close()
	})
	defer stop()

	log.Printf("node[%d] listening on %s", n.index, ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if n.isClosed() {
				n.wg.Wait()
				n.logStats()
				return ErrNodeClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Printf("node[%d] accept: %v", n.index, err)
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return fmt.Errorf("node[%d] accept: %w", n.index, err)
		}

		n.mu.Lock()
		if n.closed {
			n.mu.Unlock()
			conn.Close()
			continue
		}
		n.wg.Add(1)
		n.mu.Unlock()

		go func() {
			defer n.wg.Done()
			n.handleConn(conn)
		}()
	}
}

// Close stops accepting connections and waits for in-flight ones to finish.
func (n *Node) Close() error {
	n.mu.Lock()
	n.closed = true
	ln := n.listener
	n.mu.Unlock()

	var err error
	if ln != nil {
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	n.wg.Wait()
	return err
}

func (n *Node) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()

	if n.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(n.readTimeout))
	}

	// An empty or failed read still gets a reply, like any malformed request.
	var reply string
	line, rerr := protocol.ReadRequestLine(conn)
	if rerr != nil {
		if !errors.Is(rerr, io.EOF) {
			log.Printf("node[%d] read from %s: %v", n.index, conn.RemoteAddr(), rerr)
		}
		reply = protocol.ErrorReply(protocol.ErrInvalidCommand)
	} else {
		reply = n.Handle(line)
	}

	if n.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(n.writeTimeout))
	}
	if err := protocol.WriteReply(conn, reply); err != nil && rerr == nil {
		log.Printf("node[%d] write to %s: %v", n.index, conn.RemoteAddr(), err)
	}
}

// Handle parses one request line and applies it, returning the reply line
// without its newline.
func (n *Node) Handle(line string) string {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		return protocol.ErrorReply(err)
	}
	return n.Apply(req)
}

// Apply executes a parsed request against the node's shard.
func (n *Node) Apply(req protocol.Request) string {
	switch req.Command {
	case protocol.CmdSet:
		if err := n.shard.Set(req.Key, req.Value); err != nil {
			return n.storageError(req, err)
		}
		return protocol.OKReply(n.index)

	case protocol.CmdGet:
		v, err := n.shard.Get(req.Key)
		if err != nil {
			return n.storageError(req, err)
		}
		return protocol.ValueReply(v, n.index)

	case protocol.CmdDel:
		if err := n.shard.Delete(req.Key); err != nil {
			return n.storageError(req, err)
		}
		return protocol.OKReply(n.index)

	default:
		return protocol.ErrInvalidCommand.Reply
	}
}

func (n *Node) storageError(req protocol.Request, err error) string {
	if errors.Is(err, storage.ErrKeyNotFound) {
		return protocol.ErrKeyNotFound.Reply
	}
	// The in-memory store never fails otherwise; keep the node up if one does.
	log.Printf("node[%d] %s %q: %v", n.index, req.Command, req.Key, err)
	return protocol.ErrorReply(err)
}

func (n *Node) logStats() {
	stats := n.shard.GetStats()
	log.Printf("node[%d] stopped: keys=%d gets=%d sets=%d deletes=%d",
		n.index, stats.Storage.Keys, stats.Ops.Gets, stats.Ops.Sets, stats.Ops.Deletes)
}
