package router

import (
	"fmt"

	"github.com/dreamware/shardkv/internal/protocol"
)

// ErrorKind classifies routing failures.
type ErrorKind int

const (
	// InvalidCommand means the line was rejected before any node was contacted.
	InvalidCommand ErrorKind = iota + 1
	// ConnectFailed means the owning node could not be reached.
	ConnectFailed
	// Transport means the connection broke after it was established.
	Transport
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidCommand:
		return "InvalidCommand"
	case ConnectFailed:
		return "ConnectFailed"
	case Transport:
		return "Transport"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by Route. Its message is meant for the user; the
// underlying cause is available through errors.Unwrap.
type Error struct {
	Err   error
	Addr  string
	Kind  ErrorKind
	Shard int
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidCommand:
		return "Invalid command"
	case ConnectFailed:
		return "Cannot connect to server"
	default:
		return fmt.Sprintf("transport error with shard %d at %s: %v", e.Shard, e.Addr, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidCommand = &Error{Kind: InvalidCommand, Err: protocol.ErrInvalidCommand}
	ErrConnectFailed  = &Error{Kind: ConnectFailed}
	ErrTransport      = &Error{Kind: Transport}
)
