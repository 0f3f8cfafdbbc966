package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// MaxRequestSize bounds the bytes a server reads for one request.
const MaxRequestSize = 1024

// maxEmptyReads bounds consecutive reads returning no data and no error.
const maxEmptyReads = 100

// Command is a request verb.
type Command string

const (
	CmdSet Command = "SET"
	CmdGet Command = "GET"
	CmdDel Command = "DEL"
)

// Commands lists every verb a node understands.
var Commands = []Command{CmdSet, CmdGet, CmdDel}

// IsCommand reports whether s names a known verb. Matching is case-sensitive.
func IsCommand(s string) bool {
	return slices.Contains(Commands, Command(s))
}

// Kind classifies protocol failures.
type Kind int

const (
	KindInvalidCommand Kind = iota + 1
	KindKeyNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCommand:
		return "InvalidCommand"
	case KindKeyNotFound:
		return "KeyNotFound"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a failure that is reported to the client as Reply.
type Error struct {
	Reply string
	Kind  Kind
}

func (e *Error) Error() string { return e.Reply }

// Is matches any *Error of the same Kind, so every per-command invalid error
// satisfies errors.Is(err, ErrInvalidCommand).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidCommand = &Error{Kind: KindInvalidCommand, Reply: "ERROR: Invalid command"}
	ErrInvalidSet     = &Error{Kind: KindInvalidCommand, Reply: "ERROR: Invalid SET command"}
	ErrInvalidGet     = &Error{Kind: KindInvalidCommand, Reply: "ERROR: Invalid GET command"}
	ErrInvalidDel     = &Error{Kind: KindInvalidCommand, Reply: "ERROR: Invalid DEL command"}
	ErrKeyNotFound    = &Error{Kind: KindKeyNotFound, Reply: "ERROR: Key not found"}
)

// ErrEmptyReply is returned by ReadReply when the server closed the
// connection without sending anything.
var ErrEmptyReply = errors.New("empty reply")

// Request is one parsed command. Value is only meaningful for CmdSet.
type Request struct {
	Command Command
	Key     string
	Value   int32
}

// String renders the request as a request line without the trailing newline.
func (r Request) String() string {
	if r.Command == CmdSet {
		return fmt.Sprintf("%s %s %d", r.Command, r.Key, r.Value)
	}
	return fmt.Sprintf("%s %s", r.Command, r.Key)
}

// ParseRequest parses a request line as a node does. The value of SET must be
// a 32-bit signed integer; a bad value and a wrong token count both produce
// ErrInvalidSet.
func ParseRequest(line string) (Request, error) {
	parts := strings.Split(line, " ")

	switch Command(parts[0]) {
	case CmdSet:
		if len(parts) != 3 {
			return Request{}, ErrInvalidSet
		}
		v, err := strconv.ParseInt(parts[2], 10, 32)
		if err != nil {
			return Request{}, ErrInvalidSet
		}
		return Request{Command: CmdSet, Key: parts[1], Value: int32(v)}, nil
	case CmdGet:
		if len(parts) != 2 {
			return Request{}, ErrInvalidGet
		}
		return Request{Command: CmdGet, Key: parts[1]}, nil
	case CmdDel:
		if len(parts) != 2 {
			return Request{}, ErrInvalidDel
		}
		return Request{Command: CmdDel, Key: parts[1]}, nil
	default:
		return Request{}, ErrInvalidCommand
	}
}

// SplitCommandLine extracts the verb and key a router needs to place a
// command. It only checks that at least two tokens exist and that the verb is
// known; arity and value checks are left to the node.
func SplitCommandLine(line string) (Command, string, error) {
	parts := strings.Split(line, " ")
	if len(parts) < 2 {
		return "", "", ErrInvalidCommand
	}
	if !IsCommand(parts[0]) {
		return "", "", ErrInvalidCommand
	}
	return Command(parts[0]), parts[1], nil
}

// OKReply acknowledges a SET or DEL served by node.
func OKReply(node int) string {
	return fmt.Sprintf("OK (from node %d)", node)
}

// ValueReply reports the value a GET found on node.
func ValueReply(value int32, node int) string {
	return fmt.Sprintf("%d (from node %d)", value, node)
}

// ErrorReply returns the wire text for err. Errors that are not *Error are
// reported as ErrInvalidCommand.
func ErrorReply(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Reply
	}
	return ErrInvalidCommand.Reply
}

// ReadRequestLine performs a single read of up to MaxRequestSize bytes and
// treats whatever arrived as the request, cut at the first newline. It never
// waits for more data once some has arrived, so a client that sends its
// command without a newline and keeps the connection open is answered
// immediately. The error is only returned when nothing arrived.
func ReadRequestLine(r io.Reader) (string, error) {
	buf := make([]byte, MaxRequestSize)
	for i := 0; i < maxEmptyReads; i++ {
		n, err := r.Read(buf)
		if n > 0 {
			return cleanLine(buf[:n]), nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", io.ErrNoProgress
}

func cleanLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	b = bytes.Trim(b, "\x00")
	b = bytes.TrimSuffix(b, []byte{'\r'})
	return strings.ToValidUTF8(string(b), "�")
}

// WriteReply writes reply followed by a newline.
func WriteReply(w io.Writer, reply string) error {
	_, err := io.WriteString(w, reply+"\n")
	return err
}

// ReadReply reads one reply line and returns it without its line ending. A
// reply cut short by EOF is returned as is.
func ReadReply(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if line == "" {
		return "", ErrEmptyReply
	}
	return strings.TrimRight(line, "\r\n"), nil
}
