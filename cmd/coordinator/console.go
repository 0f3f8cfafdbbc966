package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dreamware/shardkv/internal/protocol"
)

// Router sends one command line to the node owning its key.
type Router interface {
	Route(ctx context.Context, line string) (string, error)
}

// runConsole executes each line of in and prints the result to out. It
// returns when in is exhausted (nil, or the read error) or when ctx is done.
func runConsole(ctx context.Context, r Router, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			errc <- err
			close(lines)
		}()

		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		err = sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			fmt.Fprintln(out, execute(ctx, r, line))
		}
	}
}

// execute returns the text printed for one console line. Lines that are
// obviously malformed never reach the router.
func execute(ctx context.Context, r Router, line string) string {
	line = strings.TrimRight(line, "\r")

	fields := strings.Fields(line)
	if len(fields) < 2 || !protocol.IsCommand(fields[0]) {
		return "Invalid command"
	}

	reply, err := r.Route(ctx, line)
	if err != nil {
		return err.Error()
	}
	return reply
}
