package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/shardkv/internal/cluster"
	"github.com/dreamware/shardkv/internal/router"
)

// TestGetenv tests the getenv utility function
func TestGetenv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      string
		expected string
	}{
		{
			name:     "environment variable set",
			key:      "TEST_COORD_VAR",
			value:    "test_value",
			def:      "default",
			expected: "test_value",
		},
		{
			name:     "environment variable not set",
			key:      "UNSET_COORD_VAR",
			value:    "",
			def:      "default_value",
			expected: "default_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
				defer os.Unsetenv(tt.key)
			}

			result := getenv(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func clearClusterEnv(t *testing.T) {
	for _, k := range []string{
		"CLUSTER_CONFIG", "CLUSTER_NODES", "CLUSTER_EMBED",
		"ROUTER_DIAL_TIMEOUT", "HEALTH_INTERVAL", "CLUSTER_READY_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearClusterEnv(t)

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"127.0.0.1:8001", "127.0.0.1:8002", "127.0.0.1:8003"}, cfg.cluster.Addrs())
		assert.True(t, cfg.embed)
		assert.Equal(t, router.DefaultDialTimeout, cfg.dialTimeout)
		assert.Zero(t, cfg.healthInterval)
		assert.Equal(t, 10*time.Second, cfg.readyTimeout)
	})

	t.Run("node list and timeouts", func(t *testing.T) {
		clearClusterEnv(t)
		t.Setenv("CLUSTER_NODES", "10.0.0.1:7000, 10.0.0.2:7000")
		t.Setenv("CLUSTER_EMBED", "false")
		t.Setenv("ROUTER_DIAL_TIMEOUT", "1s")
		t.Setenv("HEALTH_INTERVAL", "30s")
		t.Setenv("CLUSTER_READY_TIMEOUT", "2m")

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1:7000", "10.0.0.2:7000"}, cfg.cluster.Addrs())
		assert.False(t, cfg.embed)
		assert.Equal(t, time.Second, cfg.dialTimeout)
		assert.Equal(t, 30*time.Second, cfg.healthInterval)
		assert.Equal(t, 2*time.Minute, cfg.readyTimeout)
	})

	t.Run("cluster file wins over node list", func(t *testing.T) {
		clearClusterEnv(t)
		path := filepath.Join(t.TempDir(), "cluster.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`nodes:
  - index: 1
    addr: 127.0.0.1:9002
  - index: 0
    addr: 127.0.0.1:9001
`), 0o600))
		t.Setenv("CLUSTER_CONFIG", path)
		t.Setenv("CLUSTER_NODES", "127.0.0.1:1")

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"127.0.0.1:9001", "127.0.0.1:9002"}, cfg.cluster.Addrs())
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := []struct {
			name  string
			key   string
			value string
		}{
			{name: "duplicate nodes", key: "CLUSTER_NODES", value: "127.0.0.1:1,127.0.0.1:1"},
			{name: "missing cluster file", key: "CLUSTER_CONFIG", value: "/nonexistent/cluster.yaml"},
			{name: "embed flag", key: "CLUSTER_EMBED", value: "maybe"},
			{name: "dial timeout", key: "ROUTER_DIAL_TIMEOUT", value: "fast"},
			{name: "negative health interval", key: "HEALTH_INTERVAL", value: "-1s"},
			{name: "ready timeout", key: "CLUSTER_READY_TIMEOUT", value: "10"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				clearClusterEnv(t)
				t.Setenv(tt.key, tt.value)

				_, err := loadConfig()
				assert.Error(t, err)
			})
		}
	})
}

// fakeRouter records routed lines and answers from a table.
type fakeRouter struct {
	replies map[string]string
	err     error
	mu      sync.Mutex
	routed  []string
}

func (f *fakeRouter) Route(_ context.Context, line string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routed = append(f.routed, line)
	if f.err != nil {
		return "", f.err
	}
	return f.replies[line], nil
}

func TestExecute(t *testing.T) {
	r := &fakeRouter{replies: map[string]string{
		"SET a 1": "OK (from node 1)",
		"GET a":   "1 (from node 1)",
		"SET a x": "ERROR: Invalid SET command",
	}}

	tests := []struct {
		name   string
		line   string
		want   string
		routed bool
	}{
		{name: "set", line: "SET a 1", want: "OK (from node 1)", routed: true},
		{name: "get", line: "GET a", want: "1 (from node 1)", routed: true},
		{name: "node error is printed verbatim", line: "SET a x", want: "ERROR: Invalid SET command", routed: true},
		{name: "carriage return stripped", line: "GET a\r", want: "1 (from node 1)", routed: true},
		{name: "empty line", line: "", want: "Invalid command"},
		{name: "single token", line: "GET", want: "Invalid command"},
		{name: "unknown command", line: "PUT a 1", want: "Invalid command"},
		{name: "lowercase command", line: "get a", want: "Invalid command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(r.routed)
			assert.Equal(t, tt.want, execute(context.Background(), r, tt.line))
			assert.Equal(t, tt.routed, len(r.routed) > before)
		})
	}
}

func TestExecuteRouterErrors(t *testing.T) {
	t.Run("connect failure", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		r, err := router.New(1, router.StaticAddrs([]string{addr}),
			router.WithDialTimeout(500*time.Millisecond))
		require.NoError(t, err)

		assert.Equal(t, "Cannot connect to server", execute(context.Background(), r, "GET a"))
	})

	t.Run("other errors print their message", func(t *testing.T) {
		r := &fakeRouter{err: errors.New("boom")}
		assert.Equal(t, "boom", execute(context.Background(), r, "GET a"))
	})
}

func TestRunConsole(t *testing.T) {
	t.Run("one output line per input line", func(t *testing.T) {
		r := &fakeRouter{replies: map[string]string{"GET a": "1 (from node 0)"}}
		var out bytes.Buffer

		err := runConsole(context.Background(), r, strings.NewReader("GET a\nnope\nGET a"), &out)
		require.NoError(t, err)
		assert.Equal(t, "1 (from node 0)\nInvalid command\n1 (from node 0)\n", out.String())
	})

	t.Run("returns on cancel while waiting for input", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- runConsole(ctx, &fakeRouter{}, pr, io.Discard) }()

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("runConsole did not return after cancel")
		}
	})

	t.Run("read error is returned", func(t *testing.T) {
		pr, pw := io.Pipe()
		readErr := errors.New("stdin broke")
		go pw.CloseWithError(readErr)

		err := runConsole(context.Background(), &fakeRouter{}, pr, io.Discard)
		assert.ErrorIs(t, err, readErr)
	})
}

// loopbackNodes reserves n free loopback ports for an embedded cluster.
func loopbackNodes(t *testing.T, n int) *cluster.Config {
	t.Helper()
	cfg := &cluster.Config{}
	for i := 0; i < n; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		cfg.Nodes = append(cfg.Nodes, cluster.NodeInfo{Index: i, Addr: ln.Addr().String()})
		require.NoError(t, ln.Close())
	}
	return cfg
}

func TestRun(t *testing.T) {
	t.Run("embedded cluster session", func(t *testing.T) {
		cfg := config{
			cluster:        loopbackNodes(t, 3),
			embed:          true,
			dialTimeout:    time.Second,
			healthInterval: 20 * time.Millisecond,
			readyTimeout:   2 * time.Second,
		}
		// "foo" sums to 324, which is shard 0 of 3.
		in := strings.NewReader("SET foo 1\nGET foo\nDEL foo\nGET foo\nDEL foo\nSET foo\nbad\n")
		var out bytes.Buffer

		require.NoError(t, run(context.Background(), cfg, in, &out))
		assert.Equal(t, strings.Join([]string{
			"OK (from node 0)",
			"1 (from node 0)",
			"OK (from node 0)",
			"ERROR: Key not found",
			"ERROR: Key not found",
			"ERROR: Invalid SET command",
			"Invalid command",
		}, "\n")+"\n", out.String())
	})

	t.Run("external nodes never come up", func(t *testing.T) {
		cfg := config{
			cluster:      loopbackNodes(t, 2),
			embed:        false,
			dialTimeout:  time.Second,
			readyTimeout: 150 * time.Millisecond,
		}

		err := run(context.Background(), cfg, strings.NewReader(""), io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nodes not ready")
	})

	t.Run("address already in use", func(t *testing.T) {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer taken.Close()

		cfg := config{
			cluster: &cluster.Config{Nodes: []cluster.NodeInfo{
				{Index: 0, Addr: taken.Addr().String()},
			}},
			embed:        true,
			readyTimeout: time.Second,
		}

		err = run(context.Background(), cfg, strings.NewReader(""), io.Discard)
		assert.Error(t, err)
	})
}
