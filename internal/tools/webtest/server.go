package webtest

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"crewforge/internal/logging"
)

// ServerConfig controls how the harness launches and talks to the app
// server under test.
type ServerConfig struct {
	// Host and Port form the bind address passed to uvicorn. All
	// invocations share them, which is why launches are serialized.
	Host string
	Port int

	// UvicornBin is the server binary. It must be on PATH or absolute.
	UvicornBin string

	// StartupBudget bounds how long the harness waits for the server
	// to accept TCP connections before declaring a startup failure.
	StartupBudget time.Duration

	// ProbeInterval is the pause between readiness probes.
	ProbeInterval time.Duration

	// RequestTimeout bounds each individual test request.
	RequestTimeout time.Duration

	// TeardownTimeout bounds the kill-and-reap of the server process.
	TeardownTimeout time.Duration
}

// DefaultServerConfig returns the harness defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "127.0.0.1",
		Port:            8000,
		UvicornBin:      "uvicorn",
		StartupBudget:   5 * time.Second,
		ProbeInterval:   100 * time.Millisecond,
		RequestTimeout:  10 * time.Second,
		TeardownTimeout: 5 * time.Second,
	}
}

// Addr returns the host:port dial address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// BaseURL returns the http URL requests are issued against.
func (c ServerConfig) BaseURL() string {
	return "http://" + c.Addr()
}

// portGate serializes server launches across the process. Every run
// binds the same fixed address, so two concurrent agents would race for
// the port and one would probe the other's server.
var portGate = semaphore.NewWeighted(1)

// acquirePort blocks until the shared server port is free to bind.
func acquirePort(ctx context.Context) error {
	if portGate.TryAcquire(1) {
		return nil
	}
	logging.Server("waiting for server port to free up")
	return portGate.Acquire(ctx, 1)
}

// releasePort frees the shared server port for the next run.
func releasePort() {
	portGate.Release(1)
}

// probeTCP reports whether something is accepting connections on addr.
func probeTCP(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 250*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
