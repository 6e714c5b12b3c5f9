package network

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"ftlbridge/internal/metrics"
)

// Client defines the interface for a pooled engine client.
type Client interface {
	// Conn checks out a single persistent connection.
	Conn(ctx context.Context) (*PersistentConn, error)

	// FreshConn checks out a newly dialed connection, bypassing idle cached connections.
	FreshConn(ctx context.Context) (*PersistentConn, error)

	// Stats returns historical client stats.
	Stats() Stats

	// Close releases every pooled connection.
	Close() error
}

// Stats formalizes stats tracked per-client.
type Stats struct {
	// SuccessfulConnections is the number of connections that the client has successfully
	// provided.
	SuccessfulConnections int `json:"successful_connections"`
	// FailedConnections is the number of times that the client has failed to provide a
	// connection.
	FailedConnections int `json:"failed_connections"`
	// IdleConnections is the number of connections cached in the pool at the time of the call.
	IdleConnections int `json:"idle_connections"`
	// ActiveConnections is the number of connections checked out at the time of the call.
	ActiveConnections int `json:"active_connections"`
}

// EngineClient connects to the engine over a unix domain socket or TCP, recycling connections in a
// bounded pool.
type EngineClient struct {
	network    string
	addr       string
	pool       *PersistentConnPool
	stats      Stats
	statsMutex sync.RWMutex
}

// EngineClientOpts formalizes engine client configuration options.
type EngineClientOpts struct {
	// PoolOpts are connection pool-specific options.
	PoolOpts PersistentConnPoolOpts
	// ConnectTimeout is the timeout associated with establishing a connection with the engine.
	ConnectTimeout time.Duration
	// ReadTimeout is the timeout associated with reading each reply line.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout associated with each write to the engine.
	WriteTimeout time.Duration
}

// NewEngineClient creates an EngineClient for the engine listening at addr on the given network,
// which must be "unix" or "tcp". No connection is established until one is first requested.
func NewEngineClient(network string, addr string, cxHook metrics.ConnectionLifecycleHook, opts EngineClientOpts) (*EngineClient, error) {
	switch network {
	case "unix", "tcp":
	default:
		return nil, fmt.Errorf("client: unsupported network: network=%s", network)
	}

	if addr == "" {
		return nil, fmt.Errorf("client: missing engine address")
	}

	dialer := func() (*LineConn, error) {
		conn, err := net.DialTimeout(network, addr, opts.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("client: error establishing connection: err=%w", err)
		}

		return NewLineConn(conn, opts.ReadTimeout, opts.WriteTimeout), nil
	}

	return &EngineClient{
		network: network,
		addr:    addr,
		pool:    NewPersistentConnPool(dialer, cxHook, opts.PoolOpts),
	}, nil
}

// Conn checks out a single persistent connection from the pool.
func (c *EngineClient) Conn(ctx context.Context) (*PersistentConn, error) {
	conn, err := c.pool.Conn(ctx)
	c.record(err)

	return conn, err
}

// FreshConn checks out a newly dialed connection from the pool.
func (c *EngineClient) FreshConn(ctx context.Context) (*PersistentConn, error) {
	conn, err := c.pool.FreshConn(ctx)
	c.record(err)

	return conn, err
}

// Stats returns current client stats.
func (c *EngineClient) Stats() Stats {
	c.statsMutex.RLock()
	stats := c.stats
	c.statsMutex.RUnlock()

	stats.IdleConnections = c.pool.Size()
	stats.ActiveConnections = c.pool.InUse()

	return stats
}

// Close closes the underlying pool.
func (c *EngineClient) Close() error {
	return c.pool.Close()
}

// String returns a string representation of the client.
func (c *EngineClient) String() string {
	return fmt.Sprintf("EngineClient{addr: %s:%s, idle: %d}", c.network, c.addr, c.pool.Size())
}

func (c *EngineClient) record(err error) {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()

	if err != nil {
		c.stats.FailedConnections++
	} else {
		c.stats.SuccessfulConnections++
	}
}
