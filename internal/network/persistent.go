package network

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"lib.kevinlin.info/aperture/lib"

	"ftlbridge/internal/data"
	"ftlbridge/internal/metrics"
)

// DefaultPoolCapacity is the number of concurrently checked out connections permitted when the
// pool is configured without an explicit capacity.
const DefaultPoolCapacity = 2

// ErrPoolClosed is returned when a connection is requested from a pool that has been closed.
var ErrPoolClosed = errors.New("pool: connection pool is closed")

// PersistentConnPool is a bounded pool of persistent, long-lived connections. Checking out a
// connection grants exclusive use of it until it is closed (returned to the pool) or destroyed
// (discarded). At most Capacity connections are checked out at any time; further callers wait for
// one to be returned.
type PersistentConnPool struct {
	dialer       func() (*LineConn, error)
	cxHook       metrics.ConnectionLifecycleHook
	staleTimeout time.Duration
	slots        chan struct{}
	conns        *data.MRUQueue[*LineConn]
	closed       atomic.Bool
}

// PersistentConnPoolOpts formalizes configuration options for a persistent connection pool.
type PersistentConnPoolOpts struct {
	// Capacity is the maximum number of connections that may be checked out at once, and the
	// maximum number of idle connections cached for reuse. Connections are dialed lazily, so
	// the pool may hold fewer.
	Capacity int
	// StaleTimeout is the duration after which an idle connection should be considered stale,
	// and thus reconnected before use. This represents the time between checkins and
	// checkouts. A non-positive value disables staleness checks.
	StaleTimeout time.Duration
}

// PersistentConn is a checked out connection. Close returns the underlying connection to the pool
// instead of closing it; Destroy discards it. Exactly one of the two takes effect; later calls are
// noops.
type PersistentConn struct {
	closer   func(conn *LineConn, destroyed bool) error
	released atomic.Bool

	*LineConn
}

// NewPersistentConnPool creates a connection pool with the specified dialer and configuration
// options. The dialer describes how a new connection is created.
func NewPersistentConnPool(dialer func() (*LineConn, error), cxHook metrics.ConnectionLifecycleHook, opts PersistentConnPoolOpts) *PersistentConnPool {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultPoolCapacity
	}

	return &PersistentConnPool{
		dialer:       dialer,
		cxHook:       cxHook,
		staleTimeout: opts.StaleTimeout,
		slots:        make(chan struct{}, opts.Capacity),
		conns:        data.NewMRUQueue[*LineConn](opts.Capacity),
	}
}

// Conn checks out a single connection, waiting for capacity if necessary. It may be a cached
// connection that already exists in the pool, or a newly dialed connection if the pool holds no
// fresh idle connection. Waiting is abandoned when ctx is done.
func (p *PersistentConnPool) Conn(ctx context.Context) (*PersistentConn, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}

	for {
		conn, timestamp, ok := p.conns.Pop()
		if !ok {
			break
		}

		if p.staleTimeout <= 0 || time.Since(timestamp) < p.staleTimeout {
			return p.checkout(conn), nil
		}

		// The connection is stale; close it and look for another. Errors closing a stale
		// connection are of no interest.
		p.cxHook.EmitConnectionClose(conn.RemoteAddr())
		go conn.Close()
	}

	return p.dial()
}

// FreshConn checks out a newly dialed connection, bypassing any cached idle connections.
func (p *PersistentConnPool) FreshConn(ctx context.Context) (*PersistentConn, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}

	return p.dial()
}

// Size reports the number of idle connections cached in the pool.
func (p *PersistentConnPool) Size() int {
	return p.conns.Size()
}

// InUse reports the number of connections currently checked out.
func (p *PersistentConnPool) InUse() int {
	return len(p.slots)
}

// Close closes every idle connection and refuses further checkouts. Connections that are checked
// out at the time of the call are closed when they are returned.
func (p *PersistentConnPool) Close() error {
	p.closed.Store(true)

	var errs []error
	for _, conn := range p.conns.Drain() {
		p.cxHook.EmitConnectionClose(conn.RemoteAddr())
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// dial creates a new connection in an already acquired slot.
func (p *PersistentConnPool) dial() (*PersistentConn, error) {
	dialTimer := lib.NewStopwatch()

	conn, err := p.dialer()
	if err != nil {
		p.release()
		p.cxHook.EmitConnectionError()
		return nil, err
	}

	p.cxHook.EmitConnectionOpen(dialTimer.Elapsed(), conn.RemoteAddr())
	conn.setState(Ready)

	return p.checkout(conn), nil
}

// checkout hands an admitted connection to a caller.
func (p *PersistentConnPool) checkout(conn *LineConn) *PersistentConn {
	conn.setState(InUse)

	return NewPersistentConn(conn, p.checkin)
}

// checkin is the closer for every checked out connection. A destroyed connection is closed; any
// other is reinserted into the pool if there is sufficient capacity, and closed otherwise. The
// slot is released on every path.
func (p *PersistentConnPool) checkin(conn *LineConn, destroyed bool) error {
	defer p.release()

	if destroyed || p.closed.Load() {
		p.cxHook.EmitConnectionClose(conn.RemoteAddr())
		return conn.Close()
	}

	conn.setState(Ready)

	if ok := p.conns.Push(conn); !ok {
		p.cxHook.EmitConnectionClose(conn.RemoteAddr())
		return conn.Close()
	}

	return nil
}

func (p *PersistentConnPool) acquire(ctx context.Context) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pool: gave up waiting for a connection: err=%w", ctx.Err())
	}
}

func (p *PersistentConnPool) release() {
	<-p.slots
}

// NewPersistentConn wraps a checked out LineConn with the specified close callback.
func NewPersistentConn(conn *LineConn, closer func(conn *LineConn, destroyed bool) error) *PersistentConn {
	return &PersistentConn{closer: closer, LineConn: conn}
}

// Close returns the connection to its pool. It is a noop if the connection was already closed or
// destroyed.
func (c *PersistentConn) Close() error {
	if !c.released.CompareAndSwap(false, true) {
		return nil
	}

	return c.closer(c.LineConn, false)
}

// Destroy discards the connection; the pool closes it instead of caching it. It is a noop if the
// connection was already closed or destroyed.
func (c *PersistentConn) Destroy() error {
	if !c.released.CompareAndSwap(false, true) {
		return nil
	}

	return c.closer(c.LineConn, true)
}

// String implements the Stringer interface for human-consumable representation.
func (c *PersistentConn) String() string {
	return fmt.Sprintf("PersistentConn{%s->%s %s}", c.LocalAddr(), c.RemoteAddr(), c.State())
}
