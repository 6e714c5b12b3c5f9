package protocol

import (
	"context"
	"net"

	"lib.kevinlin.info/aperture/lib"

	"ftlbridge/internal/log"
	"ftlbridge/internal/metrics"
	"ftlbridge/internal/network"
)

// Sender sends a single command and returns its complete reply.
type Sender interface {
	Send(ctx context.Context, cmd Command) (Reply, error)
}

// Client sends commands to the engine over pooled connections. Each command holds exactly one
// connection for exactly one command/reply cycle.
type Client struct {
	Upstream    network.Client
	IOHook      metrics.ConnectionIOHook
	CommandHook metrics.CommandHook
	Logger      log.Logger
	Opts        ClientOpts
}

// ClientOpts formalizes configuration options for the protocol client.
type ClientOpts struct {
	// Sentinel is the line that terminates every reply. Defaults to DefaultSentinel.
	Sentinel string
	// MaxReplyLines bounds the number of lines accepted in a single reply. Defaults to
	// DefaultMaxReplyLines.
	MaxReplyLines int
}

// NewClient creates a protocol client over the specified upstream with noop metrics hooks.
func NewClient(upstream network.Client, logger log.Logger, opts ClientOpts) *Client {
	return &Client{
		Upstream:    upstream,
		IOHook:      metrics.NewNoopConnectionIOHook(),
		CommandHook: metrics.NewNoopCommandHook(),
		Logger:      logger,
		Opts:        opts,
	}
}

// Send writes a command to the engine and reads its complete reply. A connection or timeout
// failure destroys the connection, and a failure to connect at all is treated the same; either way
// the command is retried exactly once on a freshly dialed connection; the second failure is returned as is. Parse, validation, and engine failures are
// never retried.
func (c *Client) Send(ctx context.Context, cmd Command) (Reply, error) {
	rttTimer := lib.NewStopwatch()

	if err := cmd.Validate(); err != nil {
		c.CommandHook.EmitError(cmd.Name(), KindValidation.String())
		return nil, err
	}

	reply, err := c.roundTrip(ctx, cmd)
	if err == nil {
		err = reply.Err()
	}

	if err != nil {
		c.CommandHook.EmitError(cmd.Name(), KindOf(err).String())
		c.Logger.Debug("engine_client: command failed: cmd=%s kind=%s err=%v", cmd.Name(), KindOf(err), err)

		return nil, err
	}

	c.CommandHook.EmitReplySize(int64(len(reply)), cmd.Name())
	c.CommandHook.EmitRTT(rttTimer.Elapsed(), cmd.Name())

	c.Logger.Debug(
		"engine_client: completed round trip: cmd=%s lines=%d rtt=%v",
		cmd.Name(),
		len(reply),
		rttTimer.Elapsed(),
	)

	return reply, nil
}

// roundTrip performs the command/reply cycle, wrapping the single retry.
func (c *Client) roundTrip(ctx context.Context, cmd Command) (Reply, error) {
	var addr net.Addr

	conn, err := c.Upstream.Conn(ctx)
	if err != nil {
		err = checkoutError("engine_client", err)
	} else {
		var reply Reply
		if reply, err = c.transact(conn, cmd); err == nil {
			conn.Close()
			return reply, nil
		}

		// The stream position is unknown after any failed cycle, so the connection is never reused.
		addr = conn.RemoteAddr()
		conn.Destroy()
	}

	// Nothing is retried once ctx is done.
	if !KindOf(err).Retryable() || ctx.Err() != nil {
		return nil, err
	}

	c.IOHook.EmitRetry(addr)
	c.Logger.Warn("engine_client: round trip failed; retrying on a fresh connection: cmd=%s err=%v", cmd.Name(), err)

	conn, err = c.Upstream.FreshConn(ctx)
	if err != nil {
		return nil, checkoutError("engine_client", err)
	}

	reply, err := c.transact(conn, cmd)
	if err != nil {
		conn.Destroy()
		return nil, err
	}

	conn.Close()

	return reply, nil
}

// transact writes a single command to a checked out connection and reads the reply.
func (c *Client) transact(conn *network.PersistentConn, cmd Command) (Reply, error) {
	if err := conn.WriteLine(cmd.String()); err != nil {
		c.IOHook.EmitWriteError(conn.RemoteAddr())
		return nil, ioError("engine_client", "error writing command: cmd="+cmd.Name(), err)
	}

	c.Logger.Debug("engine_client: wrote command: cmd=%s conn=%v", cmd.Name(), conn)

	reply, err := ReadReply(conn, c.sentinel(), c.maxReplyLines())
	if err != nil {
		if KindOf(err) != KindParse {
			c.IOHook.EmitReadError(conn.RemoteAddr())
		}

		return nil, err
	}

	return reply, nil
}

func (c *Client) sentinel() string {
	if c.Opts.Sentinel == "" {
		return DefaultSentinel
	}

	return c.Opts.Sentinel
}

func (c *Client) maxReplyLines() int {
	if c.Opts.MaxReplyLines <= 0 {
		return DefaultMaxReplyLines
	}

	return c.Opts.MaxReplyLines
}
