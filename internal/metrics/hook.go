package metrics

import (
	"fmt"
	"net"
	"os"
	"time"
)

// ConnectionLifecycleHook is a metrics hook interface for reporting events that occur during the
// lifecycle of a pooled engine connection.
type ConnectionLifecycleHook interface {
	// EmitConnectionOpen reports the event that a connection was successfully opened.
	EmitConnectionOpen(latency time.Duration, addr net.Addr)

	// EmitConnectionClose reports the event that a connection was closed.
	EmitConnectionClose(addr net.Addr)

	// EmitConnectionError reports occurrence of an error establishing a connection.
	EmitConnectionError()
}

// ConnectionIOHook is a metrics hook interface for reporting events related to I/O with an
// established engine connection.
type ConnectionIOHook interface {
	// EmitReadError reports the event that a connection read failed.
	EmitReadError(addr net.Addr)

	// EmitWriteError reports the event that a connection write failed.
	EmitWriteError(addr net.Addr)

	// EmitRetry reports the event that a command was retried on a fresh connection.
	EmitRetry(addr net.Addr)
}

// CommandHook is a metrics hook interface for reporting events and latencies related to a single
// engine command round trip.
type CommandHook interface {
	// EmitReplySize reports the number of lines in a complete engine reply.
	EmitReplySize(lines int64, command string)

	// EmitRTT reports the latency of a command round trip, including connection checkout and
	// any retry.
	EmitRTT(latency time.Duration, command string)

	// EmitError reports a command that failed, tagged with the error kind.
	EmitError(command string, kind string)
}

// AsyncStatsdConnectionLifecycleHook is an implementation of ConnectionLifecycleHook that outputs
// metrics asynchronously to statsd.
type AsyncStatsdConnectionLifecycleHook struct {
	client *StatsdClient
	source string
}

// AsyncStatsdConnectionIOHook is an implementation of ConnectionIOHook that outputs metrics
// asynchronously to statsd.
type AsyncStatsdConnectionIOHook struct {
	client *StatsdClient
	source string
}

// AsyncStatsdCommandHook is an implementation of CommandHook that outputs metrics asynchronously
// to statsd.
type AsyncStatsdCommandHook struct {
	client *StatsdClient
}

// NoopConnectionLifecycleHook implements the ConnectionLifecycleHook interface but noops on all
// emissions.
type NoopConnectionLifecycleHook struct{}

// NoopConnectionIOHook implements the ConnectionIOHook interface but noops on all emissions.
type NoopConnectionIOHook struct{}

// NoopCommandHook implements the CommandHook interface but noops on all emissions.
type NoopCommandHook struct{}

// NewAsyncStatsdConnectionLifecycleHook creates a new client with the specified source, statsd
// address, and statsd sample rate. The source denotes the entity with whom connections are opened
// and closed.
func NewAsyncStatsdConnectionLifecycleHook(source string, addr string, sampleRate float32, version string) (ConnectionLifecycleHook, error) {
	client, err := statsdClientFactory(addr, sampleRate, version)
	if err != nil {
		return nil, err
	}

	return &AsyncStatsdConnectionLifecycleHook{
		client: client,
		source: source,
	}, nil
}

// EmitConnectionOpen statsd implementation
func (h *AsyncStatsdConnectionLifecycleHook) EmitConnectionOpen(latency time.Duration, addr net.Addr) {
	go func() {
		tags := map[string]string{
			"addr":      nameFromAddr(addr),
			"transport": transportFromAddr(addr),
		}

		h.client.Count(fmt.Sprintf("event.%s.cx_open", h.source), 1, tags)

		if latency > 0 {
			h.client.Timing(fmt.Sprintf("latency.%s.cx_open", h.source), latency, tags)
		}
	}()
}

// EmitConnectionClose statsd implementation
func (h *AsyncStatsdConnectionLifecycleHook) EmitConnectionClose(addr net.Addr) {
	go h.client.Count(fmt.Sprintf("event.%s.cx_close", h.source), 1, map[string]string{
		"addr":      nameFromAddr(addr),
		"transport": transportFromAddr(addr),
	})
}

// EmitConnectionError statsd implementation
func (h *AsyncStatsdConnectionLifecycleHook) EmitConnectionError() {
	go h.client.Count(fmt.Sprintf("event.%s.cx_error", h.source), 1, nil)
}

// NewNoopConnectionLifecycleHook creates a noop implementation of ConnectionLifecycleHook.
func NewNoopConnectionLifecycleHook() ConnectionLifecycleHook {
	return &NoopConnectionLifecycleHook{}
}

// EmitConnectionOpen noops.
func (h *NoopConnectionLifecycleHook) EmitConnectionOpen(latency time.Duration, addr net.Addr) {}

// EmitConnectionClose noops.
func (h *NoopConnectionLifecycleHook) EmitConnectionClose(addr net.Addr) {}

// EmitConnectionError noops.
func (h *NoopConnectionLifecycleHook) EmitConnectionError() {}

// NewAsyncStatsdConnectionIOHook creates a new client with the specified source, statsd address,
// and statsd sample rate. The source denotes the entity with whom I/O is performed.
func NewAsyncStatsdConnectionIOHook(source string, addr string, sampleRate float32, version string) (ConnectionIOHook, error) {
	client, err := statsdClientFactory(addr, sampleRate, version)
	if err != nil {
		return nil, err
	}

	return &AsyncStatsdConnectionIOHook{
		client: client,
		source: source,
	}, nil
}

// EmitReadError statsd implementation.
func (h *AsyncStatsdConnectionIOHook) EmitReadError(addr net.Addr) {
	go h.client.Count(fmt.Sprintf("event.%s.read_error", h.source), 1, map[string]string{
		"addr":      nameFromAddr(addr),
		"transport": transportFromAddr(addr),
	})
}

// EmitWriteError statsd implementation.
func (h *AsyncStatsdConnectionIOHook) EmitWriteError(addr net.Addr) {
	go h.client.Count(fmt.Sprintf("event.%s.write_error", h.source), 1, map[string]string{
		"addr":      nameFromAddr(addr),
		"transport": transportFromAddr(addr),
	})
}

// EmitRetry statsd implementation.
func (h *AsyncStatsdConnectionIOHook) EmitRetry(addr net.Addr) {
	go h.client.Count(fmt.Sprintf("event.%s.io_retry", h.source), 1, map[string]string{
		"addr":      nameFromAddr(addr),
		"transport": transportFromAddr(addr),
	})
}

// NewNoopConnectionIOHook creates a noop implementation of ConnectionIOHook.
func NewNoopConnectionIOHook() ConnectionIOHook {
	return &NoopConnectionIOHook{}
}

// EmitReadError noops.
func (h *NoopConnectionIOHook) EmitReadError(addr net.Addr) {}

// EmitWriteError noops.
func (h *NoopConnectionIOHook) EmitWriteError(addr net.Addr) {}

// EmitRetry noops.
func (h *NoopConnectionIOHook) EmitRetry(addr net.Addr) {}

// NewAsyncStatsdCommandHook creates a new client with the specified statsd address and sample rate.
func NewAsyncStatsdCommandHook(addr string, sampleRate float32, version string) (CommandHook, error) {
	client, err := statsdClientFactory(addr, sampleRate, version)
	if err != nil {
		return nil, err
	}

	return &AsyncStatsdCommandHook{client}, nil
}

// EmitReplySize statsd implementation
func (h *AsyncStatsdCommandHook) EmitReplySize(lines int64, command string) {
	go h.client.Size("size.engine.reply_lines", lines, map[string]string{
		"command": command,
	})
}

// EmitRTT statsd implementation
func (h *AsyncStatsdCommandHook) EmitRTT(latency time.Duration, command string) {
	go h.client.Timing("latency.engine.tx_rtt", latency, map[string]string{
		"command": command,
	})
}

// EmitError statsd implementation
func (h *AsyncStatsdCommandHook) EmitError(command string, kind string) {
	go h.client.Count("event.engine.error", 1, map[string]string{
		"command": command,
		"kind":    kind,
	})
}

// NewNoopCommandHook creates a noop implementation of CommandHook.
func NewNoopCommandHook() CommandHook {
	return &NoopCommandHook{}
}

// EmitReplySize noops.
func (h *NoopCommandHook) EmitReplySize(lines int64, command string) {}

// EmitRTT noops.
func (h *NoopCommandHook) EmitRTT(latency time.Duration, command string) {}

// EmitError noops.
func (h *NoopCommandHook) EmitError(command string, kind string) {}

// statsdClientFactory creates a configured StatsdClient with reasonable defaults for the given
// statsd server address and sample rate.
func statsdClientFactory(addr string, sampleRate float32, version string) (*StatsdClient, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}

	defaultTags := map[string]string{
		"host": hostname,
	}
	if version != "" {
		defaultTags["version"] = version
	}

	return NewStatsdClient(addr, "ftlbridge", defaultTags, sampleRate)
}

// nameFromAddr returns the IP address or socket path behind a net.Addr, or null if unavailable.
func nameFromAddr(addr net.Addr) string {
	switch networkAddr := addr.(type) {
	case *net.TCPAddr:
		if networkAddr != nil {
			return networkAddr.IP.String()
		}
	case *net.UnixAddr:
		if networkAddr != nil {
			return networkAddr.Name
		}
	}

	return "null"
}

// transportFromAddr returns the transport protocol (as a string) behind a net.Addr, or null if
// unavailable.
func transportFromAddr(addr net.Addr) string {
	switch addr.(type) {
	case *net.TCPAddr:
		return "tcp"
	case *net.UnixAddr:
		return "unix"
	default:
		return "null"
	}
}
