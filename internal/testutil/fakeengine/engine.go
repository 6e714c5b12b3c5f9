// Package fakeengine serves canned engine replies on a loopback listener, with scripted faults, for
// tests of the engine protocol client and everything built on it.
package fakeengine

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

// Sentinel terminates every reply written by the fake engine.
const Sentinel = "---EOM---"

// Fault is a scripted misbehavior applied to a single received command.
type Fault int

const (
	// Drop writes at most the first reply line and then closes the connection.
	Drop Fault = iota + 1
	// Stall never replies; the connection stays open until the engine is closed.
	Stall
)

// Engine is a fake engine listening on a loopback TCP address.
type Engine struct {
	listener net.Listener
	closed   chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	replies  map[string][]string
	faults   []Fault
	commands []string
	conns    []net.Conn
	accepted int
}

// Start listens on an ephemeral loopback port and serves until the test completes.
func Start(t testing.TB) *Engine {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fakeengine: error listening: err=%v", err)
	}

	e := &Engine{
		listener: listener,
		closed:   make(chan struct{}),
		replies:  make(map[string][]string),
	}

	e.wg.Add(1)
	go e.serve()

	t.Cleanup(e.Close)

	return e
}

// Addr returns the listening address in host:port form.
func (e *Engine) Addr() string {
	return e.listener.Addr().String()
}

// Reply registers the reply lines for a command in its wire form, e.g. ">top-domains (3)". The
// sentinel is appended when the reply is written.
func (e *Engine) Reply(command string, lines ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.replies[command] = lines
}

// Fail queues faults that apply, in order, to the next received commands.
func (e *Engine) Fail(faults ...Fault) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.faults = append(e.faults, faults...)
}

// Commands returns every command received so far, in order of receipt.
func (e *Engine) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]string(nil), e.commands...)
}

// Accepted returns the number of connections accepted so far.
func (e *Engine) Accepted() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.accepted
}

// Close stops the listener and closes every open connection.
func (e *Engine) Close() {
	select {
	case <-e.closed:
		return
	default:
	}

	e.mu.Lock()
	close(e.closed)
	e.listener.Close()
	for _, conn := range e.conns {
		conn.Close()
	}
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Engine) serve() {
	defer e.wg.Done()

	for {
		conn, err := e.listener.Accept()
		if err != nil {
			return
		}

		e.mu.Lock()
		select {
		case <-e.closed:
			e.mu.Unlock()
			conn.Close()
			return
		default:
		}
		e.accepted++
		e.conns = append(e.conns, conn)
		e.mu.Unlock()

		e.wg.Add(1)
		go e.handle(conn)
	}
}

func (e *Engine) handle(conn net.Conn) {
	defer e.wg.Done()
	defer conn.Close()

	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		command := strings.TrimRight(line, "\r\n")
		lines, fault := e.next(command)

		switch fault {
		case Drop:
			if len(lines) > 0 {
				conn.Write([]byte(lines[0] + "\n"))
			}
			return
		case Stall:
			<-e.closed
			return
		}

		var b strings.Builder
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteString(Sentinel)
		b.WriteByte('\n')

		if _, err := conn.Write([]byte(b.String())); err != nil {
			return
		}
	}
}

// next records a received command and returns its reply along with any queued fault.
func (e *Engine) next(command string) ([]string, Fault) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.commands = append(e.commands, command)

	var fault Fault
	if len(e.faults) > 0 {
		fault = e.faults[0]
		e.faults = e.faults[1:]
	}

	lines, ok := e.replies[command]
	if !ok {
		return []string{"ERR unknown command: " + command}, fault
	}

	return lines, fault
}
