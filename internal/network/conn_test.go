package network

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineConnReadsLinesWithoutTerminators(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := NewLineConn(client, time.Second, time.Second)
	defer conn.Close()

	go func() {
		server.Write([]byte("example.com 50\r\nads.test 30\n---EOM---"))
		server.Close()
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "example.com 50", line)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ads.test 30", line)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "---EOM---", line)

	_, err = conn.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineConnReadTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := NewLineConn(client, 20*time.Millisecond, time.Second)
	defer conn.Close()

	_, err := conn.ReadLine()
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestLineConnWriteLine(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := NewLineConn(client, time.Second, time.Second)
	defer conn.Close()

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := server.Read(buf)
		received <- string(buf[:n])
	}()

	require.NoError(t, conn.WriteLine(">stats"))
	assert.Equal(t, ">stats\n", <-received)
}

func TestLineConnStateLifecycle(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := NewLineConn(client, 0, 0)
	assert.Equal(t, Connecting, conn.State())

	conn.setState(Ready)
	assert.Equal(t, "ready", conn.State().String())

	require.NoError(t, conn.Close())
	assert.Equal(t, Disconnected, conn.State())
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(io.EOF))
}
