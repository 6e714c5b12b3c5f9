package protocol

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader replays lines, then returns err.
type scriptedReader struct {
	lines []string
	err   error
}

func (r *scriptedReader) ReadLine() (string, error) {
	if len(r.lines) == 0 {
		return "", r.err
	}

	line := r.lines[0]
	r.lines = r.lines[1:]

	return line, nil
}

func TestReadReplyStopsAtSentinel(t *testing.T) {
	r := &scriptedReader{
		lines: []string{"example.com 50", "ads.test 30", "tracker.io 10", DefaultSentinel, "late.example 1"},
		err:   io.EOF,
	}

	reply, err := ReadReply(r, DefaultSentinel, 0)
	require.NoError(t, err)

	assert.Equal(t, Reply{"example.com 50", "ads.test 30", "tracker.io 10"}, reply)
	assert.Equal(t, []string{"late.example 1"}, r.lines)
}

func TestReadReplyEmpty(t *testing.T) {
	reply, err := ReadReply(&scriptedReader{lines: []string{DefaultSentinel}}, DefaultSentinel, 0)
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestReadReplyEndOfStreamBeforeSentinel(t *testing.T) {
	_, err := ReadReply(&scriptedReader{lines: []string{"example.com 50"}, err: io.EOF}, DefaultSentinel, 0)

	assert.ErrorIs(t, err, ErrConnection)
}

func TestReadReplyTimeout(t *testing.T) {
	_, err := ReadReply(&scriptedReader{err: os.ErrDeadlineExceeded}, DefaultSentinel, 0)

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestReadReplyTooLong(t *testing.T) {
	r := &scriptedReader{lines: []string{"a 1", "b 2", "c 3", DefaultSentinel}}

	_, err := ReadReply(r, DefaultSentinel, 2)
	assert.ErrorIs(t, err, ErrParse)

	r = &scriptedReader{lines: []string{"a 1", "b 2", DefaultSentinel}}

	reply, err := ReadReply(r, DefaultSentinel, 2)
	require.NoError(t, err)
	assert.Len(t, reply, 2)
}

func TestReplyErr(t *testing.T) {
	assert.NoError(t, Reply{"domains_being_blocked 120"}.Err())
	assert.NoError(t, Reply{}.Err())
	assert.NoError(t, Reply{"ERRATIC.example 3"}.Err())

	err := Reply{"ERR blocking subsystem unavailable"}.Err()
	assert.ErrorIs(t, err, ErrEngine)
	assert.Contains(t, err.Error(), "blocking subsystem unavailable")

	assert.ErrorIs(t, Reply{"ERR"}.Err(), ErrEngine)
}
