package protocol

import (
	"errors"
	"io"
	"strings"
)

const (
	// DefaultSentinel is the line with which the engine terminates every reply.
	DefaultSentinel = "---EOM---"
	// DefaultMaxReplyLines bounds the length of a single reply.
	DefaultMaxReplyLines = 100000

	engineErrorPrefix = "ERR"
)

// LineReader reads one line at a time, without line terminators.
type LineReader interface {
	ReadLine() (string, error)
}

// Reply is the ordered list of lines of a complete engine reply, excluding the sentinel.
type Reply []string

// ReadReply reads lines from r until the sentinel line is observed. A stream that ends before the
// sentinel is a connection error and a reply longer than maxLines is a parse error; in both cases
// no partial reply is returned. A non-positive maxLines disables the bound.
func ReadReply(r LineReader, sentinel string, maxLines int) (Reply, error) {
	var reply Reply

	for {
		line, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, Errorf(
					KindConnection,
					"reply",
					"stream ended before end of reply: lines=%d",
					len(reply),
				)
			}

			return nil, ioError("reply", "error reading reply", err)
		}

		if line == sentinel {
			return reply, nil
		}

		if maxLines > 0 && len(reply) >= maxLines {
			return nil, Errorf(KindParse, "reply", "reply exceeds maximum length: max_lines=%d", maxLines)
		}

		reply = append(reply, line)
	}
}

// Err returns an engine error if the engine reported a failure in place of a reply, and nil
// otherwise.
func (r Reply) Err() error {
	if len(r) == 0 {
		return nil
	}

	first := r[0]
	if first != engineErrorPrefix && !strings.HasPrefix(first, engineErrorPrefix+" ") {
		return nil
	}

	message := strings.TrimSpace(strings.TrimPrefix(first, engineErrorPrefix))
	if message == "" {
		message = "unspecified failure"
	}

	return Errorf(KindEngine, "engine", "%s", message)
}
