package protocol

import (
	"strings"
)

// Command is a single engine request: a name plus optional arguments. It is immutable once
// constructed.
type Command struct {
	name string
	args []string
}

// NewCommand creates a command with the specified name and arguments.
func NewCommand(name string, args ...string) Command {
	return Command{name: name, args: append([]string(nil), args...)}
}

// Name returns the command name without the request marker.
func (c Command) Name() string {
	return c.name
}

// Args returns a copy of the command arguments.
func (c Command) Args() []string {
	return append([]string(nil), c.args...)
}

// String returns the wire form of the command, excluding the line terminator.
func (c Command) String() string {
	var b strings.Builder

	b.WriteByte('>')
	b.WriteString(c.name)

	for _, arg := range c.args {
		b.WriteString(" (")
		b.WriteString(arg)
		b.WriteByte(')')
	}

	return b.String()
}

// Validate checks that the command can be framed as a single request line.
func (c Command) Validate() error {
	if c.name == "" {
		return Errorf(KindValidation, "command", "missing command name")
	}

	if strings.ContainsAny(c.name, " \t\r\n()") {
		return Errorf(KindValidation, "command", "invalid command name: name=%q", c.name)
	}

	for idx, arg := range c.args {
		if strings.ContainsAny(arg, "\r\n()") {
			return Errorf(KindValidation, "command", "invalid command argument: name=%s idx=%d", c.name, idx)
		}
	}

	return nil
}
