package protocol

import (
	"context"
	"errors"
	"fmt"

	"ftlbridge/internal/network"
)

// Kind classifies an engine protocol failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in this package.
	KindUnknown Kind = iota
	// KindConnection is a failure to reach the engine, or a stream that ended early.
	KindConnection
	// KindTimeout is a read or write that exceeded its deadline, or a checkout that was abandoned.
	KindTimeout
	// KindParse is a reply that violates the expected grammar.
	KindParse
	// KindValidation is a malformed request, rejected before any I/O.
	KindValidation
	// KindEngine is a reply in which the engine itself reports a failure.
	KindEngine
)

// String returns the lower-case name of the kind, suitable as a metrics tag.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind warrants another attempt on a fresh
// connection.
func (k Kind) Retryable() bool {
	return k == KindConnection || k == KindTimeout
}

// Error is a classified engine protocol error. Op names the component that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for use with errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrConnection = &Error{Kind: KindConnection}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrParse      = &Error{Kind: KindParse}
	ErrValidation = &Error{Kind: KindValidation}
	ErrEngine     = &Error{Kind: KindEngine}
)

// Errorf creates a classified error whose message is formatted per fmt.Errorf.
func Errorf(kind Kind, op string, format string, v ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, v...)}
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s error", e.Kind)
	case e.Op == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}

	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}

	return KindUnknown
}

// ioError classifies a failed read or write on an engine connection.
func ioError(op string, action string, err error) error {
	kind := KindConnection
	if network.IsTimeout(err) {
		kind = KindTimeout
	}

	return Errorf(kind, op, "%s: err=%w", action, err)
}

// checkoutError classifies a failure to obtain a connection from the pool. A caller that gave up
// waiting has timed out; anything else means the engine could not be reached.
func checkoutError(op string, err error) error {
	kind := KindConnection
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}

	return Errorf(kind, op, "error opening engine connection: err=%w", err)
}
