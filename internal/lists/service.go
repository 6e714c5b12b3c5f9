// Package lists serves the engine's allow, deny, and wildcard lists and its overall status.
// Modifying lists is not supported.
package lists

import (
	"context"
	"strings"

	"ftlbridge/internal/decode"
	"ftlbridge/internal/log"
	"ftlbridge/internal/protocol"
)

// Kind identifies one of the engine's domain lists.
type Kind int

const (
	Allow Kind = iota + 1
	Deny
	Wildcard
)

// String returns the engine's name for the list.
func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Wildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// ParseKind parses a list kind by name. The historical names white, black, and wild are accepted
// as aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "allow", "white", "whitelist":
		return Allow, nil
	case "deny", "black", "blacklist":
		return Deny, nil
	case "wildcard", "wild", "wildlist", "regex":
		return Wildcard, nil
	default:
		return 0, protocol.Errorf(protocol.KindValidation, "lists", "unknown list kind: kind=%q", name)
	}
}

// Service serves list contents and engine status.
type Service struct {
	engine protocol.Sender
	logger log.Logger
}

// NewService creates a list service issuing commands through engine.
func NewService(engine protocol.Sender, logger log.Logger) *Service {
	return &Service{engine: engine, logger: logger}
}

// List returns the current entries of the list of the given kind.
func (s *Service) List(ctx context.Context, kind Kind) ([]decode.ListEntry, error) {
	if kind < Allow || kind > Wildcard {
		return nil, protocol.Errorf(protocol.KindValidation, "lists", "unknown list kind: kind=%d", int(kind))
	}

	reply, err := s.engine.Send(ctx, protocol.NewCommand("list", kind.String()))
	if err != nil {
		return nil, err
	}

	entries, err := decode.DecodeListEntries(reply, kind == Wildcard)
	if err != nil {
		s.logger.Warn("lists: engine returned a malformed list: kind=%s err=%v", kind, err)
		return nil, err
	}

	return entries, nil
}

// Status returns whether the engine is enabled and whether blocking is active.
func (s *Service) Status(ctx context.Context) (decode.EngineStatus, error) {
	reply, err := s.engine.Send(ctx, protocol.NewCommand("status"))
	if err != nil {
		return decode.EngineStatus{}, err
	}

	return decode.DecodeEngineStatus(reply)
}
