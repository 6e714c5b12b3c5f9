package decode

import (
	"ftlbridge/internal/protocol"
)

// DecodeStatusFlags decodes "name value" lines, where value is a boolean spelling such as
// enabled/disabled or active/inactive.
func DecodeStatusFlags(reply protocol.Reply) ([]StatusFlag, error) {
	return decodeLines(reply, func(fields []string, line int) (StatusFlag, error) {
		if err := requireFields(fields, 2, line); err != nil {
			return StatusFlag{}, err
		}

		enabled, err := parseFlag(fields[1], line)
		if err != nil {
			return StatusFlag{}, err
		}

		return StatusFlag{Name: fields[0], Enabled: enabled}, nil
	})
}

// FlagMap indexes status flags by name.
func FlagMap(flags []StatusFlag) map[string]bool {
	m := make(map[string]bool, len(flags))
	for _, flag := range flags {
		m[flag.Name] = flag.Enabled
	}

	return m
}

// EngineStatus is the engine's overall state.
type EngineStatus struct {
	// Enabled reports whether the engine is running with filtering enabled.
	Enabled bool `json:"enabled"`
	// Blocking reports whether blocking is currently active.
	Blocking bool `json:"blocking"`
}

// DecodeEngineStatus decodes the "status" and "blocking" flags, both of which are required.
func DecodeEngineStatus(reply protocol.Reply) (EngineStatus, error) {
	flags, err := DecodeStatusFlags(reply)
	if err != nil {
		return EngineStatus{}, err
	}

	m := FlagMap(flags)

	enabled, ok := m["status"]
	if !ok {
		return EngineStatus{}, parseError("missing status flag: name=status")
	}

	blocking, ok := m["blocking"]
	if !ok {
		return EngineStatus{}, parseError("missing status flag: name=blocking")
	}

	return EngineStatus{Enabled: enabled, Blocking: blocking}, nil
}
