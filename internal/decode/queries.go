package decode

import (
	"ftlbridge/internal/protocol"
)

// DecodeQueryLog decodes "timestamp type domain client status" query log rows, in reply order.
func DecodeQueryLog(reply protocol.Reply) ([]QueryLogEntry, error) {
	return decodeLines(reply, func(fields []string, line int) (QueryLogEntry, error) {
		if err := requireFields(fields, 5, line); err != nil {
			return QueryLogEntry{}, err
		}

		ts, err := parseTimestamp(fields[0], line)
		if err != nil {
			return QueryLogEntry{}, err
		}

		domain, err := parseDomain(fields[2], false, line)
		if err != nil {
			return QueryLogEntry{}, err
		}

		return QueryLogEntry{
			Timestamp: ts,
			Type:      fields[1],
			Domain:    domain,
			Client:    fields[3],
			Status:    fields[4],
		}, nil
	})
}
