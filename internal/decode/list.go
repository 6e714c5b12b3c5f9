package decode

import (
	"ftlbridge/internal/protocol"
)

// DecodeListEntries decodes "domain [enabled]" lines. An entry without a flag is enabled. With
// wildcard set, domains may carry a leading "*." label.
func DecodeListEntries(reply protocol.Reply, wildcard bool) ([]ListEntry, error) {
	return decodeLines(reply, func(fields []string, line int) (ListEntry, error) {
		domain, err := parseDomain(fields[0], wildcard, line)
		if err != nil {
			return ListEntry{}, err
		}

		enabled := true
		if len(fields) > 1 {
			if enabled, err = parseFlag(fields[1], line); err != nil {
				return ListEntry{}, err
			}
		}

		return ListEntry{Domain: domain, Enabled: enabled}, nil
	})
}

// DecodeDomains decodes one domain per line.
func DecodeDomains(reply protocol.Reply) ([]string, error) {
	entries, err := decodeLines(reply, func(fields []string, line int) (ListEntry, error) {
		domain, err := parseDomain(fields[0], false, line)
		return ListEntry{Domain: domain, Enabled: true}, err
	})
	if err != nil {
		return nil, err
	}

	domains := make([]string, len(entries))
	for idx, entry := range entries {
		domains[idx] = entry.Domain
	}

	return domains, nil
}
