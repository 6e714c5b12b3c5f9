package decode

import (
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"ftlbridge/internal/protocol"
)

// decodeLines applies parse to the whitespace-separated fields of every non-blank line of the
// reply. Line numbers passed to parse are 1-based positions within the reply.
func decodeLines[T Record](reply protocol.Reply, parse func(fields []string, line int) (T, error)) ([]T, error) {
	records := make([]T, 0, len(reply))

	for idx, raw := range reply {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}

		record, err := parse(fields, idx+1)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

func parseError(format string, v ...interface{}) error {
	return protocol.Errorf(protocol.KindParse, "decode", format, v...)
}

// requireFields fails unless at least n fields are present.
func requireFields(fields []string, n int, line int) error {
	if len(fields) < n {
		return parseError("missing fields: line=%d expected=%d actual=%d", line, n, len(fields))
	}

	return nil
}

func parseCount(value string, line int) (int64, error) {
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil || count < 0 {
		return 0, parseError("malformed count: line=%d value=%q", line, value)
	}

	return count, nil
}

func parseTimestamp(value string, line int) (int64, error) {
	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ts < 0 {
		return 0, parseError("malformed timestamp: line=%d value=%q", line, value)
	}

	return ts, nil
}

// parseFlag accepts the spellings of a boolean the engine uses across its replies.
func parseFlag(value string, line int) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "true", "enabled", "active", "on", "yes":
		return true, nil
	case "0", "false", "disabled", "inactive", "off", "no":
		return false, nil
	default:
		return false, parseError("malformed flag: line=%d value=%q", line, value)
	}
}

// parseDomain validates a domain name. With wildcard set, a leading "*." label is permitted.
func parseDomain(value string, wildcard bool, line int) (string, error) {
	name := value
	if wildcard {
		name = strings.TrimPrefix(name, "*.")
	}

	if name == "" || name == "." || strings.Contains(name, "*") {
		return "", parseError("malformed domain: line=%d value=%q", line, value)
	}

	if _, ok := dns.IsDomainName(name); !ok {
		return "", parseError("malformed domain: line=%d value=%q", line, value)
	}

	return value, nil
}
