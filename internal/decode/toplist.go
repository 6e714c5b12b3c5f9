package decode

import (
	"slices"
	"strings"

	"ftlbridge/internal/protocol"
)

// TopOpts shapes a decoded top-list.
type TopOpts struct {
	// Limit truncates the list after filtering. Zero means no limit.
	Limit int
	// Filter keeps only names containing it, case-insensitively. Empty keeps every name.
	Filter string
}

// DecodeTopDomains decodes ranked "domain count" lines.
func DecodeTopDomains(reply protocol.Reply, opts TopOpts) ([]DomainCount, error) {
	records, err := decodeLines(reply, func(fields []string, line int) (DomainCount, error) {
		name, count, err := parseNamedCount(fields, line)
		return DomainCount{Domain: name, Count: count}, err
	})
	if err != nil {
		return nil, err
	}

	return rank(records, func(r DomainCount) (string, int64) { return r.Domain, r.Count }, opts), nil
}

// DecodeTopClients decodes ranked "client count" lines.
func DecodeTopClients(reply protocol.Reply, opts TopOpts) ([]ClientCount, error) {
	records, err := decodeLines(reply, func(fields []string, line int) (ClientCount, error) {
		name, count, err := parseNamedCount(fields, line)
		return ClientCount{Client: name, Count: count}, err
	})
	if err != nil {
		return nil, err
	}

	return rank(records, func(r ClientCount) (string, int64) { return r.Client, r.Count }, opts), nil
}

// DecodeQueryTypes decodes "type count" lines. It serves forward destinations too, which share the
// grammar. A breakdown is not a ranking: records keep the engine's order.
func DecodeQueryTypes(reply protocol.Reply, opts TopOpts) ([]QueryTypeBreakdown, error) {
	records, err := decodeLines(reply, func(fields []string, line int) (QueryTypeBreakdown, error) {
		name, count, err := parseNamedCount(fields, line)
		return QueryTypeBreakdown{Type: name, Count: count}, err
	})
	if err != nil {
		return nil, err
	}

	return truncate(collect(records, func(r QueryTypeBreakdown) string { return r.Type }, opts), opts), nil
}

func parseNamedCount(fields []string, line int) (string, int64, error) {
	if err := requireFields(fields, 2, line); err != nil {
		return "", 0, err
	}

	count, err := parseCount(fields[1], line)
	if err != nil {
		return "", 0, err
	}

	return fields[0], count, nil
}

// rank orders the collected records by count descending, keeping reply order among equal counts,
// and truncates to the limit.
func rank[T Record](records []T, key func(T) (string, int64), opts TopOpts) []T {
	ranked := collect(records, func(record T) string {
		name, _ := key(record)
		return name
	}, opts)

	slices.SortStableFunc(ranked, func(a, b T) int {
		_, countA := key(a)
		_, countB := key(b)

		switch {
		case countA > countB:
			return -1
		case countA < countB:
			return 1
		default:
			return 0
		}
	})

	return truncate(ranked, opts)
}

// collect drops duplicate names after their first occurrence and applies the filter.
func collect[T Record](records []T, name func(T) string, opts TopOpts) []T {
	filter := strings.ToLower(opts.Filter)
	seen := make(map[string]struct{}, len(records))
	kept := make([]T, 0, len(records))

	for _, record := range records {
		key := name(record)

		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if filter != "" && !strings.Contains(strings.ToLower(key), filter) {
			continue
		}

		kept = append(kept, record)
	}

	return kept
}

func truncate[T Record](records []T, opts TopOpts) []T {
	if opts.Limit > 0 && len(records) > opts.Limit {
		return records[:opts.Limit]
	}

	return records
}
