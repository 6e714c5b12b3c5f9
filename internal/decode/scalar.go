package decode

import (
	"math"
	"strconv"

	"ftlbridge/internal/protocol"
)

// DecodeCounters decodes "key value" lines into counters, in reply order.
func DecodeCounters(reply protocol.Reply) ([]Counter, error) {
	return decodeLines(reply, func(fields []string, line int) (Counter, error) {
		if err := requireFields(fields, 2, line); err != nil {
			return Counter{}, err
		}

		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return Counter{}, parseError("malformed counter value: line=%d key=%s value=%q", line, fields[0], fields[1])
		}

		return Counter{Name: fields[0], Value: value}, nil
	})
}

// CounterMap indexes counters by name. A later duplicate replaces an earlier one.
func CounterMap(counters []Counter) map[string]float64 {
	m := make(map[string]float64, len(counters))
	for _, counter := range counters {
		m[counter.Name] = counter.Value
	}

	return m
}
