package decode

import (
	"strings"

	"ftlbridge/internal/protocol"
)

const labelsHeader = "labels"

// MaxWindowBuckets bounds the number of buckets a filled window may hold.
const MaxWindowBuckets = 100000

// MultiSeries is a set of time series sharing timestamps, one per label.
type MultiSeries struct {
	Labels []string           `json:"labels"`
	Points []MultiSeriesPoint `json:"points"`
}

// MultiSeriesPoint holds one count per label of the enclosing MultiSeries, in label order.
type MultiSeriesPoint struct {
	Timestamp int64   `json:"timestamp"`
	Counts    []int64 `json:"counts"`
}

// DecodeTimeSeries decodes "timestamp count..." lines, selecting the count in the given 0-based
// column after the timestamp. Timestamps must be strictly ascending.
func DecodeTimeSeries(reply protocol.Reply, column int) ([]TimeSeriesPoint, error) {
	if column < 0 {
		return nil, protocol.Errorf(protocol.KindValidation, "decode", "invalid series column: column=%d", column)
	}

	prev := int64(-1)

	return decodeLines(reply, func(fields []string, line int) (TimeSeriesPoint, error) {
		if err := requireFields(fields, column+2, line); err != nil {
			return TimeSeriesPoint{}, err
		}

		ts, err := parseTimestamp(fields[0], line)
		if err != nil {
			return TimeSeriesPoint{}, err
		}

		if ts <= prev {
			return TimeSeriesPoint{}, parseError("timestamps out of order: line=%d prev=%d ts=%d", line, prev, ts)
		}
		prev = ts

		count, err := parseCount(fields[column+1], line)
		if err != nil {
			return TimeSeriesPoint{}, err
		}

		return TimeSeriesPoint{Timestamp: ts, Count: count}, nil
	})
}

// FillWindow buckets points into the window [from, until] at the given step, one point per bucket
// starting at from. Buckets absent from points have a count of zero; points that fall between
// bucket boundaries are added to the bucket containing them, and points outside the window are
// dropped.
func FillWindow(points []TimeSeriesPoint, from int64, until int64, step int64) ([]TimeSeriesPoint, error) {
	if err := validateWindow(from, until, step); err != nil {
		return nil, err
	}

	buckets := make([]TimeSeriesPoint, (until-from)/step+1)
	for idx := range buckets {
		buckets[idx].Timestamp = from + int64(idx)*step
	}

	for _, point := range points {
		if idx, ok := bucketIndex(point.Timestamp, from, step, len(buckets)); ok {
			buckets[idx].Count += point.Count
		}
	}

	return buckets, nil
}

// DecodeMultiSeries decodes a reply whose first line is "labels l1 l2 ..." followed by
// "timestamp c1 c2 ..." lines with one count per label.
func DecodeMultiSeries(reply protocol.Reply) (MultiSeries, error) {
	var series MultiSeries

	header := -1
	for idx, raw := range reply {
		if strings.TrimSpace(raw) != "" {
			header = idx
			break
		}
	}

	if header < 0 {
		return MultiSeries{Labels: []string{}, Points: []MultiSeriesPoint{}}, nil
	}

	fields := strings.Fields(reply[header])
	if fields[0] != labelsHeader {
		return MultiSeries{}, parseError("missing labels header: line=%d", header+1)
	}
	series.Labels = append([]string{}, fields[1:]...)
	series.Points = []MultiSeriesPoint{}

	prev := int64(-1)
	for idx, raw := range reply[header+1:] {
		line := header + idx + 2

		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}

		if err := requireFields(fields, len(series.Labels)+1, line); err != nil {
			return MultiSeries{}, err
		}

		ts, err := parseTimestamp(fields[0], line)
		if err != nil {
			return MultiSeries{}, err
		}

		if ts <= prev {
			return MultiSeries{}, parseError("timestamps out of order: line=%d prev=%d ts=%d", line, prev, ts)
		}
		prev = ts

		counts := make([]int64, len(series.Labels))
		for col := range counts {
			if counts[col], err = parseCount(fields[col+1], line); err != nil {
				return MultiSeries{}, err
			}
		}

		series.Points = append(series.Points, MultiSeriesPoint{Timestamp: ts, Counts: counts})
	}

	return series, nil
}

// Span aligns the first and last timestamps of a series down to the bucket grid.
func Span(first int64, last int64, step int64) (int64, int64) {
	return first - first%step, last - last%step
}

// FillGaps zero-fills the gaps of a series at its own spacing, which is the smallest interval
// between consecutive points. Received timestamps are kept as they are; inserted points continue
// the spacing from the point before each gap. It returns the filled series and its spacing, which
// is zero when there are fewer than two points. A series that would grow beyond MaxWindowBuckets
// is returned unfilled.
func FillGaps(points []TimeSeriesPoint) ([]TimeSeriesPoint, int64) {
	return fillGaps(
		points,
		func(point TimeSeriesPoint) int64 { return point.Timestamp },
		func(ts int64) TimeSeriesPoint { return TimeSeriesPoint{Timestamp: ts} },
	)
}

// FillGaps is FillGaps for every label of the series at once.
func (s MultiSeries) FillGaps() (MultiSeries, int64) {
	points, spacing := fillGaps(
		s.Points,
		func(point MultiSeriesPoint) int64 { return point.Timestamp },
		func(ts int64) MultiSeriesPoint {
			return MultiSeriesPoint{Timestamp: ts, Counts: make([]int64, len(s.Labels))}
		},
	)

	return MultiSeries{Labels: s.Labels, Points: points}, spacing
}

func fillGaps[T any](items []T, timestamp func(T) int64, empty func(int64) T) ([]T, int64) {
	if len(items) < 2 {
		return items, 0
	}

	var spacing int64
	for idx := 1; idx < len(items); idx++ {
		if delta := timestamp(items[idx]) - timestamp(items[idx-1]); spacing == 0 || delta < spacing {
			spacing = delta
		}
	}

	first, last := timestamp(items[0]), timestamp(items[len(items)-1])
	if spacing <= 0 || (last-first)/spacing >= MaxWindowBuckets {
		return items, spacing
	}

	filled := make([]T, 0, (last-first)/spacing+1)
	for idx, item := range items {
		if idx > 0 {
			for ts := timestamp(items[idx-1]) + spacing; ts < timestamp(item); ts += spacing {
				filled = append(filled, empty(ts))
			}
		}

		filled = append(filled, item)
	}

	return filled, spacing
}

func validateWindow(from int64, until int64, step int64) error {
	if step <= 0 {
		return protocol.Errorf(protocol.KindValidation, "decode", "step must be positive: step=%d", step)
	}

	if until < from {
		return protocol.Errorf(protocol.KindValidation, "decode", "window ends before it starts: from=%d until=%d", from, until)
	}

	if (until-from)/step >= MaxWindowBuckets {
		return protocol.Errorf(protocol.KindValidation, "decode", "window too large: from=%d until=%d step=%d", from, until, step)
	}

	return nil
}

func bucketIndex(ts int64, from int64, step int64, buckets int) (int, bool) {
	if ts < from {
		return 0, false
	}

	idx := (ts - from) / step
	if idx >= int64(buckets) {
		return 0, false
	}

	return int(idx), true
}
