package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftlbridge/internal/protocol"
)

func TestDecodeCounters(t *testing.T) {
	counters, err := DecodeCounters(protocol.Reply{
		"domains_being_blocked 120394",
		"",
		"dns_queries_today 5012 trailing",
		"ads_percentage_today 12.5",
	})
	require.NoError(t, err)

	assert.Equal(t, []Counter{
		{Name: "domains_being_blocked", Value: 120394},
		{Name: "dns_queries_today", Value: 5012},
		{Name: "ads_percentage_today", Value: 12.5},
	}, counters)
	assert.Equal(t, 12.5, CounterMap(counters)["ads_percentage_today"])
}

func TestDecodeCountersMalformed(t *testing.T) {
	tests := []struct {
		name  string
		reply protocol.Reply
	}{
		{"non-numeric value", protocol.Reply{"dns_queries_today many"}},
		{"missing value", protocol.Reply{"dns_queries_today"}},
		{"not a number", protocol.Reply{"ads_percentage_today NaN"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			counters, err := DecodeCounters(tc.reply)
			assert.ErrorIs(t, err, protocol.ErrParse)
			assert.Nil(t, counters)
		})
	}
}

func TestDecodeStatusFlags(t *testing.T) {
	flags, err := DecodeStatusFlags(protocol.Reply{"status enabled", "blocking inactive"})
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"status": true, "blocking": false}, FlagMap(flags))

	_, err = DecodeStatusFlags(protocol.Reply{"status maybe"})
	assert.ErrorIs(t, err, protocol.ErrParse)
}

func TestDecodeTopDomainsInReplyOrder(t *testing.T) {
	domains, err := DecodeTopDomains(protocol.Reply{"example.com 50", "ads.test 30", "tracker.io 10"}, TopOpts{Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, []DomainCount{
		{Domain: "example.com", Count: 50},
		{Domain: "ads.test", Count: 30},
		{Domain: "tracker.io", Count: 10},
	}, domains)
}

func TestDecodeTopDomainsTruncatesToLimit(t *testing.T) {
	reply := protocol.Reply{
		"a.example 80", "b.example 70", "c.example 60", "d.example 50",
		"e.example 40", "f.example 30", "g.example 20", "h.example 10",
	}

	domains, err := DecodeTopDomains(reply, TopOpts{Limit: 5})
	require.NoError(t, err)

	require.Len(t, domains, 5)
	for idx, want := range []string{"a.example", "b.example", "c.example", "d.example", "e.example"} {
		assert.Equal(t, want, domains[idx].Domain)
	}
}

func TestDecodeTopListRankingRules(t *testing.T) {
	reply := protocol.Reply{
		"Tracker.example 10",
		"ads.example 30",
		"cdn.example 10",
		"ads.example 99",
		"metrics.tracker.example 30",
	}

	domains, err := DecodeTopDomains(reply, TopOpts{})
	require.NoError(t, err)

	// Equal counts keep reply order, and duplicates keep their first occurrence.
	assert.Equal(t, []DomainCount{
		{Domain: "ads.example", Count: 30},
		{Domain: "metrics.tracker.example", Count: 30},
		{Domain: "Tracker.example", Count: 10},
		{Domain: "cdn.example", Count: 10},
	}, domains)

	filtered, err := DecodeTopDomains(reply, TopOpts{Filter: "TRACKER", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []DomainCount{{Domain: "metrics.tracker.example", Count: 30}}, filtered)
}

func TestDecodeTopClientsAndQueryTypes(t *testing.T) {
	clients, err := DecodeTopClients(protocol.Reply{"192.168.1.10 40", "laptop.lan 55"}, TopOpts{})
	require.NoError(t, err)
	assert.Equal(t, []ClientCount{{Client: "laptop.lan", Count: 55}, {Client: "192.168.1.10", Count: 40}}, clients)

	types, err := DecodeQueryTypes(protocol.Reply{"A 300", "AAAA 120", "PTR 9"}, TopOpts{})
	require.NoError(t, err)
	assert.Len(t, types, 3)
	assert.Equal(t, QueryTypeBreakdownKind, types[0].Kind())
}

func TestDecodeQueryTypesKeepsEngineOrder(t *testing.T) {
	types, err := DecodeQueryTypes(protocol.Reply{"A 10", "AAAA 120", "PTR 9", "A 50", "SRV 0"}, TopOpts{})
	require.NoError(t, err)

	assert.Equal(t, []QueryTypeBreakdown{
		{Type: "A", Count: 10},
		{Type: "AAAA", Count: 120},
		{Type: "PTR", Count: 9},
		{Type: "SRV", Count: 0},
	}, types)

	limited, err := DecodeQueryTypes(protocol.Reply{"A 10", "AAAA 120", "PTR 9"}, TopOpts{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []QueryTypeBreakdown{{Type: "A", Count: 10}, {Type: "AAAA", Count: 120}}, limited)
}

func TestDecodeTopListMalformed(t *testing.T) {
	_, err := DecodeTopDomains(protocol.Reply{"example.com 50", "ads.test"}, TopOpts{})
	assert.ErrorIs(t, err, protocol.ErrParse)

	_, err = DecodeTopDomains(protocol.Reply{"example.com -1"}, TopOpts{})
	assert.ErrorIs(t, err, protocol.ErrParse)
}

func TestDecodeTimeSeries(t *testing.T) {
	points, err := DecodeTimeSeries(protocol.Reply{"100 5 1", "200 7 2", "400 3 0"}, 1)
	require.NoError(t, err)

	assert.Equal(t, []TimeSeriesPoint{{100, 1}, {200, 2}, {400, 0}}, points)
}

func TestDecodeTimeSeriesRejectsBadOrder(t *testing.T) {
	_, err := DecodeTimeSeries(protocol.Reply{"200 7 2", "100 5 1"}, 0)
	assert.ErrorIs(t, err, protocol.ErrParse)

	_, err = DecodeTimeSeries(protocol.Reply{"100 5"}, 1)
	assert.ErrorIs(t, err, protocol.ErrParse)
}

func TestFillWindowZeroFillsGaps(t *testing.T) {
	points := []TimeSeriesPoint{{100, 4}, {200, 6}, {400, 2}}

	filled, err := FillWindow(points, 100, 500, 100)
	require.NoError(t, err)

	assert.Equal(t, []TimeSeriesPoint{{100, 4}, {200, 6}, {300, 0}, {400, 2}, {500, 0}}, filled)
}

func TestFillWindowSumsOffGridPoints(t *testing.T) {
	points := []TimeSeriesPoint{{50, 9}, {100, 1}, {150, 2}, {199, 3}, {900, 5}}

	filled, err := FillWindow(points, 100, 300, 100)
	require.NoError(t, err)

	assert.Equal(t, []TimeSeriesPoint{{100, 6}, {200, 0}, {300, 0}}, filled)
}

func TestFillGapsKeepsReceivedTimestamps(t *testing.T) {
	filled, spacing := FillGaps([]TimeSeriesPoint{{1300, 5}, {1900, 7}, {3100, 9}})

	assert.Equal(t, int64(600), spacing)
	assert.Equal(t, []TimeSeriesPoint{{1300, 5}, {1900, 7}, {2500, 0}, {3100, 9}}, filled)

	single, spacing := FillGaps([]TimeSeriesPoint{{1300, 5}})
	assert.Zero(t, spacing)
	assert.Equal(t, []TimeSeriesPoint{{1300, 5}}, single)
}

func TestFillGapsLeavesOversizedSeries(t *testing.T) {
	points := []TimeSeriesPoint{{0, 1}, {1, 1}, {1 << 40, 1}}

	filled, spacing := FillGaps(points)
	assert.Equal(t, int64(1), spacing)
	assert.Equal(t, points, filled)
}

func TestFillWindowValidation(t *testing.T) {
	_, err := FillWindow(nil, 100, 500, 0)
	assert.ErrorIs(t, err, protocol.ErrValidation)

	_, err = FillWindow(nil, 500, 100, 100)
	assert.ErrorIs(t, err, protocol.ErrValidation)

	_, err = FillWindow(nil, 0, 1<<40, 1)
	assert.ErrorIs(t, err, protocol.ErrValidation)
}

func TestDecodeMultiSeries(t *testing.T) {
	series, err := DecodeMultiSeries(protocol.Reply{
		"labels 1.1.1.1 8.8.8.8",
		"100 4 5",
		"",
		"300 1 0 extra",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, series.Labels)
	assert.Equal(t, []MultiSeriesPoint{
		{Timestamp: 100, Counts: []int64{4, 5}},
		{Timestamp: 300, Counts: []int64{1, 0}},
	}, series.Points)

	gapless, spacing := series.FillGaps()
	assert.Equal(t, int64(200), spacing)
	assert.Equal(t, series, gapless)

	withGap := MultiSeries{Labels: series.Labels, Points: append(series.Points, MultiSeriesPoint{Timestamp: 700, Counts: []int64{2, 2}})}
	filled, spacing := withGap.FillGaps()
	assert.Equal(t, int64(200), spacing)
	require.Len(t, filled.Points, 4)
	assert.Equal(t, MultiSeriesPoint{Timestamp: 500, Counts: []int64{0, 0}}, filled.Points[2])
}

func TestDecodeMultiSeriesMalformed(t *testing.T) {
	_, err := DecodeMultiSeries(protocol.Reply{"100 4 5"})
	assert.ErrorIs(t, err, protocol.ErrParse)

	_, err = DecodeMultiSeries(protocol.Reply{"labels a b", "100 4"})
	assert.ErrorIs(t, err, protocol.ErrParse)

	empty, err := DecodeMultiSeries(protocol.Reply{})
	require.NoError(t, err)
	assert.Empty(t, empty.Points)
}

func TestDecodeListEntries(t *testing.T) {
	entries, err := DecodeListEntries(protocol.Reply{"example.com", "ads.test 0", "cdn.example enabled"}, false)
	require.NoError(t, err)

	assert.Equal(t, []ListEntry{
		{Domain: "example.com", Enabled: true},
		{Domain: "ads.test", Enabled: false},
		{Domain: "cdn.example", Enabled: true},
	}, entries)
}

func TestDecodeListEntriesValidation(t *testing.T) {
	_, err := DecodeListEntries(protocol.Reply{"example.com maybe"}, false)
	assert.ErrorIs(t, err, protocol.ErrParse)

	_, err = DecodeListEntries(protocol.Reply{"*.ads.example"}, false)
	assert.ErrorIs(t, err, protocol.ErrParse)

	entries, err := DecodeListEntries(protocol.Reply{"*.ads.example"}, true)
	require.NoError(t, err)
	assert.Equal(t, "*.ads.example", entries[0].Domain)

	_, err = DecodeListEntries(protocol.Reply{"bad..example"}, false)
	assert.ErrorIs(t, err, protocol.ErrParse)
}

func TestDecodeDomains(t *testing.T) {
	domains, err := DecodeDomains(protocol.Reply{"ads.example", "tracker.example 17"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example", "tracker.example"}, domains)
}

func TestDecodeQueryLog(t *testing.T) {
	entries, err := DecodeQueryLog(protocol.Reply{
		"1700000000 A example.com 192.168.1.10 forwarded",
		"1700000005 AAAA ads.test 192.168.1.11 blocked",
	})
	require.NoError(t, err)

	assert.Equal(t, QueryLogEntry{
		Timestamp: 1700000005,
		Type:      "AAAA",
		Domain:    "ads.test",
		Client:    "192.168.1.11",
		Status:    "blocked",
	}, entries[1])

	_, err = DecodeQueryLog(protocol.Reply{"1700000000 A example.com 192.168.1.10"})
	assert.ErrorIs(t, err, protocol.ErrParse)
}

func TestRecordKinds(t *testing.T) {
	records := []Record{Counter{}, TimeSeriesPoint{}, DomainCount{}, ClientCount{}, QueryTypeBreakdown{}, ListEntry{}, StatusFlag{}, QueryLogEntry{}}

	seen := make(map[RecordKind]bool)
	for _, record := range records {
		assert.NotEqual(t, "unknown", record.Kind().String())
		seen[record.Kind()] = true
	}

	assert.Len(t, seen, len(records))
}

func TestDecodeEngineStatus(t *testing.T) {
	status, err := DecodeEngineStatus(protocol.Reply{"status enabled", "blocking inactive"})
	require.NoError(t, err)
	assert.Equal(t, EngineStatus{Enabled: true, Blocking: false}, status)

	_, err = DecodeEngineStatus(protocol.Reply{"status enabled"})
	assert.ErrorIs(t, err, protocol.ErrParse)
}
