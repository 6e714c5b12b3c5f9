package decode

// RecordKind tags each variant of Record.
type RecordKind int

const (
	CounterKind RecordKind = iota + 1
	TimeSeriesPointKind
	DomainCountKind
	ClientCountKind
	QueryTypeBreakdownKind
	ListEntryKind
	StatusFlagKind
	QueryLogEntryKind
)

// String returns the name of the record kind.
func (k RecordKind) String() string {
	switch k {
	case CounterKind:
		return "counter"
	case TimeSeriesPointKind:
		return "time_series_point"
	case DomainCountKind:
		return "domain_count"
	case ClientCountKind:
		return "client_count"
	case QueryTypeBreakdownKind:
		return "query_type_breakdown"
	case ListEntryKind:
		return "list_entry"
	case StatusFlagKind:
		return "status_flag"
	case QueryLogEntryKind:
		return "query_log_entry"
	default:
		return "unknown"
	}
}

// Record is the closed set of values decoded from engine replies. Records are plain values and
// hold no reference to the connection they were read from.
type Record interface {
	Kind() RecordKind

	record()
}

// Counter is a single named scalar.
type Counter struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TimeSeriesPoint is the count in the bucket starting at Timestamp, in Unix seconds.
type TimeSeriesPoint struct {
	Timestamp int64 `json:"timestamp"`
	Count     int64 `json:"count"`
}

// DomainCount is a ranked domain.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// ClientCount is a ranked client, identified by address or name.
type ClientCount struct {
	Client string `json:"client"`
	Count  int64  `json:"count"`
}

// QueryTypeBreakdown is the count of queries of one type, or of queries sent to one forward
// destination.
type QueryTypeBreakdown struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// ListEntry is a single allow, deny, or wildcard list entry.
type ListEntry struct {
	Domain  string `json:"domain"`
	Enabled bool   `json:"enabled"`
}

// StatusFlag is a named boolean engine state.
type StatusFlag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// QueryLogEntry is a single row of the engine's query log.
type QueryLogEntry struct {
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Domain    string `json:"domain"`
	Client    string `json:"client"`
	Status    string `json:"status"`
}

func (Counter) Kind() RecordKind            { return CounterKind }
func (TimeSeriesPoint) Kind() RecordKind    { return TimeSeriesPointKind }
func (DomainCount) Kind() RecordKind        { return DomainCountKind }
func (ClientCount) Kind() RecordKind        { return ClientCountKind }
func (QueryTypeBreakdown) Kind() RecordKind { return QueryTypeBreakdownKind }
func (ListEntry) Kind() RecordKind          { return ListEntryKind }
func (StatusFlag) Kind() RecordKind         { return StatusFlagKind }
func (QueryLogEntry) Kind() RecordKind      { return QueryLogEntryKind }

func (Counter) record()            {}
func (TimeSeriesPoint) record()    {}
func (DomainCount) record()        {}
func (ClientCount) record()        {}
func (QueryTypeBreakdown) record() {}
func (ListEntry) record()          {}
func (StatusFlag) record()         {}
func (QueryLogEntry) record()      {}
