// Package stats composes the engine protocol client and the reply decoders into the statistics
// operations served by the API. Every call is a point-in-time snapshot of engine state.
package stats

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"ftlbridge/internal/decode"
	"ftlbridge/internal/log"
	"ftlbridge/internal/protocol"
)

const (
	DefaultTopCount     = 10
	DefaultMaxTopCount  = 100
	DefaultHistoryCount = 100
	DefaultMaxHistory   = 10000
	DefaultOverTimeStep = 10 * time.Minute

	// maxFilterLength is the longest permissible domain name.
	maxFilterLength = 253
)

// Opts formalizes configuration options for the stats service.
type Opts struct {
	// DefaultTopCount is the top-list length used when the caller omits a count.
	DefaultTopCount int
	// MaxTopCount is the longest top-list served; larger requests are clamped.
	MaxTopCount int
	// DefaultHistoryCount is the number of query log rows used when the caller omits a count.
	DefaultHistoryCount int
	// MaxHistoryCount is the most query log rows served; larger requests are clamped.
	MaxHistoryCount int
	// OverTimeStep is the bucket width of over-time series.
	OverTimeStep time.Duration
}

// TopParams are the caller-supplied parameters of a top-list request.
type TopParams struct {
	// Count is the requested list length. Zero selects the default; negative is invalid.
	Count int
	// Blocked selects blocked domains instead of permitted ones.
	Blocked bool
	// Filter keeps only names containing it, case-insensitively.
	Filter string
}

// Summary merges the engine's headline counters with its status.
type Summary struct {
	DomainsBeingBlocked int64               `json:"domains_being_blocked"`
	TotalQueries        int64               `json:"total_queries"`
	BlockedQueries      int64               `json:"blocked_queries"`
	PercentBlocked      float64             `json:"percent_blocked"`
	UniqueDomains       int64               `json:"unique_domains"`
	ForwardedQueries    int64               `json:"forwarded_queries"`
	CachedQueries       int64               `json:"cached_queries"`
	TotalClients        int64               `json:"total_clients"`
	ActiveClients       int64               `json:"active_clients"`
	Status              decode.EngineStatus `json:"status"`
	Counters            map[string]float64  `json:"counters"`
}

// OverTime holds the permitted and blocked query series over the same buckets.
type OverTime struct {
	Step    int64                    `json:"step"`
	Domains []decode.TimeSeriesPoint `json:"domains"`
	Blocked []decode.TimeSeriesPoint `json:"blocked"`
}

// Service serves engine statistics.
type Service struct {
	engine protocol.Sender
	logger log.Logger
	opts   Opts
}

// NewService creates a stats service issuing commands through engine. Unset options take their
// defaults.
func NewService(engine protocol.Sender, logger log.Logger, opts Opts) *Service {
	if opts.DefaultTopCount <= 0 {
		opts.DefaultTopCount = DefaultTopCount
	}
	if opts.MaxTopCount <= 0 {
		opts.MaxTopCount = DefaultMaxTopCount
	}
	if opts.DefaultTopCount > opts.MaxTopCount {
		opts.DefaultTopCount = opts.MaxTopCount
	}
	if opts.DefaultHistoryCount <= 0 {
		opts.DefaultHistoryCount = DefaultHistoryCount
	}
	if opts.MaxHistoryCount <= 0 {
		opts.MaxHistoryCount = DefaultMaxHistory
	}
	if opts.DefaultHistoryCount > opts.MaxHistoryCount {
		opts.DefaultHistoryCount = opts.MaxHistoryCount
	}
	if opts.OverTimeStep < time.Second {
		opts.OverTimeStep = DefaultOverTimeStep
	}

	return &Service{engine: engine, logger: logger, opts: opts}
}

// Summary fetches the headline counters and the engine status concurrently. If either query
// fails, the whole call fails.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var counters []decode.Counter
	var status decode.EngineStatus

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		reply, err := s.engine.Send(groupCtx, protocol.NewCommand("stats"))
		if err != nil {
			return err
		}

		counters, err = decode.DecodeCounters(reply)
		return err
	})

	group.Go(func() error {
		reply, err := s.engine.Send(groupCtx, protocol.NewCommand("status"))
		if err != nil {
			return err
		}

		status, err = decode.DecodeEngineStatus(reply)
		return err
	})

	if err := group.Wait(); err != nil {
		s.logger.Debug("stats: summary failed: err=%v", err)
		return Summary{}, err
	}

	m := decode.CounterMap(counters)

	return Summary{
		DomainsBeingBlocked: int64(m["domains_being_blocked"]),
		TotalQueries:        int64(m["dns_queries_today"]),
		BlockedQueries:      int64(m["ads_blocked_today"]),
		PercentBlocked:      m["ads_percentage_today"],
		UniqueDomains:       int64(m["unique_domains"]),
		ForwardedQueries:    int64(m["queries_forwarded"]),
		CachedQueries:       int64(m["queries_cached"]),
		TotalClients:        int64(m["clients_ever_seen"]),
		ActiveClients:       int64(m["unique_clients"]),
		Status:              status,
		Counters:            m,
	}, nil
}

// TopDomains returns the most queried permitted domains, or the most blocked ones.
func (s *Service) TopDomains(ctx context.Context, params TopParams) ([]decode.DomainCount, error) {
	opts, request, err := s.topOpts(params)
	if err != nil {
		return nil, err
	}

	name := "top-domains"
	if params.Blocked {
		name = "top-ads"
	}

	reply, err := s.engine.Send(ctx, protocol.NewCommand(name, strconv.Itoa(request)))
	if err != nil {
		return nil, err
	}

	return decode.DecodeTopDomains(reply, opts)
}

// TopClients returns the clients issuing the most queries.
func (s *Service) TopClients(ctx context.Context, params TopParams) ([]decode.ClientCount, error) {
	opts, request, err := s.topOpts(params)
	if err != nil {
		return nil, err
	}

	reply, err := s.engine.Send(ctx, protocol.NewCommand("top-clients", strconv.Itoa(request)))
	if err != nil {
		return nil, err
	}

	return decode.DecodeTopClients(reply, opts)
}

// Clients returns every client the engine has seen, by query count.
func (s *Service) Clients(ctx context.Context) ([]decode.ClientCount, error) {
	reply, err := s.engine.Send(ctx, protocol.NewCommand("clients"))
	if err != nil {
		return nil, err
	}

	return decode.DecodeTopClients(reply, decode.TopOpts{})
}

// ForwardDestinations returns the upstream resolvers queries were forwarded to, by query count.
func (s *Service) ForwardDestinations(ctx context.Context) ([]decode.QueryTypeBreakdown, error) {
	reply, err := s.engine.Send(ctx, protocol.NewCommand("forward-dest"))
	if err != nil {
		return nil, err
	}

	return decode.DecodeQueryTypes(reply, decode.TopOpts{})
}

// QueryTypes returns query counts per record type.
func (s *Service) QueryTypes(ctx context.Context) ([]decode.QueryTypeBreakdown, error) {
	reply, err := s.engine.Send(ctx, protocol.NewCommand("querytypes"))
	if err != nil {
		return nil, err
	}

	return decode.DecodeQueryTypes(reply, decode.TopOpts{})
}

// History returns the most recent query log rows.
func (s *Service) History(ctx context.Context, count int) ([]decode.QueryLogEntry, error) {
	count, err := resolveCount(count, s.opts.DefaultHistoryCount, s.opts.MaxHistoryCount)
	if err != nil {
		return nil, err
	}

	reply, err := s.engine.Send(ctx, protocol.NewCommand("getallqueries", strconv.Itoa(count)))
	if err != nil {
		return nil, err
	}

	return decode.DecodeQueryLog(reply)
}

// RecentBlocked returns the most recently blocked domains, newest first. Zero selects a single
// domain.
func (s *Service) RecentBlocked(ctx context.Context, count int) ([]string, error) {
	count, err := resolveCount(count, 1, s.opts.MaxTopCount)
	if err != nil {
		return nil, err
	}

	reply, err := s.engine.Send(ctx, protocol.NewCommand("recentBlocked", strconv.Itoa(count)))
	if err != nil {
		return nil, err
	}

	return decode.DecodeDomains(reply)
}

// UnknownQueries returns query log rows the engine could not classify.
func (s *Service) UnknownQueries(ctx context.Context) ([]decode.QueryLogEntry, error) {
	reply, err := s.engine.Send(ctx, protocol.NewCommand("unknown"))
	if err != nil {
		return nil, err
	}

	return decode.DecodeQueryLog(reply)
}

// OverTime returns the engine's full retained history with timestamps as received. Gaps are
// zero-filled at the engine's own bucket spacing, which is reported as the step; a history of
// fewer than two buckets reports the configured step.
func (s *Service) OverTime(ctx context.Context) (OverTime, error) {
	domains, blocked, err := s.overTime(ctx)
	if err != nil {
		return OverTime{}, err
	}

	if len(domains) == 0 {
		return OverTime{Step: s.step(), Domains: []decode.TimeSeriesPoint{}, Blocked: []decode.TimeSeriesPoint{}}, nil
	}

	filledDomains, step := decode.FillGaps(domains)
	filledBlocked, _ := decode.FillGaps(blocked)
	if step == 0 {
		step = s.step()
	}

	return OverTime{Step: step, Domains: filledDomains, Blocked: filledBlocked}, nil
}

// OverTimeWindow returns the history within [from, until], aligned to the bucket grid, with empty
// buckets zero-filled.
func (s *Service) OverTimeWindow(ctx context.Context, from time.Time, until time.Time) (OverTime, error) {
	if until.Before(from) {
		return OverTime{}, protocol.Errorf(protocol.KindValidation, "stats", "window ends before it starts: from=%v until=%v", from, until)
	}

	start, end := decode.Span(from.Unix(), until.Unix(), s.step())
	if err := s.checkWindow(start, end); err != nil {
		return OverTime{}, err
	}

	domains, blocked, err := s.overTime(ctx)
	if err != nil {
		return OverTime{}, err
	}

	return s.fillOverTime(domains, blocked, start, end)
}

// OverTimeForwardDestinations returns per-destination forwarded query counts over time.
func (s *Service) OverTimeForwardDestinations(ctx context.Context) (decode.MultiSeries, error) {
	return s.multiSeries(ctx, "ForwardedoverTime")
}

// OverTimeQueryTypes returns per-type query counts over time.
func (s *Service) OverTimeQueryTypes(ctx context.Context) (decode.MultiSeries, error) {
	return s.multiSeries(ctx, "QueryTypesoverTime")
}

// OverTimeClients returns per-client query counts over time.
func (s *Service) OverTimeClients(ctx context.Context) (decode.MultiSeries, error) {
	return s.multiSeries(ctx, "ClientsoverTime")
}

func (s *Service) overTime(ctx context.Context) ([]decode.TimeSeriesPoint, []decode.TimeSeriesPoint, error) {
	reply, err := s.engine.Send(ctx, protocol.NewCommand("overTime"))
	if err != nil {
		return nil, nil, err
	}

	domains, err := decode.DecodeTimeSeries(reply, 0)
	if err != nil {
		return nil, nil, err
	}

	blocked, err := decode.DecodeTimeSeries(reply, 1)
	if err != nil {
		return nil, nil, err
	}

	return domains, blocked, nil
}

func (s *Service) fillOverTime(domains []decode.TimeSeriesPoint, blocked []decode.TimeSeriesPoint, from int64, until int64) (OverTime, error) {
	step := s.step()

	filledDomains, err := decode.FillWindow(domains, from, until, step)
	if err != nil {
		return OverTime{}, err
	}

	filledBlocked, err := decode.FillWindow(blocked, from, until, step)
	if err != nil {
		return OverTime{}, err
	}

	return OverTime{Step: step, Domains: filledDomains, Blocked: filledBlocked}, nil
}

func (s *Service) multiSeries(ctx context.Context, name string) (decode.MultiSeries, error) {
	reply, err := s.engine.Send(ctx, protocol.NewCommand(name))
	if err != nil {
		return decode.MultiSeries{}, err
	}

	series, err := decode.DecodeMultiSeries(reply)
	if err != nil {
		return decode.MultiSeries{}, err
	}

	filled, _ := series.FillGaps()

	return filled, nil
}

// topOpts validates top-list parameters. It returns the decoder options and the count to request
// from the engine, which is the maximum when filtering so that the filter sees every candidate.
func (s *Service) topOpts(params TopParams) (decode.TopOpts, int, error) {
	count, err := resolveCount(params.Count, s.opts.DefaultTopCount, s.opts.MaxTopCount)
	if err != nil {
		return decode.TopOpts{}, 0, err
	}

	if err := validateFilter(params.Filter); err != nil {
		return decode.TopOpts{}, 0, err
	}

	request := count
	if params.Filter != "" {
		request = s.opts.MaxTopCount
	}

	return decode.TopOpts{Limit: count, Filter: params.Filter}, request, nil
}

func (s *Service) step() int64 {
	return int64(s.opts.OverTimeStep / time.Second)
}

func (s *Service) checkWindow(from int64, until int64) error {
	if (until-from)/s.step() >= decode.MaxWindowBuckets {
		return protocol.Errorf(protocol.KindValidation, "stats", "window too large: from=%d until=%d", from, until)
	}

	return nil
}

// resolveCount applies the default to an omitted (zero) count and clamps it to max.
func resolveCount(count int, def int, max int) (int, error) {
	switch {
	case count < 0:
		return 0, protocol.Errorf(protocol.KindValidation, "stats", "count must not be negative: count=%d", count)
	case count == 0:
		return def, nil
	case count > max:
		return max, nil
	default:
		return count, nil
	}
}

func validateFilter(filter string) error {
	if len(filter) > maxFilterLength {
		return protocol.Errorf(protocol.KindValidation, "stats", "filter too long: length=%d", len(filter))
	}

	if strings.IndexFunc(filter, unicode.IsSpace) >= 0 {
		return protocol.Errorf(protocol.KindValidation, "stats", "filter must not contain whitespace: filter=%q", filter)
	}

	return nil
}
