package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ftlbridge/internal/decode"
	"ftlbridge/internal/lists"
	"ftlbridge/internal/protocol"
	"ftlbridge/internal/stats"
)

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/admin/api")
	{
		statsGroup := api.Group("/stats")

		statsGroup.GET("/summary", s.handleSummary)
		statsGroup.GET("/summary/stream", s.handleSummaryStream)
		statsGroup.GET("/top_domains", s.handleTopDomains(false))
		statsGroup.GET("/top_blocked", s.handleTopDomains(true))
		statsGroup.GET("/top_clients", s.handleTopClients)
		statsGroup.GET("/forward_destinations", s.handleForwardDestinations)
		statsGroup.GET("/query_types", s.handleQueryTypes)
		statsGroup.GET("/history", s.handleHistory)
		statsGroup.GET("/recent_blocked", s.handleRecentBlocked)
		statsGroup.GET("/clients", s.handleClients)
		statsGroup.GET("/unknown_queries", s.handleUnknownQueries)
		statsGroup.GET("/overTime/history", s.handleOverTimeHistory)
		statsGroup.GET("/overTime/forward_dest", s.handleOverTimeForwardDestinations)
		statsGroup.GET("/overTime/query_types", s.handleOverTimeQueryTypes)
		statsGroup.GET("/overTime/clients", s.handleOverTimeClients)

		dnsGroup := api.Group("/dns")

		dnsGroup.GET("/whitelist", s.handleList(lists.Allow))
		dnsGroup.GET("/blacklist", s.handleList(lists.Deny))
		dnsGroup.GET("/wildlist", s.handleList(lists.Wildcard))
		dnsGroup.GET("/status", s.handleStatus)
	}

	s.router.NoRoute(notFound)
}

// respond runs a facade call with the request context and writes its result.
func respond[T any](s *Server, c *gin.Context, fetch func(ctx context.Context) (T, error)) {
	data, err := fetch(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.Pool != nil {
		body["engine_pool"] = s.Pool.Stats()
	}

	c.JSON(http.StatusOK, body)
}

func (s *Server) handleSummary(c *gin.Context) {
	respond(s, c, s.Stats.Summary)
}

func (s *Server) handleTopDomains(blocked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := limitParam(c)
		if err != nil {
			s.writeError(c, err)
			return
		}

		params := stats.TopParams{Count: limit, Blocked: blocked, Filter: c.Query("filter")}

		respond(s, c, func(ctx context.Context) ([]decode.DomainCount, error) {
			return s.Stats.TopDomains(ctx, params)
		})
	}
}

func (s *Server) handleTopClients(c *gin.Context) {
	limit, err := limitParam(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	params := stats.TopParams{Count: limit, Filter: c.Query("filter")}

	respond(s, c, func(ctx context.Context) ([]decode.ClientCount, error) {
		return s.Stats.TopClients(ctx, params)
	})
}

func (s *Server) handleForwardDestinations(c *gin.Context) {
	respond(s, c, s.Stats.ForwardDestinations)
}

func (s *Server) handleQueryTypes(c *gin.Context) {
	respond(s, c, s.Stats.QueryTypes)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, err := limitParam(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	respond(s, c, func(ctx context.Context) ([]decode.QueryLogEntry, error) {
		return s.Stats.History(ctx, limit)
	})
}

func (s *Server) handleRecentBlocked(c *gin.Context) {
	limit, err := limitParam(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	respond(s, c, func(ctx context.Context) ([]string, error) {
		return s.Stats.RecentBlocked(ctx, limit)
	})
}

func (s *Server) handleClients(c *gin.Context) {
	respond(s, c, s.Stats.Clients)
}

func (s *Server) handleUnknownQueries(c *gin.Context) {
	respond(s, c, s.Stats.UnknownQueries)
}

func (s *Server) handleOverTimeHistory(c *gin.Context) {
	from, until, windowed, err := windowParams(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if !windowed {
		respond(s, c, s.Stats.OverTime)
		return
	}

	respond(s, c, func(ctx context.Context) (stats.OverTime, error) {
		return s.Stats.OverTimeWindow(ctx, from, until)
	})
}

func (s *Server) handleOverTimeForwardDestinations(c *gin.Context) {
	respond(s, c, s.Stats.OverTimeForwardDestinations)
}

func (s *Server) handleOverTimeQueryTypes(c *gin.Context) {
	respond(s, c, s.Stats.OverTimeQueryTypes)
}

func (s *Server) handleOverTimeClients(c *gin.Context) {
	respond(s, c, s.Stats.OverTimeClients)
}

func (s *Server) handleList(kind lists.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(s, c, func(ctx context.Context) ([]decode.ListEntry, error) {
			return s.Lists.List(ctx, kind)
		})
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	respond(s, c, s.Lists.Status)
}

// limitParam parses the optional limit query parameter. An absent limit is reported as zero; an
// explicit limit must be a positive integer.
func limitParam(c *gin.Context) (int, error) {
	raw, ok := c.GetQuery("limit")
	if !ok {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, protocol.Errorf(protocol.KindValidation, "api", "limit must be a positive integer: limit=%q", raw)
	}

	return limit, nil
}

// windowParams parses the from and until query parameters, in Unix seconds. Either both or
// neither must be present.
func windowParams(c *gin.Context) (time.Time, time.Time, bool, error) {
	rawFrom, hasFrom := c.GetQuery("from")
	rawUntil, hasUntil := c.GetQuery("until")

	if !hasFrom && !hasUntil {
		return time.Time{}, time.Time{}, false, nil
	}

	if hasFrom != hasUntil {
		return time.Time{}, time.Time{}, false, protocol.Errorf(protocol.KindValidation, "api", "from and until must be given together")
	}

	from, err := strconv.ParseInt(rawFrom, 10, 64)
	if err != nil || from < 0 {
		return time.Time{}, time.Time{}, false, protocol.Errorf(protocol.KindValidation, "api", "malformed from: from=%q", rawFrom)
	}

	until, err := strconv.ParseInt(rawUntil, 10, 64)
	if err != nil || until < 0 {
		return time.Time{}, time.Time{}, false, protocol.Errorf(protocol.KindValidation, "api", "malformed until: until=%q", rawUntil)
	}

	return time.Unix(from, 0), time.Unix(until, 0), true, nil
}
