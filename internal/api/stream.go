package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ftlbridge/internal/protocol"
)

const streamWriteTimeout = 5 * time.Second

// handleSummaryStream upgrades the request to a websocket and pushes a fresh summary every
// stream interval until the client disconnects. Each message carries the same envelope as the
// summary endpoint, so a failed snapshot is reported in place without closing the stream.
func (s *Server) handleSummaryStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warn("api: error upgrading summary stream: err=%v", err)
		return
	}
	defer conn.Close()

	// Clear any deadline inherited from the HTTP server's read timeout.
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client sends nothing; reading only detects its departure.
	go func() {
		defer cancel()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.Logger.Debug("api: opened summary stream: client=%s", c.ClientIP())

	ticker := time.NewTicker(s.Opts.StreamInterval)
	defer ticker.Stop()

	for {
		if err := s.pushSummary(ctx, conn); err != nil {
			s.Logger.Debug("api: closed summary stream: client=%s err=%v", c.ClientIP(), err)
			return
		}

		select {
		case <-ctx.Done():
			s.Logger.Debug("api: closed summary stream: client=%s", c.ClientIP())
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) pushSummary(ctx context.Context, conn *websocket.Conn) error {
	var message interface{}

	summary, err := s.Stats.Summary(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		kind := protocol.KindOf(err)
		if statusFor(kind) >= http.StatusInternalServerError {
			s.ConsumeError(ctx, "/admin/api/stats/summary/stream", err)
		}

		message = gin.H{"error": errorBody{Key: keyFor(kind), Message: err.Error()}}
	} else {
		message = gin.H{"data": summary}
	}

	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(message)
}

// checkOrigin permits same-host requests, requests without an Origin header, and configured
// origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || allowsAnyOrigin(s.Opts.AllowedOrigins) {
		return true
	}

	for _, allowed := range s.Opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}

	parsed, err := url.Parse(origin)
	return err == nil && parsed.Host == r.Host
}
