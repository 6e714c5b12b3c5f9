package api

import (
	"context"
	"net/http"

	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"

	"ftlbridge/internal/metrics"
	"ftlbridge/internal/protocol"
)

// errorBody is the error half of the response envelope.
type errorBody struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// statusFor maps an error kind to the HTTP status reported to clients.
func statusFor(kind protocol.Kind) int {
	switch kind {
	case protocol.KindValidation:
		return http.StatusBadRequest
	case protocol.KindParse, protocol.KindEngine:
		return http.StatusBadGateway
	case protocol.KindConnection:
		return http.StatusServiceUnavailable
	case protocol.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// keyFor names an error kind in the response body.
func keyFor(kind protocol.Kind) string {
	if kind == protocol.KindUnknown {
		return "internal"
	}

	return kind.String()
}

// writeError reports a failed facade call to the client.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := protocol.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		s.ConsumeError(c.Request.Context(), c.FullPath(), err)
	} else {
		s.Logger.Debug("api: rejected request: path=%s err=%v", c.Request.URL.Path, err)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Key: keyFor(kind), Message: err.Error()}})
}

// ConsumeError logs and reports a server-side failure, tagged with the request ID carried by ctx.
func (s *Server) ConsumeError(ctx context.Context, path string, err error) {
	kind := protocol.KindOf(err)
	tags := errorTags(ctx, path, kind)

	s.Logger.Error("api: request failed: path=%s kind=%s request_id=%s err=%v", path, kind, tags["request_id"], err)
	metrics.RecordEngineError(kind.String())

	raven.CaptureError(err, tags)
}

func errorTags(ctx context.Context, path string, kind protocol.Kind) map[string]string {
	tags := map[string]string{
		"kind": kind.String(),
		"path": path,
	}

	if id := requestIDFrom(ctx); id != "" {
		tags["request_id"] = id
	}

	return tags
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": errorBody{
		Key:     "not_found",
		Message: "api: no such route: path=" + c.Request.URL.Path,
	}})
}
