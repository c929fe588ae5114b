package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/audit"
	"github.com/yigit/scribelink/internal/pkg/metrics"
)

// SessionIDHeader carries the browser's locally generated session id.
const SessionIDHeader = "X-Session-ID"

const sessionIDKey = "sessionID"

// SessionID reads the client session id from the header or the "sessionId"
// query parameter, generating one when absent, and echoes it back. It also
// tags the request context with the client address for audit entries.
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionIDHeader)
		if id == "" {
			id = c.Query("sessionId")
		}
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(sessionIDKey, id)
		c.Header(SessionIDHeader, id)
		c.Request = c.Request.WithContext(audit.WithClient(c.Request.Context(), c.ClientIP(), c.Request.UserAgent()))
		c.Next()
	}
}

// Metrics records request counts and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		event.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("clientIP", c.ClientIP()).
			Str("sessionID", c.GetString(sessionIDKey)).
			Msg("Request handled")
	}
}

// GetSessionID returns the client session id set by SessionID.
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
