package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// quietPaths are polled constantly and only logged at debug level when they
// succeed.
var quietPaths = map[string]struct{}{
	"/api/healthz": {},
	"/metrics":     {},
}

func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			if _, quiet := quietPaths[c.Request.URL.Path]; quiet {
				event = log.Debug()
			} else {
				event = log.Info()
			}
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if ident, ok := CurrentIdentity(c); ok {
			event = event.Str("user_id", ident.ID).Str("role", string(ident.Role))
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("request_id", c.Writer.Header().Get(requestIDHeader)).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
