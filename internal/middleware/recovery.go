package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into the standard internal_error body.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			event := log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str("request_id", c.Writer.Header().Get(requestIDHeader)).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path)
			if ident, ok := CurrentIdentity(c); ok {
				event = event.Str("user_id", ident.ID)
			}
			event.Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "An internal error occurred. Please try again later.",
			})
		}()
		c.Next()
	}
}
