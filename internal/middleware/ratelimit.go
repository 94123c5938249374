package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type EventRecorder interface {
	Record(ctx context.Context, in service.EventInput)
}

// KeyFunc picks the bucket a request counts against. An empty key skips
// limiting.
type KeyFunc func(c *gin.Context) string

func ByIP(scope string) KeyFunc {
	return func(c *gin.Context) string {
		return scope + ":ip:" + c.ClientIP()
	}
}

func ByIdentity(scope string) KeyFunc {
	return func(c *gin.Context) string {
		if ident, ok := CurrentIdentity(c); ok {
			return scope + ":user:" + ident.ID
		}
		return scope + ":ip:" + c.ClientIP()
	}
}

// RateLimit rejects requests over the limiter's budget with 429 and records
// a rate_limit_exceeded event. Limiter errors let the request through.
func RateLimit(limiter Limiter, key KeyFunc, events EventRecorder, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		bucket := key(c)
		if bucket == "" {
			c.Next()
			return
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), bucket)
		if err != nil {
			log.Warn().Err(err).Str("bucket", bucket).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}

		in := service.EventInput{
			Type:     models.EventRateLimitExceeded,
			Severity: models.SeverityMedium,
			Origin:   Origin(c),
			Details:  map[string]any{"bucket": bucket},
		}
		if ident, ok := CurrentIdentity(c); ok {
			in.UserID = ident.ID
		}
		events.Record(c.Request.Context(), in)

		seconds := int(retryAfter.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		TooManyRequests(c, strconv.Itoa(seconds))
	}
}
