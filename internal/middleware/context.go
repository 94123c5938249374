package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

const (
	requestIDHeader = "X-Request-Id"
	identityKey     = "identity"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		c.Set(requestIDHeader, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// Origin describes the request for security events.
func Origin(c *gin.Context) models.Origin {
	return models.Origin{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	}
}

// CurrentIdentity returns the identity Authenticate admitted.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	ident, ok := v.(models.Identity)
	return ident, ok
}
