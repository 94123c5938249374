package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

const (
	stepUpHeader         = "X-2FA-Token"
	backupCodeUsedHeader = "X-2FA-Backup-Code-Used"
)

var errUnauthenticated = apperr.Unauthenticated("unauthenticated", "Authentication required")

// Authenticate admits the request through the access gate and stores the
// resulting identity on the context.
func Authenticate(gate *service.AccessGate, respond Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := gate.Authenticate(c.Request.Context(), service.AuthRequest{
			Authorization: c.GetHeader("Authorization"),
			StepUpToken:   c.GetHeader(stepUpHeader),
			Origin:        Origin(c),
		})
		if err != nil {
			respond.Error(c, err)
			return
		}

		if ident.UsedBackupCode {
			c.Header(backupCodeUsedHeader, "true")
		}
		c.Set(identityKey, ident)

		c.Next()
	}
}

// RequireRoles must run after Authenticate.
func RequireRoles(gate *service.AccessGate, respond Responder, roles ...models.Role) gin.HandlerFunc {
	allowed := models.NewRoleSet(roles...)

	return func(c *gin.Context) {
		ident, ok := CurrentIdentity(c)
		if !ok {
			respond.Error(c, errUnauthenticated)
			return
		}
		if err := gate.Authorize(c.Request.Context(), ident, allowed, Origin(c)); err != nil {
			respond.Error(c, err)
			return
		}

		c.Next()
	}
}
