package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/middleware"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

var errSetupNotStarted = apperr.Conflict("2fa_not_configured", "Start two-factor setup first")

func (h HandlerSet) TwoFactorStatus(c *gin.Context) {
	status, err := h.twoFactor.Status(c.Request.Context(), h.identity(c).ID)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h HandlerSet) TwoFactorSetup(c *gin.Context) {
	ident := h.identity(c)

	result, err := h.twoFactor.GenerateSecret(c.Request.Context(), ident)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	h.securityLog.Record(c.Request.Context(), service.EventInput{
		Type:     models.EventTwoFactorSetup,
		Severity: models.SeverityLow,
		UserID:   ident.ID,
		Origin:   middleware.Origin(c),
	})

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Scan the QR code, then confirm with a code from your authenticator app",
		"secret":      result.Secret,
		"otpauthUrl":  result.OTPAuthURL,
		"qrCodeUrl":   result.QRCodeURL,
		"backupCodes": result.BackupCodes,
	})
}

type tokenRequest struct {
	Token string `json:"token" binding:"required,min=6,max=10"`
}

// TwoFactorVerify confirms setup with a TOTP code and enables 2FA.
func (h HandlerSet) TwoFactorVerify(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond.Error(c, middleware.BindError(err))
		return
	}
	ident := h.identity(c)
	ctx := c.Request.Context()

	err := h.twoFactor.ConfirmSetup(ctx, ident.ID, req.Token)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrTwoFactorNotConfigured):
		h.respond.Error(c, errSetupNotStarted)
		return
	case apperr.Is(err, apperr.KindValidation):
		h.securityLog.Record(ctx, service.EventInput{
			Type:     models.EventTwoFactorFailed,
			Severity: models.SeverityHigh,
			UserID:   ident.ID,
			Origin:   middleware.Origin(c),
			Details:  map[string]any{"reason": "setup_confirmation"},
		})
		h.respond.Error(c, err)
		return
	default:
		h.respond.Error(c, err)
		return
	}

	h.securityLog.Record(ctx, service.EventInput{
		Type:     models.EventTwoFactorEnabled,
		Severity: models.SeverityMedium,
		UserID:   ident.ID,
		Origin:   middleware.Origin(c),
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Two-factor authentication enabled"})
}

func (h HandlerSet) TwoFactorDisable(c *gin.Context) {
	ident := h.identity(c)
	if err := h.twoFactor.Disable(c.Request.Context(), ident.ID); err != nil {
		h.respond.Error(c, err)
		return
	}

	h.securityLog.Record(c.Request.Context(), service.EventInput{
		Type:     models.EventTwoFactorDisabled,
		Severity: models.SeverityHigh,
		UserID:   ident.ID,
		Origin:   middleware.Origin(c),
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Two-factor authentication disabled"})
}

func (h HandlerSet) RegenerateBackupCodes(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond.Error(c, middleware.BindError(err))
		return
	}
	ident := h.identity(c)

	codes, err := h.twoFactor.RegenerateBackupCodes(c.Request.Context(), ident.ID, req.Token)
	if err != nil {
		if errors.Is(err, service.ErrTwoFactorNotConfigured) {
			err = errSetupNotStarted
		}
		h.respond.Error(c, err)
		return
	}

	h.adminAction(c, "backup_codes_regenerated", nil)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "New backup codes generated; previous codes no longer work",
		"backupCodes": codes,
	})
}
