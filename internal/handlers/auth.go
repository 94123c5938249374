package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/middleware"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

type loginFailedRequest struct {
	Email  string `json:"email" binding:"omitempty,email,max=320"`
	Reason string `json:"reason" binding:"max=200"`
}

// LoginFailed lets the hosted sign-in page report a failed attempt so the
// failed-login detection sees it.
func (h HandlerSet) LoginFailed(c *gin.Context) {
	var req loginFailedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respond.Error(c, middleware.BindError(err))
			return
		}
	}

	details := map[string]any{"source": "client"}
	if req.Email != "" {
		details["email"] = strings.ToLower(req.Email)
	}
	if req.Reason != "" {
		details["reason"] = req.Reason
	}
	h.securityLog.Record(c.Request.Context(), service.EventInput{
		Type:     models.EventLoginFailed,
		Severity: models.SeverityMedium,
		Origin:   middleware.Origin(c),
		Details:  details,
	})

	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Recorded"})
}

type meResponse struct {
	ID             string                  `json:"id"`
	Email          string                  `json:"email"`
	Role           string                  `json:"role"`
	StepUpVerified bool                    `json:"stepUpVerified"`
	TwoFactor      service.TwoFactorStatus `json:"twoFactor"`
}

func (h HandlerSet) Me(c *gin.Context) {
	ident := h.identity(c)

	status, err := h.twoFactor.Status(c.Request.Context(), ident.ID)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": meResponse{
			ID:             ident.ID,
			Email:          ident.Email,
			Role:           string(ident.Role),
			StepUpVerified: ident.StepUpVerified,
			TwoFactor:      status,
		},
	})
}
