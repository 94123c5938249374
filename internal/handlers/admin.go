package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/middleware"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

func (h HandlerSet) AdminStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h HandlerSet) ListVerifications(c *gin.Context) {
	status, err := service.ParseStatusFilter(c.Query("status"))
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	items, err := h.verifications.List(c.Request.Context(), status, queryInt(c.Query("limit"), 0))
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verifications": toVerifications(items)})
}

// VerificationDocument redirects to a short-lived link for the submitted
// document.
func (h HandlerSet) VerificationDocument(c *gin.Context) {
	v, err := h.verifications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	url, err := h.documents.ViewURL(c.Request.Context(), v.DocumentURL)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, url)
}

type decisionRequest struct {
	VerificationID string `json:"verification_id" binding:"required"`
	ReviewNotes    string `json:"review_notes"`
}

func (h HandlerSet) ApproveVerification(c *gin.Context) {
	h.decide(c, models.VerificationVerified, "Verification approved")
}

func (h HandlerSet) RejectVerification(c *gin.Context) {
	h.decide(c, models.VerificationRejected, "Verification rejected")
}

func (h HandlerSet) decide(c *gin.Context, outcome models.VerificationStatus, message string) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond.Error(c, middleware.BindError(err))
		return
	}

	decided, err := h.verifications.Decide(c.Request.Context(), service.DecideInput{
		VerificationID: strings.TrimSpace(req.VerificationID),
		Outcome:        outcome,
		Reviewer:       h.identity(c),
		Notes:          req.ReviewNotes,
	})
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	h.adminAction(c, "verification_"+string(outcome), map[string]any{
		"verification_id": decided.ID,
		"entity_type":     string(decided.EntityType),
		"entity_id":       decided.EntityID,
	})
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      message,
		"verification": toVerification(decided),
	})
}

func (h HandlerSet) ListReports(c *gin.Context) {
	reports, err := h.reports.List(c.Request.Context(),
		models.ReportStatus(c.Query("status")),
		queryInt(c.Query("limit"), 50),
		queryInt(c.Query("offset"), 0),
	)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	items := make([]reportResponse, 0, len(reports))
	for _, r := range reports {
		items = append(items, toReport(r))
	}
	c.JSON(http.StatusOK, gin.H{"reports": items})
}

func (h HandlerSet) GetReport(c *gin.Context) {
	id, err := pathID(c, "report_not_found", "Report not found")
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": toReport(report)})
}

type updateReportRequest struct {
	Status     string  `json:"status" binding:"required"`
	AdminNotes *string `json:"admin_notes" binding:"omitempty,max=5000"`
}

func (h HandlerSet) UpdateReport(c *gin.Context) {
	id, err := pathID(c, "report_not_found", "Report not found")
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	var req updateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond.Error(c, middleware.BindError(err))
		return
	}

	report, err := h.reports.UpdateStatus(c.Request.Context(), service.UpdateReportInput{
		ID:         id,
		Status:     models.ReportStatus(req.Status),
		AdminNotes: req.AdminNotes,
		Admin:      h.identity(c),
	})
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	h.adminAction(c, "report_updated", map[string]any{"report_id": report.ID, "status": string(report.Status)})
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Report updated",
		"report":  toReport(report),
	})
}

func (h HandlerSet) LockUser(c *gin.Context) {
	h.setLocked(c, true)
}

func (h HandlerSet) UnlockUser(c *gin.Context) {
	h.setLocked(c, false)
}

func (h HandlerSet) setLocked(c *gin.Context, locked bool) {
	actor := h.identity(c)
	userID, err := pathID(c, "user_not_found", "User not found")
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	if err := h.admin.SetLocked(c.Request.Context(), actor.ID, userID, locked); err != nil {
		h.respond.Error(c, err)
		return
	}

	in := service.EventInput{
		Type:     models.EventAccountUnlocked,
		Severity: models.SeverityLow,
		UserID:   userID,
		Origin:   middleware.Origin(c),
		Details:  map[string]any{"actor_id": actor.ID},
	}
	message := "Account unlocked"
	if locked {
		in.Type = models.EventAccountLocked
		in.Severity = models.SeverityHigh
		message = "Account locked"
	}
	h.securityLog.Record(c.Request.Context(), in)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// AdminDisableTwoFactor clears another identity's step-up credential, for
// users who have lost both their authenticator and backup codes.
func (h HandlerSet) AdminDisableTwoFactor(c *gin.Context) {
	actor := h.identity(c)
	userID, err := pathID(c, "user_not_found", "User not found")
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.admin.User(ctx, userID); err != nil {
		h.respond.Error(c, err)
		return
	}
	if err := h.twoFactor.Disable(ctx, userID); err != nil {
		h.respond.Error(c, err)
		return
	}

	h.securityLog.Record(ctx, service.EventInput{
		Type:     models.EventTwoFactorDisabled,
		Severity: models.SeverityHigh,
		UserID:   userID,
		Origin:   middleware.Origin(c),
		Details:  map[string]any{"actor_id": actor.ID},
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Two-factor authentication disabled"})
}
