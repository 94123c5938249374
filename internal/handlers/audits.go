package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/middleware"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

func (h HandlerSet) ListAudits(c *gin.Context) {
	audits, err := h.audits.List(c.Request.Context(), models.AuditStatus(c.Query("status")))
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	items := make([]auditResponse, 0, len(audits))
	for _, a := range audits {
		items = append(items, toAudit(a))
	}
	c.JSON(http.StatusOK, gin.H{"audits": items})
}

type scheduleAuditRequest struct {
	AuditType     string `json:"audit_type" binding:"required"`
	ScheduledDate string `json:"scheduled_date" binding:"required"`
}

func (h HandlerSet) ScheduleAudit(c *gin.Context) {
	var req scheduleAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond.Error(c, middleware.BindError(err))
		return
	}
	scheduled, err := parseDate("scheduled_date", req.ScheduledDate)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	audit, err := h.audits.Schedule(c.Request.Context(), service.ScheduleAuditInput{
		Type:          models.AuditType(req.AuditType),
		ScheduledDate: *scheduled,
		CreatedBy:     h.identity(c).ID,
	})
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	h.adminAction(c, "security_audit_scheduled", map[string]any{"audit_id": audit.ID, "audit_type": string(audit.Type)})
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Security audit scheduled",
		"audit":   toAudit(audit),
	})
}

type updateAuditRequest struct {
	Status          string  `json:"status"`
	ScheduledDate   string  `json:"scheduled_date"`
	Findings        *string `json:"findings"`
	Recommendations *string `json:"recommendations"`
	NextAuditDate   string  `json:"next_audit_date"`
}

func (h HandlerSet) UpdateAudit(c *gin.Context) {
	id, err := pathID(c, "audit_not_found", "Security audit not found")
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	var req updateAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond.Error(c, middleware.BindError(err))
		return
	}
	scheduled, err := parseDate("scheduled_date", req.ScheduledDate)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	next, err := parseDate("next_audit_date", req.NextAuditDate)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	if req.Status == "" && scheduled == nil && req.Findings == nil && req.Recommendations == nil && next == nil {
		h.respond.Error(c, apperr.Validation("Nothing to update", map[string]string{"body": "no changes supplied"}))
		return
	}

	result, err := h.audits.Update(c.Request.Context(), service.UpdateAuditInput{
		ID:              id,
		Status:          models.AuditStatus(req.Status),
		ScheduledDate:   scheduled,
		Findings:        req.Findings,
		Recommendations: req.Recommendations,
		NextAuditDate:   next,
		Actor:           h.identity(c),
	})
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	details := map[string]any{"audit_id": result.Audit.ID, "status": string(result.Audit.Status)}
	resp := gin.H{
		"success": true,
		"message": "Security audit updated",
		"audit":   toAudit(result.Audit),
	}
	if result.FollowUp != nil {
		details["follow_up_id"] = result.FollowUp.ID
		resp["followUp"] = toAudit(*result.FollowUp)
	}
	h.adminAction(c, "security_audit_updated", details)
	c.JSON(http.StatusOK, resp)
}
