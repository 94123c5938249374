package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/middleware"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

type createReportRequest struct {
	EntityType  string `json:"entity_type" binding:"required"`
	EntityID    string `json:"entity_id" binding:"required"`
	Reason      string `json:"reason" binding:"required,max=200"`
	Description string `json:"description" binding:"max=5000"`
}

// CreateReport files a report. Reporting the same entity twice returns the
// first report instead of creating another.
func (h HandlerSet) CreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond.Error(c, middleware.BindError(err))
		return
	}

	result, err := h.reports.Create(c.Request.Context(), service.CreateReportInput{
		ReporterID:  h.identity(c).ID,
		EntityType:  models.ReportEntityType(req.EntityType),
		EntityID:    req.EntityID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	status, message := http.StatusCreated, "Report submitted"
	if result.Duplicate {
		status, message = http.StatusOK, "You have already reported this"
	}
	c.JSON(status, gin.H{
		"success":   true,
		"message":   message,
		"report_id": result.Report.ID,
		"duplicate": result.Duplicate,
	})
}
