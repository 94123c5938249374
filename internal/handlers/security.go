package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/export"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/middleware"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
	maxExportRows     = 10000
)

func eventFilter(c *gin.Context, def, max int) models.EventFilter {
	limit := queryInt(c.Query("limit"), def)
	if limit == 0 || limit > max {
		limit = max
	}
	return models.EventFilter{
		Limit:    limit,
		Severity: models.Severity(c.Query("severity")),
		Type:     models.EventType(c.Query("eventType")),
		Resolved: parseBool(c.Query("resolved")),
	}
}

func (h HandlerSet) ListEvents(c *gin.Context) {
	events, err := h.securityLog.List(c.Request.Context(), eventFilter(c, defaultEventLimit, maxEventLimit))
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": toEvents(events)})
}

func (h HandlerSet) UnresolvedEvents(c *gin.Context) {
	limit := queryInt(c.Query("limit"), defaultEventLimit)
	if limit == 0 || limit > maxEventLimit {
		limit = maxEventLimit
	}
	events, err := h.securityLog.Unresolved(c.Request.Context(), limit)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": toEvents(events)})
}

// ExportEvents streams the filtered events as a spreadsheet and records the
// export.
func (h HandlerSet) ExportEvents(c *gin.Context) {
	filter := eventFilter(c, maxExportRows, maxExportRows)
	ctx := c.Request.Context()

	events, err := h.securityLog.List(ctx, filter)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	workbook, err := export.EventsWorkbook(events)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	ident := h.identity(c)
	h.securityLog.Record(ctx, service.EventInput{
		Type:     models.EventDataExport,
		Severity: models.SeverityMedium,
		UserID:   ident.ID,
		Origin:   middleware.Origin(c),
		Details: map[string]any{
			"dataset":  "security_events",
			"rows":     len(events),
			"severity": string(filter.Severity),
			"type":     string(filter.Type),
		},
	})

	filename := fmt.Sprintf("security-events-%s.xlsx", h.now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.XLSXMimeType, workbook)
}

func (h HandlerSet) ResolveEvent(c *gin.Context) {
	ident := h.identity(c)
	event, err := h.securityLog.Resolve(c.Request.Context(), c.Param("id"), ident.ID)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	h.adminAction(c, "security_event_resolved", map[string]any{"event_id": event.ID})
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Security event resolved",
		"event":   toEvent(event),
	})
}

func (h HandlerSet) Statistics(c *gin.Context) {
	stats, err := h.securityLog.Statistics(c.Request.Context())
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
