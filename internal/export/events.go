// Package export renders security events for offline review.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

const (
	eventsSheet  = "Security Events"
	XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var eventHeaders = []any{
	"ID", "Created At", "Event Type", "Severity", "User ID", "IP Address",
	"User Agent", "Details", "Resolved", "Resolved By", "Resolved At",
}

// EventsWorkbook renders events as a single-sheet XLSX file.
func EventsWorkbook(events []models.SecurityEvent) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", eventsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(eventsSheet, "A1", &eventHeaders); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(eventHeaders), 1)
	if err := f.SetCellStyle(eventsSheet, "A1", lastHeader, bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, event := range events {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := eventRow(event)
		if err := f.SetSheetRow(eventsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(eventsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func eventRow(e models.SecurityEvent) []any {
	details := ""
	if len(e.Details) > 0 {
		if raw, err := json.Marshal(e.Details); err == nil {
			details = string(raw)
		}
	}
	return []any{
		e.ID,
		e.CreatedAt.UTC().Format(time.RFC3339),
		string(e.Type),
		string(e.Severity),
		deref(e.UserID),
		deref(e.IPAddress),
		deref(e.UserAgent),
		details,
		e.Resolved,
		deref(e.ResolvedBy),
		formatTime(e.ResolvedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
