package handlers

import (
	"time"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

type eventResponse struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"`
	UserID     *string        `json:"user_id"`
	IPAddress  *string        `json:"ip_address"`
	UserAgent  *string        `json:"user_agent"`
	Details    map[string]any `json:"details"`
	Severity   string         `json:"severity"`
	Resolved   bool           `json:"resolved"`
	ResolvedBy *string        `json:"resolved_by"`
	ResolvedAt *time.Time     `json:"resolved_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toEvent(e models.SecurityEvent) eventResponse {
	return eventResponse{
		ID:         e.ID,
		EventType:  string(e.Type),
		UserID:     e.UserID,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		Details:    e.Details,
		Severity:   string(e.Severity),
		Resolved:   e.Resolved,
		ResolvedBy: e.ResolvedBy,
		ResolvedAt: e.ResolvedAt,
		CreatedAt:  e.CreatedAt,
	}
}

func toEvents(events []models.SecurityEvent) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEvent(e))
	}
	return out
}

type verificationResponse struct {
	ID           string     `json:"id"`
	EntityType   string     `json:"entity_type"`
	EntityID     string     `json:"entity_id"`
	SubmittedBy  string     `json:"submitted_by"`
	DocumentURL  string     `json:"document_url"`
	DocumentType string     `json:"document_type"`
	Notes        *string    `json:"notes"`
	Status       string     `json:"status"`
	ReviewedBy   *string    `json:"reviewed_by"`
	ReviewNotes  *string    `json:"review_notes"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toVerification(v models.Verification) verificationResponse {
	return verificationResponse{
		ID:           v.ID,
		EntityType:   string(v.EntityType),
		EntityID:     v.EntityID,
		SubmittedBy:  v.SubmittedBy,
		DocumentURL:  v.DocumentURL,
		DocumentType: string(v.DocumentType),
		Notes:        v.Notes,
		Status:       string(v.Status),
		ReviewedBy:   v.ReviewedBy,
		ReviewNotes:  v.ReviewNotes,
		ReviewedAt:   v.ReviewedAt,
		ExpiryDate:   v.ExpiryDate,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func toVerifications(items []models.Verification) []verificationResponse {
	out := make([]verificationResponse, 0, len(items))
	for _, v := range items {
		out = append(out, toVerification(v))
	}
	return out
}

type agentResponse struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	LicenseNumber      *string    `json:"license_number"`
	VerificationStatus string     `json:"verification_status"`
	VerifiedAt         *time.Time `json:"verified_at"`
}

type reportResponse struct {
	ID          string     `json:"id"`
	ReporterID  string     `json:"reporter_id"`
	EntityType  string     `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	Reason      string     `json:"reason"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	AdminNotes  *string    `json:"admin_notes"`
	ResolvedBy  *string    `json:"resolved_by"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toReport(r models.Report) reportResponse {
	return reportResponse{
		ID:          r.ID,
		ReporterID:  r.ReporterID,
		EntityType:  string(r.EntityType),
		EntityID:    r.EntityID,
		Reason:      r.Reason,
		Description: r.Description,
		Status:      string(r.Status),
		AdminNotes:  r.AdminNotes,
		ResolvedBy:  r.ResolvedBy,
		ResolvedAt:  r.ResolvedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type auditResponse struct {
	ID              string     `json:"id"`
	AuditType       string     `json:"audit_type"`
	ScheduledDate   time.Time  `json:"scheduled_date"`
	Status          string     `json:"status"`
	Findings        *string    `json:"findings"`
	Recommendations *string    `json:"recommendations"`
	NextAuditDate   *time.Time `json:"next_audit_date"`
	PerformedBy     *string    `json:"performed_by"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toAudit(a models.SecurityAudit) auditResponse {
	return auditResponse{
		ID:              a.ID,
		AuditType:       string(a.Type),
		ScheduledDate:   a.ScheduledDate,
		Status:          string(a.Status),
		Findings:        a.Findings,
		Recommendations: a.Recommendations,
		NextAuditDate:   a.NextAuditDate,
		PerformedBy:     a.PerformedBy,
		CompletedAt:     a.CompletedAt,
		CreatedBy:       a.CreatedBy,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
