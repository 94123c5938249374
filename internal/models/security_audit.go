package models

import "time"

type AuditType string

const (
	AuditAccessReview    AuditType = "access_review"
	AuditVulnerability   AuditType = "vulnerability_scan"
	AuditPenetrationTest AuditType = "penetration_test"
	AuditCompliance      AuditType = "compliance_review"
	AuditDataProtection  AuditType = "data_protection"
	AuditIncidentReview  AuditType = "incident_review"
)

func (t AuditType) Valid() bool {
	switch t {
	case AuditAccessReview, AuditVulnerability, AuditPenetrationTest,
		AuditCompliance, AuditDataProtection, AuditIncidentReview:
		return true
	}
	return false
}

type AuditStatus string

const (
	AuditScheduled  AuditStatus = "scheduled"
	AuditInProgress AuditStatus = "in_progress"
	AuditCompleted  AuditStatus = "completed"
	AuditCancelled  AuditStatus = "cancelled"
)

func (s AuditStatus) Valid() bool {
	switch s {
	case AuditScheduled, AuditInProgress, AuditCompleted, AuditCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an audit may move from s to next.
func (s AuditStatus) CanTransition(next AuditStatus) bool {
	switch s {
	case AuditScheduled:
		return next == AuditInProgress || next == AuditCompleted || next == AuditCancelled || next == AuditScheduled
	case AuditInProgress:
		return next == AuditCompleted || next == AuditCancelled || next == AuditInProgress
	default:
		return false
	}
}

type SecurityAudit struct {
	ID              string
	Type            AuditType
	ScheduledDate   time.Time
	Status          AuditStatus
	Findings        *string
	Recommendations *string
	NextAuditDate   *time.Time
	PerformedBy     *string
	CompletedAt     *time.Time
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
