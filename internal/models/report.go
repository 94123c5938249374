package models

import "time"

type ReportStatus string

const (
	ReportNew           ReportStatus = "new"
	ReportInvestigating ReportStatus = "investigating"
	ReportResolved      ReportStatus = "resolved"
	ReportDismissed     ReportStatus = "dismissed"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportNew, ReportInvestigating, ReportResolved, ReportDismissed:
		return true
	}
	return false
}

func (s ReportStatus) Closed() bool {
	return s == ReportResolved || s == ReportDismissed
}

type ReportEntityType string

const (
	ReportEntityProperty ReportEntityType = "property"
	ReportEntityAgent    ReportEntityType = "agent"
	ReportEntityUser     ReportEntityType = "user"
)

func (t ReportEntityType) Valid() bool {
	return t == ReportEntityProperty || t == ReportEntityAgent || t == ReportEntityUser
}

type Report struct {
	ID          string
	ReporterID  string
	EntityType  ReportEntityType
	EntityID    string
	Reason      string
	Description *string
	Status      ReportStatus
	AdminNotes  *string
	ResolvedBy  *string
	ResolvedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
