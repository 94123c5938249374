package models

import "time"

type EventType string

const (
	EventLoginSuccess       EventType = "login_success"
	EventLoginFailed        EventType = "login_failed"
	EventTwoFactorSetup     EventType = "2fa_setup"
	EventTwoFactorEnabled   EventType = "2fa_enabled"
	EventTwoFactorDisabled  EventType = "2fa_disabled"
	EventTwoFactorFailed    EventType = "2fa_failed"
	EventUnauthorizedAccess EventType = "unauthorized_access_attempt"
	EventSuspiciousActivity EventType = "suspicious_activity"
	EventRateLimitExceeded  EventType = "rate_limit_exceeded"
	EventAdminAction        EventType = "admin_action"
	EventDataExport         EventType = "data_export"
	EventAccountLocked      EventType = "account_locked"
	EventAccountUnlocked    EventType = "account_unlocked"
)

var eventTypes = map[EventType]struct{}{
	EventLoginSuccess: {}, EventLoginFailed: {}, EventTwoFactorSetup: {},
	EventTwoFactorEnabled: {}, EventTwoFactorDisabled: {}, EventTwoFactorFailed: {},
	EventUnauthorizedAccess: {}, EventSuspiciousActivity: {}, EventRateLimitExceeded: {},
	EventAdminAction: {}, EventDataExport: {}, EventAccountLocked: {}, EventAccountUnlocked: {},
}

func (t EventType) Valid() bool {
	_, ok := eventTypes[t]
	return ok
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Alerting reports whether events of this severity are pushed to admins.
func (s Severity) Alerting() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// SecurityEvent is immutable once written except for the resolution fields,
// which are set together.
type SecurityEvent struct {
	ID         string
	Type       EventType
	UserID     *string
	IPAddress  *string
	UserAgent  *string
	Details    map[string]any
	Severity   Severity
	Resolved   bool
	ResolvedBy *string
	ResolvedAt *time.Time
	CreatedAt  time.Time
}

type EventFilter struct {
	Limit    int
	Severity Severity
	Type     EventType
	Resolved *bool
}

type EventStatistics struct {
	Total             int `json:"total"`
	Critical          int `json:"critical"`
	High              int `json:"high"`
	Unresolved        int `json:"unresolved"`
	FailedLoginsToday int `json:"failedLogins24h"`
}
