package service

import (
	"context"
	"time"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
)

// The store interfaces below are satisfied by the pgx repositories and by
// the in-memory fakes in servicetest.

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (models.Profile, error)
	ListAlertRecipients(ctx context.Context) ([]models.Profile, error)
	SetLocked(ctx context.Context, id string, locked bool) error
}

type TwoFactorStore interface {
	Get(ctx context.Context, userID string) (models.StepUpCredential, error)
	Save(ctx context.Context, cred models.StepUpCredential) error
	Enable(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
	ConsumeBackupCode(ctx context.Context, userID string, hash string) (bool, error)
	ReplaceBackupCodes(ctx context.Context, userID string, hashes []string, salt []byte) error
}

type EventStore interface {
	Insert(ctx context.Context, event models.SecurityEvent) error
	CountByIPSince(ctx context.Context, eventType models.EventType, ip string, since time.Time) (int, error)
	CountByUserSince(ctx context.Context, eventType models.EventType, userID string, since time.Time) (int, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.SecurityEvent, error)
	Resolve(ctx context.Context, id string, resolvedBy string, at time.Time) (models.SecurityEvent, error)
	Statistics(ctx context.Context, since time.Time) (models.EventStatistics, error)
	CountUnresolvedSevere(ctx context.Context) (int, error)
}

type VerificationStore interface {
	Create(ctx context.Context, v models.Verification) error
	GetByID(ctx context.Context, id string) (models.Verification, error)
	List(ctx context.Context, status models.VerificationStatus, limit int) ([]models.Verification, error)
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]models.Verification, error)
	CountPending(ctx context.Context) (int, error)
	Entity(ctx context.Context, entityType models.EntityType, id string) (models.VerifiableEntity, error)
	AgentByUserID(ctx context.Context, userID string) (models.Agent, error)
	Decide(ctx context.Context, d repository.Decision) (models.Verification, error)
}

type ReportStore interface {
	FindByReporter(ctx context.Context, reporterID string, entityType models.ReportEntityType, entityID string) (models.Report, error)
	Create(ctx context.Context, report models.Report) error
	GetByID(ctx context.Context, id string) (models.Report, error)
	List(ctx context.Context, status models.ReportStatus, limit, offset int) ([]models.Report, error)
	Update(ctx context.Context, report models.Report) (models.Report, error)
	CountOpen(ctx context.Context) (int, error)
}

type AuditStore interface {
	Create(ctx context.Context, audit models.SecurityAudit) error
	GetByID(ctx context.Context, id string) (models.SecurityAudit, error)
	List(ctx context.Context, status models.AuditStatus) ([]models.SecurityAudit, error)
	Update(ctx context.Context, audit models.SecurityAudit, expected models.AuditStatus) (models.SecurityAudit, error)
	DueBy(ctx context.Context, day time.Time) ([]models.SecurityAudit, error)
}

var (
	_ ProfileStore      = (*repository.ProfileRepository)(nil)
	_ TwoFactorStore    = (*repository.TwoFactorRepository)(nil)
	_ EventStore        = (*repository.SecurityEventRepository)(nil)
	_ VerificationStore = (*repository.VerificationRepository)(nil)
	_ ReportStore       = (*repository.ReportRepository)(nil)
	_ AuditStore        = (*repository.AuditRepository)(nil)
)
