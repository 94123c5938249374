package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/ids"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
)

type AuditService struct {
	store AuditStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewAuditService(store AuditStore, log zerolog.Logger) *AuditService {
	return &AuditService{store: store, log: log, now: time.Now}
}

type ScheduleAuditInput struct {
	Type          models.AuditType
	ScheduledDate time.Time
	CreatedBy     string
}

func (s *AuditService) Schedule(ctx context.Context, in ScheduleAuditInput) (models.SecurityAudit, error) {
	fields := map[string]string{}
	if !in.Type.Valid() {
		fields["audit_type"] = "unknown audit type"
	}
	if in.ScheduledDate.IsZero() {
		fields["scheduled_date"] = "is required"
	}
	if len(fields) > 0 {
		return models.SecurityAudit{}, apperr.Validation("Invalid audit", fields)
	}

	now := s.now().UTC()
	audit := models.SecurityAudit{
		ID:            ids.New(),
		Type:          in.Type,
		ScheduledDate: in.ScheduledDate.UTC(),
		Status:        models.AuditScheduled,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, audit); err != nil {
		return models.SecurityAudit{}, fmt.Errorf("create audit: %w", err)
	}
	return audit, nil
}

func (s *AuditService) List(ctx context.Context, status models.AuditStatus) ([]models.SecurityAudit, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("Invalid status filter",
			map[string]string{"status": "must be scheduled, in_progress, completed or cancelled"})
	}
	audits, err := s.store.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	return audits, nil
}

type UpdateAuditInput struct {
	ID              string
	Status          models.AuditStatus
	ScheduledDate   *time.Time
	Findings        *string
	Recommendations *string
	NextAuditDate   *time.Time
	Actor           models.Identity
}

type UpdateAuditResult struct {
	Audit    models.SecurityAudit
	FollowUp *models.SecurityAudit
}

// Update applies a status transition. Completing an audit with a next audit
// date schedules the follow-up of the same type.
func (s *AuditService) Update(ctx context.Context, in UpdateAuditInput) (UpdateAuditResult, error) {
	current, err := s.store.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAuditNotFound) {
			return UpdateAuditResult{}, apperr.NotFound("audit_not_found", "Security audit not found")
		}
		return UpdateAuditResult{}, fmt.Errorf("load audit: %w", err)
	}

	next := in.Status
	if next == "" {
		next = current.Status
	}
	if !next.Valid() {
		return UpdateAuditResult{}, apperr.Validation("Invalid audit update",
			map[string]string{"status": "must be scheduled, in_progress, completed or cancelled"})
	}
	if !current.Status.CanTransition(next) {
		return UpdateAuditResult{}, apperr.Conflict("invalid_transition",
			fmt.Sprintf("Cannot move audit from %s to %s", current.Status, next))
	}

	updated := current
	updated.Status = next
	if in.ScheduledDate != nil {
		if next != models.AuditScheduled {
			return UpdateAuditResult{}, apperr.Validation("Invalid audit update",
				map[string]string{"scheduled_date": "can only change while scheduled"})
		}
		updated.ScheduledDate = in.ScheduledDate.UTC()
	}
	if in.Findings != nil {
		updated.Findings = optional(strings.TrimSpace(*in.Findings))
	}
	if in.Recommendations != nil {
		updated.Recommendations = optional(strings.TrimSpace(*in.Recommendations))
	}
	if in.NextAuditDate != nil {
		d := in.NextAuditDate.UTC()
		updated.NextAuditDate = &d
	}
	if next == models.AuditCompleted {
		now := s.now().UTC()
		updated.CompletedAt = &now
		updated.PerformedBy = &in.Actor.ID
		if updated.NextAuditDate != nil && !updated.NextAuditDate.After(now) {
			return UpdateAuditResult{}, apperr.Validation("Invalid audit update",
				map[string]string{"next_audit_date": "must be in the future"})
		}
	}

	saved, err := s.store.Update(ctx, updated, current.Status)
	if err != nil {
		if errors.Is(err, repository.ErrAuditNotFound) {
			return UpdateAuditResult{}, apperr.Conflict("audit_changed", "Security audit was modified concurrently")
		}
		return UpdateAuditResult{}, fmt.Errorf("update audit: %w", err)
	}

	result := UpdateAuditResult{Audit: saved}
	if saved.Status == models.AuditCompleted && current.Status != models.AuditCompleted && saved.NextAuditDate != nil {
		followUp, err := s.Schedule(ctx, ScheduleAuditInput{
			Type:          saved.Type,
			ScheduledDate: *saved.NextAuditDate,
			CreatedBy:     in.Actor.ID,
		})
		if err != nil {
			s.log.Error().Err(err).Str("audit_id", saved.ID).Msg("schedule follow-up audit failed")
		} else {
			result.FollowUp = &followUp
		}
	}
	return result, nil
}

// Due lists scheduled audits on or before day.
func (s *AuditService) Due(ctx context.Context, day time.Time) ([]models.SecurityAudit, error) {
	return s.store.DueBy(ctx, day)
}
