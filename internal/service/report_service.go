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

const maxReportPage = 200

type ReportService struct {
	store ReportStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewReportService(store ReportStore, log zerolog.Logger) *ReportService {
	return &ReportService{store: store, log: log, now: time.Now}
}

type CreateReportInput struct {
	ReporterID  string
	EntityType  models.ReportEntityType
	EntityID    string
	Reason      string
	Description string
}

type CreateReportResult struct {
	Report    models.Report
	Duplicate bool
}

// Create files a report. A reporter gets one report per entity: repeating
// the call returns the existing report with Duplicate set.
func (s *ReportService) Create(ctx context.Context, in CreateReportInput) (CreateReportResult, error) {
	fields := map[string]string{}
	if !in.EntityType.Valid() {
		fields["entity_type"] = "must be property, agent or user"
	}
	if !ids.Valid(in.EntityID) {
		fields["entity_id"] = "must be a valid id"
	}
	if strings.TrimSpace(in.Reason) == "" {
		fields["reason"] = "is required"
	}
	if len(fields) > 0 {
		return CreateReportResult{}, apperr.Validation("Invalid report", fields)
	}

	existing, err := s.store.FindByReporter(ctx, in.ReporterID, in.EntityType, in.EntityID)
	if err == nil {
		return CreateReportResult{Report: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, repository.ErrReportNotFound) {
		return CreateReportResult{}, fmt.Errorf("check existing report: %w", err)
	}

	now := s.now().UTC()
	report := models.Report{
		ID:          ids.New(),
		ReporterID:  in.ReporterID,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Reason:      strings.TrimSpace(in.Reason),
		Description: optional(strings.TrimSpace(in.Description)),
		Status:      models.ReportNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, report); err != nil {
		if errors.Is(err, repository.ErrDuplicateReport) {
			// Lost a race with a concurrent identical report.
			existing, findErr := s.store.FindByReporter(ctx, in.ReporterID, in.EntityType, in.EntityID)
			if findErr != nil {
				return CreateReportResult{}, fmt.Errorf("load duplicate report: %w", findErr)
			}
			return CreateReportResult{Report: existing, Duplicate: true}, nil
		}
		return CreateReportResult{}, fmt.Errorf("create report: %w", err)
	}
	return CreateReportResult{Report: report}, nil
}

func (s *ReportService) List(ctx context.Context, status models.ReportStatus, limit, offset int) ([]models.Report, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("Invalid status filter",
			map[string]string{"status": "must be new, investigating, resolved or dismissed"})
	}
	if limit <= 0 || limit > maxReportPage {
		limit = maxReportPage
	}
	if offset < 0 {
		offset = 0
	}
	reports, err := s.store.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (s *ReportService) Get(ctx context.Context, id string) (models.Report, error) {
	report, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return models.Report{}, apperr.NotFound("report_not_found", "Report not found")
		}
		return models.Report{}, fmt.Errorf("load report: %w", err)
	}
	return report, nil
}

type UpdateReportInput struct {
	ID         string
	Status     models.ReportStatus
	AdminNotes *string
	Admin      models.Identity
}

// UpdateStatus moves a report to any status. Closing statuses stamp the
// resolver; reopening clears it.
func (s *ReportService) UpdateStatus(ctx context.Context, in UpdateReportInput) (models.Report, error) {
	if !in.Status.Valid() {
		return models.Report{}, apperr.Validation("Invalid report update",
			map[string]string{"status": "must be new, investigating, resolved or dismissed"})
	}

	report, err := s.Get(ctx, in.ID)
	if err != nil {
		return models.Report{}, err
	}

	report.Status = in.Status
	if in.AdminNotes != nil {
		report.AdminNotes = optional(strings.TrimSpace(*in.AdminNotes))
	}
	if in.Status.Closed() {
		now := s.now().UTC()
		report.ResolvedBy = &in.Admin.ID
		report.ResolvedAt = &now
	} else {
		report.ResolvedBy = nil
		report.ResolvedAt = nil
	}

	updated, err := s.store.Update(ctx, report)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return models.Report{}, apperr.NotFound("report_not_found", "Report not found")
		}
		return models.Report{}, fmt.Errorf("update report: %w", err)
	}
	return updated, nil
}

func (s *ReportService) CountOpen(ctx context.Context) (int, error) {
	return s.store.CountOpen(ctx)
}
