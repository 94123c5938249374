package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
)

type pendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type openReportCounter interface {
	CountOpen(ctx context.Context) (int, error)
}

type severeEventCounter interface {
	CountUnresolvedSevere(ctx context.Context) (int, error)
}

type AdminService struct {
	profiles      ProfileStore
	verifications pendingCounter
	reports       openReportCounter
	events        severeEventCounter
	log           zerolog.Logger
}

func NewAdminService(
	profiles ProfileStore,
	verifications pendingCounter,
	reports openReportCounter,
	events severeEventCounter,
	log zerolog.Logger,
) *AdminService {
	return &AdminService{
		profiles:      profiles,
		verifications: verifications,
		reports:       reports,
		events:        events,
		log:           log,
	}
}

type DashboardStats struct {
	PendingVerifications   int `json:"pendingVerifications"`
	OpenReports            int `json:"openReports"`
	UnresolvedSevereEvents int `json:"unresolvedSevereEvents"`
}

func (s *AdminService) Stats(ctx context.Context) (DashboardStats, error) {
	var (
		stats DashboardStats
		err   error
	)
	if stats.PendingVerifications, err = s.verifications.CountPending(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("count pending verifications: %w", err)
	}
	if stats.OpenReports, err = s.reports.CountOpen(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("count open reports: %w", err)
	}
	if stats.UnresolvedSevereEvents, err = s.events.CountUnresolvedSevere(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("count unresolved events: %w", err)
	}
	return stats, nil
}

// SetLocked locks or unlocks a user. Admins cannot lock themselves out.
func (s *AdminService) SetLocked(ctx context.Context, actorID, userID string, locked bool) error {
	if locked && actorID == userID {
		return apperr.Conflict("cannot_lock_self", "You cannot lock your own account")
	}
	if err := s.profiles.SetLocked(ctx, userID, locked); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return apperr.NotFound("user_not_found", "User not found")
		}
		return fmt.Errorf("set account lock: %w", err)
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", userID).Bool("locked", locked).Msg("account lock changed")
	return nil
}

// User loads the profile an admin action targets.
func (s *AdminService) User(ctx context.Context, userID string) (models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return models.Profile{}, apperr.NotFound("user_not_found", "User not found")
		}
		return models.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}
