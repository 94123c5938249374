package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/ids"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/metrics"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
)

const (
	defaultVerificationPage = 100
	maxVerificationPage     = 500
)

type VerificationService struct {
	store    VerificationStore
	profiles profileReader
	notifier notify.Notifier
	metrics  *metrics.Metrics
	minNotes int
	appURL   string
	log      zerolog.Logger
	now      func() time.Time
}

func NewVerificationService(
	store VerificationStore,
	profiles profileReader,
	notifier notify.Notifier,
	m *metrics.Metrics,
	minRejectionNotes int,
	appURL string,
	log zerolog.Logger,
) *VerificationService {
	if minRejectionNotes <= 0 {
		minRejectionNotes = 10
	}
	return &VerificationService{
		store:    store,
		profiles: profiles,
		notifier: notifier,
		metrics:  m,
		minNotes: minRejectionNotes,
		appURL:   appURL,
		log:      log,
		now:      time.Now,
	}
}

type SubmitInput struct {
	EntityType   models.EntityType
	EntityID     string
	DocumentURL  string
	DocumentType models.DocumentType
	Notes        string
	ExpiryDate   *time.Time
	Submitter    models.Identity
}

// Submit creates a pending verification for an entity the submitter owns or
// manages. Earlier decided records for the entity are left as they are.
func (s *VerificationService) Submit(ctx context.Context, in SubmitInput) (models.Verification, error) {
	fields := map[string]string{}
	if !in.EntityType.Valid() {
		fields["entity_type"] = "must be agent or property"
	}
	if !ids.Valid(in.EntityID) {
		fields["entity_id"] = "must be a valid id"
	}
	ref := strings.TrimSpace(in.DocumentURL)
	switch {
	case ref == "":
		fields["document_url"] = "is required"
	case !isDocumentKey(ref):
		fields["document_url"] = "must reference an uploaded document"
	}
	if !in.DocumentType.Valid() {
		fields["document_type"] = "must be one of license, id, credentials, title_deed, other"
	}
	if len(fields) > 0 {
		return models.Verification{}, apperr.Validation("Invalid verification submission", fields)
	}

	entity, err := s.store.Entity(ctx, in.EntityType, in.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return models.Verification{}, apperr.NotFound("entity_not_found", fmt.Sprintf("%s not found", in.EntityType))
		}
		return models.Verification{}, fmt.Errorf("load %s: %w", in.EntityType, err)
	}
	if !canManage(in.Submitter, entity) {
		return models.Verification{}, apperr.Forbidden("not_owner", "You cannot submit verification for this "+string(in.EntityType))
	}
	if in.Submitter.Role != models.RoleAdmin && !documentOwnedBy(ref, in.Submitter.ID) {
		return models.Verification{}, apperr.Validation("Invalid verification submission",
			map[string]string{"document_url": "must reference a document you uploaded"})
	}

	now := s.now().UTC()
	v := models.Verification{
		ID:           ids.New(),
		EntityType:   in.EntityType,
		EntityID:     in.EntityID,
		SubmittedBy:  in.Submitter.ID,
		DocumentURL:  ref,
		DocumentType: in.DocumentType,
		Notes:        optional(strings.TrimSpace(in.Notes)),
		Status:       models.VerificationPending,
		ExpiryDate:   in.ExpiryDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, v); err != nil {
		return models.Verification{}, fmt.Errorf("create verification: %w", err)
	}

	if in.Submitter.Email != "" {
		s.notify(ctx, notify.VerificationSubmitted(in.Submitter.Email, string(v.EntityType), v.ID))
	}
	return v, nil
}

// SubmitForAgent files a verification against the caller's own agent row.
func (s *VerificationService) SubmitForAgent(ctx context.Context, in SubmitInput) (models.Verification, error) {
	agent, err := s.store.AgentByUserID(ctx, in.Submitter.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAgentNotFound) {
			return models.Verification{}, apperr.NotFound("agent_not_found", "Agent profile not found")
		}
		return models.Verification{}, fmt.Errorf("load agent: %w", err)
	}
	in.EntityType = models.EntityAgent
	in.EntityID = agent.ID
	return s.Submit(ctx, in)
}

func canManage(who models.Identity, entity models.VerifiableEntity) bool {
	if who.Role == models.RoleAdmin || entity.OwnerID == who.ID {
		return true
	}
	return entity.Type == models.EntityProperty && entity.AgentUserID != nil && *entity.AgentUserID == who.ID
}

type DecideInput struct {
	VerificationID string
	Outcome        models.VerificationStatus
	Reviewer       models.Identity
	Notes          string
}

// Decide moves a pending verification to verified or rejected and mirrors
// the outcome onto the target entity. Rejections must carry notes.
func (s *VerificationService) Decide(ctx context.Context, in DecideInput) (models.Verification, error) {
	notes := strings.TrimSpace(in.Notes)

	fields := map[string]string{}
	if !ids.Valid(in.VerificationID) {
		fields["verification_id"] = "must be a valid id"
	}
	if !in.Outcome.Terminal() {
		fields["outcome"] = "must be verified or rejected"
	}
	if in.Outcome == models.VerificationRejected && utf8.RuneCountInString(notes) < s.minNotes {
		fields["review_notes"] = fmt.Sprintf("must be at least %d characters when rejecting", s.minNotes)
	}
	if len(fields) > 0 {
		return models.Verification{}, apperr.Validation("Invalid verification decision", fields)
	}

	decided, err := s.store.Decide(ctx, repository.Decision{
		VerificationID: in.VerificationID,
		Outcome:        in.Outcome,
		ReviewerID:     in.Reviewer.ID,
		Notes:          optional(notes),
		DecidedAt:      s.now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVerificationNotFound):
			return models.Verification{}, apperr.NotFound("verification_not_found", "Verification not found")
		case errors.Is(err, repository.ErrAlreadyDecided):
			return models.Verification{}, apperr.Conflict("already_decided",
				fmt.Sprintf("Verification has already been %s", decided.Status))
		case errors.Is(err, repository.ErrEntityNotFound):
			return models.Verification{}, apperr.NotFound("entity_not_found",
				"The entity this verification targets no longer exists")
		default:
			return models.Verification{}, fmt.Errorf("decide verification: %w", err)
		}
	}

	s.metrics.ObserveDecision(string(decided.EntityType), string(decided.Status))
	s.log.Info().
		Str("verification_id", decided.ID).
		Str("entity_type", string(decided.EntityType)).
		Str("entity_id", decided.EntityID).
		Str("outcome", string(decided.Status)).
		Str("reviewer_id", in.Reviewer.ID).
		Msg("verification decided")

	s.notifyOwner(ctx, decided, notes)
	return decided, nil
}

func (s *VerificationService) notifyOwner(ctx context.Context, v models.Verification, notes string) {
	entity, err := s.store.Entity(ctx, v.EntityType, v.EntityID)
	if err != nil {
		s.log.Warn().Err(err).Str("verification_id", v.ID).Msg("load entity for notification failed")
		return
	}
	owner, err := s.profiles.GetByID(ctx, entity.OwnerID)
	if err != nil || owner.Email == "" {
		s.log.Warn().Err(err).Str("verification_id", v.ID).Msg("no owner email for verification notification")
		return
	}
	s.notify(ctx, notify.VerificationDecided(owner.Email, string(v.EntityType), string(v.Status), notes, s.appURL))
}

func (s *VerificationService) notify(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("kind", string(msg.Kind)).Msg("notification failed")
	}
}

func (s *VerificationService) Get(ctx context.Context, id string) (models.Verification, error) {
	if !ids.Valid(id) {
		return models.Verification{}, apperr.NotFound("verification_not_found", "Verification not found")
	}
	v, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationNotFound) {
			return models.Verification{}, apperr.NotFound("verification_not_found", "Verification not found")
		}
		return models.Verification{}, fmt.Errorf("load verification: %w", err)
	}
	return v, nil
}

// ParseStatusFilter maps a query value onto a status; "" and "all" mean no
// filter.
func ParseStatusFilter(raw string) (models.VerificationStatus, error) {
	switch status := models.VerificationStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case "", "all":
		return "", nil
	case models.VerificationPending, models.VerificationVerified, models.VerificationRejected:
		return status, nil
	default:
		return "", apperr.Validation("Invalid status filter",
			map[string]string{"status": "must be pending, verified, rejected or all"})
	}
}

func (s *VerificationService) List(ctx context.Context, status models.VerificationStatus, limit int) ([]models.Verification, error) {
	if limit <= 0 {
		limit = defaultVerificationPage
	}
	if limit > maxVerificationPage {
		limit = maxVerificationPage
	}
	items, err := s.store.List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	return items, nil
}

type AgentVerificationStatus struct {
	Agent         models.Agent
	Verifications []models.Verification
}

// AgentStatus returns the caller's agent row and its verifications, newest
// first.
func (s *VerificationService) AgentStatus(ctx context.Context, userID string) (AgentVerificationStatus, error) {
	agent, err := s.store.AgentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAgentNotFound) {
			return AgentVerificationStatus{}, apperr.NotFound("agent_not_found", "Agent profile not found")
		}
		return AgentVerificationStatus{}, fmt.Errorf("load agent: %w", err)
	}
	items, err := s.store.ListByEntity(ctx, models.EntityAgent, agent.ID)
	if err != nil {
		return AgentVerificationStatus{}, fmt.Errorf("list agent verifications: %w", err)
	}
	return AgentVerificationStatus{Agent: agent, Verifications: items}, nil
}

func (s *VerificationService) CountPending(ctx context.Context) (int, error) {
	return s.store.CountPending(ctx)
}
