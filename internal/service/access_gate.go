package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/identity"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
)

type AuthRequest struct {
	Authorization string
	StepUpToken   string
	Origin        models.Origin
}

type profileReader interface {
	GetByID(ctx context.Context, id string) (models.Profile, error)
}

type stepUpVerifier interface {
	IsEnabled(ctx context.Context, userID string) (bool, error)
	Verify(ctx context.Context, userID, code string) (VerifyResult, error)
}

type eventRecorder interface {
	Record(ctx context.Context, in EventInput)
}

// AccessGate admits requests: bearer credential, then step-up for admins,
// then (separately) role authorization.
type AccessGate struct {
	verifier identity.Verifier
	profiles profileReader
	stepUp   stepUpVerifier
	events   eventRecorder
	log      zerolog.Logger
}

func NewAccessGate(
	verifier identity.Verifier,
	profiles profileReader,
	stepUp stepUpVerifier,
	events eventRecorder,
	log zerolog.Logger,
) *AccessGate {
	return &AccessGate{
		verifier: verifier,
		profiles: profiles,
		stepUp:   stepUp,
		events:   events,
		log:      log,
	}
}

func (g *AccessGate) Authenticate(ctx context.Context, req AuthRequest) (models.Identity, error) {
	token, ok := bearerToken(req.Authorization)
	if !ok {
		return models.Identity{}, apperr.Unauthenticated("unauthenticated", "Missing or malformed bearer token")
	}

	subject, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return models.Identity{}, g.credentialError(ctx, err, req.Origin)
	}
	if subject.ID == "" {
		return models.Identity{}, apperr.Unauthenticated("invalid_token", "Invalid or expired token")
	}

	ident := models.Identity{ID: subject.ID, Email: subject.Email, Role: models.RoleBuyer}

	profile, err := g.profiles.GetByID(ctx, subject.ID)
	switch {
	case err == nil:
		ident.Role = profile.Role
		if ident.Email == "" {
			ident.Email = profile.Email
		}
		if profile.IsLocked {
			g.events.Record(ctx, EventInput{
				Type:     models.EventUnauthorizedAccess,
				Severity: models.SeverityMedium,
				UserID:   ident.ID,
				Origin:   req.Origin,
				Details:  map[string]any{"reason": "account_locked"},
			})
			return models.Identity{}, apperr.Forbidden("account_locked", "Account is locked")
		}
	case errors.Is(err, repository.ErrProfileNotFound):
		// Profiles are provisioned after sign-up and may lag behind.
	default:
		g.log.Error().Err(err).Str("user_id", subject.ID).Msg("profile lookup failed, defaulting to buyer")
	}

	if ident.Role == models.RoleAdmin {
		if err := g.stepUpAdmin(ctx, &ident, req); err != nil {
			return models.Identity{}, err
		}
	}

	g.events.Record(ctx, EventInput{
		Type:     models.EventLoginSuccess,
		Severity: models.SeverityLow,
		UserID:   ident.ID,
		Origin:   req.Origin,
		Details: map[string]any{
			"role":             string(ident.Role),
			"step_up_verified": ident.StepUpVerified,
			"backup_code_used": ident.UsedBackupCode,
		},
	})
	return ident, nil
}

func (g *AccessGate) stepUpAdmin(ctx context.Context, ident *models.Identity, req AuthRequest) error {
	enabled, err := g.stepUp.IsEnabled(ctx, ident.ID)
	if err != nil {
		return apperr.Transient("Could not check two-factor status", err)
	}
	if !enabled {
		return nil
	}

	code := strings.TrimSpace(req.StepUpToken)
	if code == "" {
		g.events.Record(ctx, EventInput{
			Type:     models.EventUnauthorizedAccess,
			Severity: models.SeverityMedium,
			UserID:   ident.ID,
			Origin:   req.Origin,
			Details:  map[string]any{"reason": "2fa_token_missing"},
		})
		return apperr.New(apperr.KindStepUpRequired, "2fa_required", "Two-factor authentication required")
	}

	result, err := g.stepUp.Verify(ctx, ident.ID, code)
	if err != nil && !errors.Is(err, ErrTwoFactorNotConfigured) {
		return apperr.Transient("Could not verify two-factor token", err)
	}
	if !result.Valid {
		g.events.Record(ctx, EventInput{
			Type:     models.EventTwoFactorFailed,
			Severity: models.SeverityHigh,
			UserID:   ident.ID,
			Origin:   req.Origin,
			Details:  map[string]any{"reason": "invalid_2fa_token"},
		})
		return apperr.New(apperr.KindStepUpInvalid, "invalid_2fa_token", "Invalid 2FA token")
	}

	ident.StepUpVerified = true
	ident.UsedBackupCode = result.UsedBackupCode
	return nil
}

// credentialError classifies a verifier failure. Only rejections that can be
// attributed to a subject are recorded.
func (g *AccessGate) credentialError(ctx context.Context, err error, origin models.Origin) error {
	var rejected *identity.RejectedError
	if errors.As(err, &rejected) && rejected.Subject.ID != "" {
		g.events.Record(ctx, EventInput{
			Type:     models.EventLoginFailed,
			Severity: models.SeverityMedium,
			UserID:   rejected.Subject.ID,
			Origin:   origin,
			Details:  map[string]any{"reason": rejected.Reason},
		})
		return apperr.Unauthenticated("invalid_token", "Invalid or expired token")
	}
	if errors.Is(err, identity.ErrRejected) {
		return apperr.Unauthenticated("invalid_token", "Invalid or expired token")
	}
	return apperr.Transient("Identity provider unavailable", err)
}

// Authorize is the role gate. It never re-authenticates.
func (g *AccessGate) Authorize(ctx context.Context, ident models.Identity, allowed models.RoleSet, origin models.Origin) error {
	if models.IsAllowed(ident, allowed) {
		return nil
	}

	required := make([]string, 0, len(allowed))
	for role := range allowed {
		required = append(required, string(role))
	}
	sort.Strings(required)

	g.events.Record(ctx, EventInput{
		Type:     models.EventUnauthorizedAccess,
		Severity: models.SeverityMedium,
		UserID:   ident.ID,
		Origin:   origin,
		Details: map[string]any{
			"reason":         "insufficient_role",
			"role":           string(ident.Role),
			"required_roles": required,
		},
	})
	return apperr.Forbidden("forbidden", "Insufficient permissions")
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
