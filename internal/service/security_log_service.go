package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/ids"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/metrics"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
)

const (
	PatternMultipleFailedLogins = "multiple_failed_logins"
	PatternMultiple2FAFailures  = "multiple_2fa_failures"
	PatternUnauthorizedAccess   = "unauthorized_access_attempt"
)

type EventInput struct {
	Type     models.EventType
	Severity models.Severity
	UserID   string
	Origin   models.Origin
	Details  map[string]any
}

type alertRecipients interface {
	ListAlertRecipients(ctx context.Context) ([]models.Profile, error)
}

type SecurityLogService struct {
	events     EventStore
	recipients alertRecipients
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	cfg        config.SecurityConfig
	log        zerolog.Logger
	now        func() time.Time
	alerts     sync.WaitGroup
}

func NewSecurityLogService(
	events EventStore,
	recipients alertRecipients,
	notifier notify.Notifier,
	m *metrics.Metrics,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *SecurityLogService {
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.FailedLoginWindow <= 0 {
		cfg.FailedLoginWindow = 15 * time.Minute
	}
	if cfg.TwoFactorFailureThreshold <= 0 {
		cfg.TwoFactorFailureThreshold = 3
	}
	if cfg.TwoFactorFailureWindow <= 0 {
		cfg.TwoFactorFailureWindow = 30 * time.Minute
	}
	if cfg.AlertTimeout <= 0 {
		cfg.AlertTimeout = 10 * time.Second
	}
	return &SecurityLogService{
		events:     events,
		recipients: recipients,
		notifier:   notifier,
		metrics:    m,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Record appends an event and runs suspicious-pattern detection on it.
// Failures are logged and never returned: the request that triggered the
// event proceeds regardless.
func (s *SecurityLogService) Record(ctx context.Context, in EventInput) {
	event, ok := s.write(ctx, in)
	if !ok {
		return
	}
	s.derive(ctx, event)
}

func (s *SecurityLogService) write(ctx context.Context, in EventInput) (models.SecurityEvent, bool) {
	if !in.Type.Valid() {
		s.log.Error().Str("event_type", string(in.Type)).Msg("refusing to record unknown security event type")
		return models.SecurityEvent{}, false
	}
	if !in.Severity.Valid() {
		in.Severity = models.SeverityLow
	}

	details := make(map[string]any, len(in.Details)+2)
	for k, v := range in.Details {
		details[k] = v
	}
	if in.Origin.Path != "" {
		details["path"] = in.Origin.Path
	}
	if in.Origin.Method != "" {
		details["method"] = in.Origin.Method
	}

	event := models.SecurityEvent{
		ID:        ids.New(),
		Type:      in.Type,
		UserID:    optional(in.UserID),
		IPAddress: optional(in.Origin.IPAddress),
		UserAgent: optional(in.Origin.UserAgent),
		Details:   details,
		Severity:  in.Severity,
		CreatedAt: s.now().UTC(),
	}

	if err := s.events.Insert(ctx, event); err != nil {
		s.log.Error().Err(err).
			Str("event_type", string(event.Type)).
			Str("severity", string(event.Severity)).
			Msg("record security event failed")
		return models.SecurityEvent{}, false
	}

	s.metrics.ObserveSecurityEvent(string(event.Type), string(event.Severity))
	if event.Severity.Alerting() {
		s.alert(ctx, event)
	}
	return event, true
}

// derive emits suspicious_activity for the primary event kinds. Derived
// events go through write only, so they never feed back into detection.
func (s *SecurityLogService) derive(ctx context.Context, event models.SecurityEvent) {
	switch event.Type {
	case models.EventLoginFailed:
		if event.IPAddress == nil {
			return
		}
		since := event.CreatedAt.Add(-s.cfg.FailedLoginWindow)
		count, err := s.events.CountByIPSince(ctx, models.EventLoginFailed, *event.IPAddress, since)
		if err != nil {
			s.log.Error().Err(err).Msg("count failed logins")
			return
		}
		if count >= s.cfg.FailedLoginThreshold {
			s.escalate(ctx, event, map[string]any{
				"pattern":        PatternMultipleFailedLogins,
				"count":          count,
				"window_minutes": int(s.cfg.FailedLoginWindow.Minutes()),
			})
		}

	case models.EventTwoFactorFailed:
		if event.UserID == nil {
			return
		}
		since := event.CreatedAt.Add(-s.cfg.TwoFactorFailureWindow)
		count, err := s.events.CountByUserSince(ctx, models.EventTwoFactorFailed, *event.UserID, since)
		if err != nil {
			s.log.Error().Err(err).Msg("count 2fa failures")
			return
		}
		if count >= s.cfg.TwoFactorFailureThreshold {
			s.escalate(ctx, event, map[string]any{
				"pattern":        PatternMultiple2FAFailures,
				"count":          count,
				"window_minutes": int(s.cfg.TwoFactorFailureWindow.Minutes()),
			})
		}

	case models.EventUnauthorizedAccess:
		s.escalate(ctx, event, map[string]any{
			"pattern":        PatternUnauthorizedAccess,
			"source_details": event.Details,
		})
	}
}

func (s *SecurityLogService) escalate(ctx context.Context, source models.SecurityEvent, details map[string]any) {
	details["source_event_id"] = source.ID
	in := EventInput{
		Type:     models.EventSuspiciousActivity,
		Severity: models.SeverityHigh,
		Details:  details,
	}
	if source.UserID != nil {
		in.UserID = *source.UserID
	}
	if source.IPAddress != nil {
		in.Origin.IPAddress = *source.IPAddress
	}
	if source.UserAgent != nil {
		in.Origin.UserAgent = *source.UserAgent
	}
	s.log.Warn().
		Interface("pattern", details["pattern"]).
		Str("source_event_id", source.ID).
		Msg("suspicious activity detected")
	s.write(ctx, in)
}

// alert notifies every verified admin without holding up the caller.
func (s *SecurityLogService) alert(ctx context.Context, event models.SecurityEvent) {
	if s.notifier == nil || s.recipients == nil {
		return
	}

	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()

		alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.AlertTimeout)
		defer cancel()

		admins, err := s.recipients.ListAlertRecipients(alertCtx)
		if err != nil {
			s.log.Error().Err(err).Str("event_id", event.ID).Msg("list alert recipients failed")
			return
		}

		var wg sync.WaitGroup
		for _, admin := range admins {
			if admin.Email == "" {
				continue
			}
			wg.Add(1)
			go func(to string) {
				defer wg.Done()
				msg := notify.SecurityAlert(to, string(event.Type), string(event.Severity), event.Details)
				if err := s.notifier.Notify(alertCtx, msg); err != nil {
					s.log.Warn().Err(err).Str("event_id", event.ID).Str("to", to).Msg("security alert failed")
				}
			}(admin.Email)
		}
		wg.Wait()
	}()
}

// Drain waits for in-flight alert deliveries.
func (s *SecurityLogService) Drain() {
	s.alerts.Wait()
}

func (s *SecurityLogService) List(ctx context.Context, filter models.EventFilter) ([]models.SecurityEvent, error) {
	if filter.Severity != "" && !filter.Severity.Valid() {
		return nil, apperr.Validation("Invalid filter", map[string]string{"severity": "unknown severity"})
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.Validation("Invalid filter", map[string]string{"eventType": "unknown event type"})
	}
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	return events, nil
}

func (s *SecurityLogService) Unresolved(ctx context.Context, limit int) ([]models.SecurityEvent, error) {
	resolved := false
	return s.List(ctx, models.EventFilter{Limit: limit, Resolved: &resolved})
}

// Resolve closes an event. Resolving again overwrites the resolver and time.
func (s *SecurityLogService) Resolve(ctx context.Context, eventID, resolverID string) (models.SecurityEvent, error) {
	if !ids.Valid(eventID) {
		return models.SecurityEvent{}, apperr.NotFound("event_not_found", "Security event not found")
	}
	event, err := s.events.Resolve(ctx, eventID, resolverID, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return models.SecurityEvent{}, apperr.NotFound("event_not_found", "Security event not found")
		}
		return models.SecurityEvent{}, fmt.Errorf("resolve security event: %w", err)
	}
	return event, nil
}

func (s *SecurityLogService) Statistics(ctx context.Context) (models.EventStatistics, error) {
	stats, err := s.events.Statistics(ctx, s.now().UTC().Add(-24*time.Hour))
	if err != nil {
		return models.EventStatistics{}, fmt.Errorf("security statistics: %w", err)
	}
	return stats, nil
}

func (s *SecurityLogService) CountUnresolvedSevere(ctx context.Context) (int, error) {
	return s.events.CountUnresolvedSevere(ctx)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
