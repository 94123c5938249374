package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service/servicetest"
)

type logFixture struct {
	svc      *SecurityLogService
	events   *servicetest.Events
	profiles *servicetest.Profiles
	outbox   *servicetest.Outbox
	clock    *stepClock
}

func newLogFixture(t *testing.T) logFixture {
	t.Helper()
	f := logFixture{
		events: servicetest.NewEvents(),
		profiles: servicetest.NewProfiles(
			models.Profile{ID: adminID, Email: "admin@example.ng", Role: models.RoleAdmin, IsVerified: true},
			models.Profile{ID: "a2", Email: "second-admin@example.ng", Role: models.RoleAdmin, IsVerified: true},
			models.Profile{ID: "a3", Email: "unverified@example.ng", Role: models.RoleAdmin},
			models.Profile{ID: buyerID, Email: "buyer@example.ng", Role: models.RoleBuyer, IsVerified: true},
		),
		outbox: &servicetest.Outbox{},
		clock:  &stepClock{now: testNow},
	}
	f.svc = NewSecurityLogService(f.events, f.profiles, f.outbox, nil, config.SecurityConfig{
		FailedLoginThreshold:      5,
		FailedLoginWindow:         15 * time.Minute,
		TwoFactorFailureThreshold: 3,
		TwoFactorFailureWindow:    30 * time.Minute,
		AlertTimeout:              time.Second,
	}, zerolog.Nop())
	f.svc.now = f.clock.Now
	return f
}

func failedLogin(ip string) EventInput {
	return EventInput{
		Type:     models.EventLoginFailed,
		Severity: models.SeverityMedium,
		Origin:   models.Origin{IPAddress: ip, UserAgent: "test"},
	}
}

func suspicious(events []models.SecurityEvent, pattern string) []models.SecurityEvent {
	var out []models.SecurityEvent
	for _, e := range events {
		if e.Type == models.EventSuspiciousActivity && e.Details["pattern"] == pattern {
			out = append(out, e)
		}
	}
	return out
}

func TestFourFailedLoginsAreNotSuspicious(t *testing.T) {
	f := newLogFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.svc.Record(ctx, failedLogin("203.0.113.9"))
		f.clock.Advance(time.Minute)
	}
	f.svc.Drain()

	assert.Empty(t, f.events.OfType(models.EventSuspiciousActivity))
}

func TestFiveFailedLoginsAreSuspicious(t *testing.T) {
	f := newLogFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.svc.Record(ctx, failedLogin("203.0.113.9"))
		f.clock.Advance(time.Minute)
	}
	f.svc.Drain()

	found := suspicious(f.events.All(), PatternMultipleFailedLogins)
	require.Len(t, found, 1)
	assert.Equal(t, models.SeverityHigh, found[0].Severity)
	assert.Equal(t, 5, found[0].Details["count"])
	assert.Equal(t, "203.0.113.9", *found[0].IPAddress)
}

func TestFailedLoginsOutsideWindowDoNotCount(t *testing.T) {
	f := newLogFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.svc.Record(ctx, failedLogin("203.0.113.9"))
		f.clock.Advance(4 * time.Minute)
	}
	f.svc.Drain()

	assert.Empty(t, f.events.OfType(models.EventSuspiciousActivity))
}

func TestFailedLoginsAreCountedPerOrigin(t *testing.T) {
	f := newLogFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.svc.Record(ctx, failedLogin("203.0.113.9"))
		f.svc.Record(ctx, failedLogin("203.0.113.10"))
	}
	f.svc.Drain()

	assert.Empty(t, f.events.OfType(models.EventSuspiciousActivity))
}

func TestRepeatedTwoFactorFailures(t *testing.T) {
	f := newLogFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.svc.Record(ctx, EventInput{
			Type:     models.EventTwoFactorFailed,
			Severity: models.SeverityHigh,
			UserID:   adminID,
		})
		f.clock.Advance(5 * time.Minute)
	}
	f.svc.Drain()

	found := suspicious(f.events.All(), PatternMultiple2FAFailures)
	require.Len(t, found, 1)
	assert.Equal(t, adminID, *found[0].UserID)
}

func TestUnauthorizedAccessIsAlwaysEscalated(t *testing.T) {
	f := newLogFixture(t)

	f.svc.Record(context.Background(), EventInput{
		Type:     models.EventUnauthorizedAccess,
		Severity: models.SeverityMedium,
		UserID:   buyerID,
		Origin:   models.Origin{IPAddress: "198.51.100.1", Path: "/api/admin/stats", Method: "GET"},
	})
	f.svc.Drain()

	all := f.events.All()
	require.Len(t, all, 2)
	assert.Equal(t, models.EventUnauthorizedAccess, all[0].Type)
	assert.Equal(t, "/api/admin/stats", all[0].Details["path"])
	assert.Equal(t, models.EventSuspiciousActivity, all[1].Type)
	assert.Equal(t, all[0].ID, all[1].Details["source_event_id"])
}

func TestDerivedEventsDoNotDeriveAgain(t *testing.T) {
	f := newLogFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.svc.Record(ctx, EventInput{Type: models.EventSuspiciousActivity, Severity: models.SeverityHigh, UserID: buyerID})
	}
	f.svc.Drain()

	assert.Len(t, f.events.All(), 3)
}

func TestHighSeverityAlertsVerifiedAdmins(t *testing.T) {
	f := newLogFixture(t)

	f.svc.Record(context.Background(), EventInput{
		Type:     models.EventAccountLocked,
		Severity: models.SeverityHigh,
		UserID:   buyerID,
	})
	f.svc.Drain()

	alerts := f.outbox.OfKind(notify.KindSecurityAlert)
	require.Len(t, alerts, 2)
	recipients := []string{alerts[0].To, alerts[1].To}
	assert.ElementsMatch(t, []string{"admin@example.ng", "second-admin@example.ng"}, recipients)
}

func TestLowSeverityDoesNotAlert(t *testing.T) {
	f := newLogFixture(t)

	f.svc.Record(context.Background(), EventInput{Type: models.EventLoginSuccess, Severity: models.SeverityLow, UserID: buyerID})
	f.svc.Drain()

	assert.Empty(t, f.outbox.Messages())
}

func TestAlertFailuresAreSwallowed(t *testing.T) {
	f := newLogFixture(t)
	f.outbox.Err = errors.New("smtp down")

	f.svc.Record(context.Background(), EventInput{Type: models.EventAccountLocked, Severity: models.SeverityCritical})
	f.svc.Drain()

	assert.Len(t, f.events.All(), 1)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	f := newLogFixture(t)
	f.events.Err = errors.New("connection refused")

	assert.NotPanics(t, func() {
		f.svc.Record(context.Background(), failedLogin("203.0.113.9"))
	})
	f.svc.Drain()
	assert.Empty(t, f.outbox.Messages())
}

func TestRecordRejectsUnknownType(t *testing.T) {
	f := newLogFixture(t)

	f.svc.Record(context.Background(), EventInput{Type: "made_up", Severity: models.SeverityLow})

	assert.Empty(t, f.events.All())
}

func TestResolveEvent(t *testing.T) {
	f := newLogFixture(t)
	ctx := context.Background()

	f.svc.Record(ctx, failedLogin("203.0.113.9"))
	id := f.events.All()[0].ID

	resolved, err := f.svc.Resolve(ctx, id, adminID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, adminID, *resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)

	f.clock.Advance(time.Hour)
	again, err := f.svc.Resolve(ctx, id, "a2")
	require.NoError(t, err)
	assert.Equal(t, "a2", *again.ResolvedBy)
	assert.True(t, again.ResolvedAt.After(*resolved.ResolvedAt))

	_, err = f.svc.Resolve(ctx, "00000000-0000-0000-0000-000000000000", adminID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListAndStatistics(t *testing.T) {
	f := newLogFixture(t)
	ctx := context.Background()

	f.svc.Record(ctx, failedLogin("203.0.113.9"))
	f.svc.Record(ctx, EventInput{Type: models.EventAccountLocked, Severity: models.SeverityCritical})
	f.svc.Record(ctx, EventInput{Type: models.EventTwoFactorFailed, Severity: models.SeverityHigh, UserID: adminID})
	f.svc.Drain()

	high, err := f.svc.List(ctx, models.EventFilter{Severity: models.SeverityHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, models.EventTwoFactorFailed, high[0].Type)

	unresolved, err := f.svc.Unresolved(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, unresolved, 3)
	assert.Equal(t, models.EventTwoFactorFailed, unresolved[0].Type, "newest first")

	_, err = f.svc.List(ctx, models.EventFilter{Severity: "urgent"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	stats, err := f.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatistics{Total: 3, Critical: 1, High: 1, Unresolved: 3, FailedLoginsToday: 1}, stats)
}
