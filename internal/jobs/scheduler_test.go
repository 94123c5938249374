package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service/servicetest"
)

var now = time.Date(2026, 4, 14, 7, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, audits *servicetest.Audits, events *servicetest.Events, outbox *servicetest.Outbox) *Scheduler {
	t.Helper()
	profiles := servicetest.NewProfiles(
		models.Profile{ID: "a1", Email: "ops@example.ng", Role: models.RoleAdmin, IsVerified: true},
		models.Profile{ID: "a2", Email: "sec@example.ng", Role: models.RoleAdmin, IsVerified: true},
		models.Profile{ID: "a3", Email: "new@example.ng", Role: models.RoleAdmin},
		models.Profile{ID: "b1", Email: "buyer@example.ng", Role: models.RoleBuyer, IsVerified: true},
	)
	s := NewScheduler(service.NewAuditService(audits, zerolog.Nop()), events, profiles, outbox, config.JobsConfig{}, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestRemindDueAudits(t *testing.T) {
	audits := servicetest.NewAudits()
	ctx := context.Background()
	for _, a := range []models.SecurityAudit{
		{ID: "due-yesterday", Type: models.AuditAccessReview, Status: models.AuditScheduled, ScheduledDate: now.AddDate(0, 0, -1)},
		{ID: "due-today", Type: models.AuditVulnerability, Status: models.AuditScheduled, ScheduledDate: now.Add(8 * time.Hour)},
		{ID: "next-week", Type: models.AuditCompliance, Status: models.AuditScheduled, ScheduledDate: now.AddDate(0, 0, 7)},
		{ID: "running", Type: models.AuditPenetrationTest, Status: models.AuditInProgress, ScheduledDate: now.AddDate(0, 0, -3)},
	} {
		require.NoError(t, audits.Create(ctx, a))
	}
	outbox := &servicetest.Outbox{}

	sent, err := newScheduler(t, audits, servicetest.NewEvents(), outbox).RemindDueAudits(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	msgs := outbox.OfKind(notify.KindAuditReminder)
	require.Len(t, msgs, 2)
	assert.Equal(t, "2 security audit(s) due", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "access_review scheduled 2026-04-13")
	assert.Contains(t, msgs[0].Body, "vulnerability_scan scheduled 2026-04-14")
	assert.NotContains(t, msgs[0].Body, "compliance_review")
}

func TestRemindDueAuditsNothingDue(t *testing.T) {
	outbox := &servicetest.Outbox{}
	sent, err := newScheduler(t, servicetest.NewAudits(), servicetest.NewEvents(), outbox).RemindDueAudits(context.Background())

	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, outbox.Messages())
}

func TestDigestUnresolvedEvents(t *testing.T) {
	events := servicetest.NewEvents()
	ctx := context.Background()
	require.NoError(t, events.Insert(ctx, models.SecurityEvent{ID: "e1", Type: models.EventSuspiciousActivity, Severity: models.SeverityHigh}))
	require.NoError(t, events.Insert(ctx, models.SecurityEvent{ID: "e2", Type: models.EventTwoFactorFailed, Severity: models.SeverityCritical}))
	require.NoError(t, events.Insert(ctx, models.SecurityEvent{ID: "e3", Type: models.EventLoginFailed, Severity: models.SeverityMedium}))
	outbox := &servicetest.Outbox{}

	sent, err := newScheduler(t, servicetest.NewAudits(), events, outbox).DigestUnresolvedEvents(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	msgs := outbox.OfKind(notify.KindEventDigest)
	require.Len(t, msgs, 2)
	assert.Equal(t, "2 unresolved high/critical security events", msgs[0].Subject)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(service.NewAuditService(servicetest.NewAudits(), zerolog.Nop()), servicetest.NewEvents(), servicetest.NewProfiles(),
		&servicetest.Outbox{}, config.JobsConfig{AuditReminderSpec: "every so often"}, zerolog.Nop())

	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(service.NewAuditService(servicetest.NewAudits(), zerolog.Nop()), servicetest.NewEvents(), servicetest.NewProfiles(),
		&servicetest.Outbox{}, config.JobsConfig{AuditReminderSpec: "0 0 7 * * *", EventDigestSpec: "0 0 */1 * * *"}, zerolog.Nop())

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
