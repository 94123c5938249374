package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
)

const runTimeout = time.Minute

type dueAudits interface {
	Due(ctx context.Context, day time.Time) ([]models.SecurityAudit, error)
}

type severeEvents interface {
	CountUnresolvedSevere(ctx context.Context) (int, error)
}

type recipients interface {
	ListAlertRecipients(ctx context.Context) ([]models.Profile, error)
}

// Scheduler runs the periodic admin reminders.
type Scheduler struct {
	cron       *cron.Cron
	audits     dueAudits
	events     severeEvents
	recipients recipients
	notifier   notify.Notifier
	specs      config.JobsConfig
	log        zerolog.Logger
	now        func() time.Time
}

func NewScheduler(
	audits dueAudits,
	events severeEvents,
	recipients recipients,
	notifier notify.Notifier,
	specs config.JobsConfig,
	log zerolog.Logger,
) *Scheduler {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	return &Scheduler{
		cron:       c,
		audits:     audits,
		events:     events,
		recipients: recipients,
		notifier:   notifier,
		specs:      specs,
		log:        log.With().Str("component", "scheduler").Logger(),
		now:        time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.notifier == nil {
		return nil
	}

	if s.specs.AuditReminderSpec != "" {
		if _, err := s.cron.AddFunc(s.specs.AuditReminderSpec, s.run("audit reminders", s.RemindDueAudits)); err != nil {
			return fmt.Errorf("schedule audit reminders: %w", err)
		}
	}
	if s.specs.EventDigestSpec != "" {
		if _, err := s.cron.AddFunc(s.specs.EventDigestSpec, s.run("event digest", s.DigestUnresolvedEvents)); err != nil {
			return fmt.Errorf("schedule event digest: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop prevents new runs; the returned context is done once running jobs
// finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run(name string, job func(ctx context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		sent, err := job(ctx)
		if err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
			return
		}
		s.log.Debug().Str("job", name).Int("sent", sent).Msg("scheduled job finished")
	}
}

// RemindDueAudits tells every admin about audits scheduled for today or
// earlier that have not been started.
func (s *Scheduler) RemindDueAudits(ctx context.Context) (int, error) {
	now := s.now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)

	due, err := s.audits.Due(ctx, endOfDay)
	if err != nil {
		return 0, fmt.Errorf("load due audits: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	lines := make([]string, 0, len(due))
	for _, audit := range due {
		lines = append(lines, fmt.Sprintf("%s scheduled %s", audit.Type, audit.ScheduledDate.Format("2006-01-02")))
	}
	return s.broadcast(ctx, func(to string) notify.Message {
		return notify.AuditReminder(to, lines)
	})
}

func (s *Scheduler) DigestUnresolvedEvents(ctx context.Context) (int, error) {
	count, err := s.events.CountUnresolvedSevere(ctx)
	if err != nil {
		return 0, fmt.Errorf("count unresolved events: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	return s.broadcast(ctx, func(to string) notify.Message {
		return notify.EventDigest(to, count)
	})
}

func (s *Scheduler) broadcast(ctx context.Context, build func(to string) notify.Message) (int, error) {
	admins, err := s.recipients.ListAlertRecipients(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recipients: %w", err)
	}

	sent := 0
	for _, admin := range admins {
		if admin.Email == "" {
			continue
		}
		if err := s.notifier.Notify(ctx, build(admin.Email)); err != nil {
			s.log.Warn().Err(err).Str("to", admin.Email).Msg("enqueue reminder failed")
			continue
		}
		sent++
	}
	return sent, nil
}
