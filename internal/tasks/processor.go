package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/metrics"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
)

// Processor delivers notification messages taken off the stream.
type Processor struct {
	sender  notify.EmailSender
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewProcessor(sender notify.EmailSender, m *metrics.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		sender:  sender,
		metrics: m,
		logger:  logger,
	}
}

// Handle returns an error only for failures worth retrying. Malformed
// entries are logged and acknowledged so they do not block the group.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	payload, err := notify.Decode(msg.Values)
	if err != nil {
		p.metrics.ObserveNotification("unknown", "invalid")
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed notification")
		return nil
	}

	switch payload.Kind {
	case notify.KindVerificationSubmitted, notify.KindVerificationDecided,
		notify.KindSecurityAlert, notify.KindAuditReminder, notify.KindEventDigest:
	default:
		p.metrics.ObserveNotification(string(payload.Kind), "invalid")
		p.logger.Warn().Str("kind", string(payload.Kind)).Str("message_id", msg.ID).Msg("unknown notification kind")
		return nil
	}

	if err := p.sender.Send(ctx, payload); err != nil {
		p.metrics.ObserveNotification(string(payload.Kind), "failed")
		return fmt.Errorf("send %s notification %s: %w", payload.Kind, payload.ID, err)
	}

	p.metrics.ObserveNotification(string(payload.Kind), "sent")
	p.logger.Debug().
		Str("notification_id", payload.ID).
		Str("kind", string(payload.Kind)).
		Msg("notification delivered")
	return nil
}
