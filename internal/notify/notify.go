// Package notify carries side-effect messages from the API to the delivery
// worker. Delivery is best effort; callers log failures and move on.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindVerificationSubmitted Kind = "verification_submitted"
	KindVerificationDecided   Kind = "verification_decided"
	KindSecurityAlert         Kind = "security_alert"
	KindAuditReminder         Kind = "audit_reminder"
	KindEventDigest           Kind = "event_digest"
)

type Message struct {
	ID        string
	Kind      Kind
	To        string
	Subject   string
	Body      string
	CreatedAt time.Time
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("notification %s has no recipient", m.Kind)
	}
	if m.Subject == "" {
		return fmt.Errorf("notification %s has no subject", m.Kind)
	}
	return nil
}
