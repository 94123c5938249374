package notify

import (
	"fmt"
	"sort"
	"strings"
)

func VerificationSubmitted(to, entityType, verificationID string) Message {
	return Message{
		Kind:    KindVerificationSubmitted,
		To:      to,
		Subject: "We received your verification documents",
		Body: fmt.Sprintf(
			"Your %s verification (reference %s) has been submitted and is awaiting review by our team. "+
				"You will be notified once a decision has been made.", entityType, verificationID),
	}
}

func VerificationDecided(to, entityType, outcome, notes, appURL string) Message {
	var b strings.Builder
	if outcome == "verified" {
		fmt.Fprintf(&b, "Good news: your %s verification has been approved.", entityType)
	} else {
		fmt.Fprintf(&b, "Your %s verification was not approved.", entityType)
	}
	if notes != "" {
		fmt.Fprintf(&b, "\n\nReviewer notes: %s", notes)
	}
	if outcome != "verified" {
		b.WriteString("\n\nYou can submit new documents at any time.")
	}
	if appURL != "" {
		fmt.Fprintf(&b, "\n\n%s", appURL)
	}
	return Message{
		Kind:    KindVerificationDecided,
		To:      to,
		Subject: fmt.Sprintf("Verification %s", outcome),
		Body:    b.String(),
	}
}

func SecurityAlert(to, eventType, severity string, details map[string]any) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "A %s severity security event was recorded: %s.\n", severity, eventType)
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, details[k])
	}
	return Message{
		Kind:    KindSecurityAlert,
		To:      to,
		Subject: fmt.Sprintf("[%s] Security alert: %s", strings.ToUpper(severity), eventType),
		Body:    b.String(),
	}
}

func AuditReminder(to string, audits []string) Message {
	return Message{
		Kind:    KindAuditReminder,
		To:      to,
		Subject: fmt.Sprintf("%d security audit(s) due", len(audits)),
		Body:    "The following audits are due:\n\n- " + strings.Join(audits, "\n- "),
	}
}

func EventDigest(to string, unresolved int) Message {
	return Message{
		Kind:    KindEventDigest,
		To:      to,
		Subject: fmt.Sprintf("%d unresolved high/critical security events", unresolved),
		Body: fmt.Sprintf("There are %d unresolved high or critical security events awaiting review "+
			"in the security dashboard.", unresolved),
	}
}
