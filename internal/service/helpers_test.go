package service

import (
	"time"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

var testNow = time.Date(2026, 4, 14, 10, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// stepClock returns a clock that can be moved forward between calls.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

const (
	adminID  = "0b6f7f53-7a3a-4c55-9d1e-1f0c2e9a0a01"
	agentUID = "5d4c2b1a-1111-4b22-8c33-444455556666"
	agentID  = "9a8b7c6d-2222-4e33-9f44-777788889999"
	buyerID  = "c1d2e3f4-3333-4a44-8b55-aaaabbbbcccc"
)

func adminIdentity() models.Identity {
	return models.Identity{ID: adminID, Email: "admin@example.ng", Role: models.RoleAdmin}
}

func agentIdentity() models.Identity {
	return models.Identity{ID: agentUID, Email: "agent@example.ng", Role: models.RoleAgent}
}
