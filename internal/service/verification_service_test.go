package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service/servicetest"
)

const (
	sellerID   = "e5f6a7b8-4444-4c55-9d66-ddddeeeeffff"
	propertyID = "f0e1d2c3-5555-4d66-8e77-000011112222"
)

type verificationFixture struct {
	svc    *VerificationService
	store  *servicetest.Verifications
	outbox *servicetest.Outbox
}

func newVerificationFixture(t *testing.T) verificationFixture {
	t.Helper()
	store := servicetest.NewVerifications()
	store.AddAgent(models.Agent{ID: agentID, UserID: agentUID})
	store.AddProperty(propertyID, sellerID, nil)

	profiles := servicetest.NewProfiles(
		models.Profile{ID: agentUID, Email: "agent@example.ng", Role: models.RoleAgent},
		models.Profile{ID: sellerID, Email: "seller@example.ng", Role: models.RoleSeller},
	)
	outbox := &servicetest.Outbox{}
	svc := NewVerificationService(store, profiles, outbox, nil, 10, "https://example.ng", zerolog.Nop())
	svc.now = fixedClock(testNow)
	return verificationFixture{svc: svc, store: store, outbox: outbox}
}

func (f verificationFixture) submitAgent(t *testing.T) models.Verification {
	t.Helper()
	v, err := f.svc.SubmitForAgent(context.Background(), SubmitInput{
		DocumentURL:  "verifications/" + agentUID + "/2026/04/license.pdf",
		DocumentType: models.DocumentLicense,
		Submitter:    agentIdentity(),
	})
	require.NoError(t, err)
	return v
}

func TestSubmitForAgentCreatesPendingRecord(t *testing.T) {
	f := newVerificationFixture(t)

	v := f.submitAgent(t)

	assert.Equal(t, models.VerificationPending, v.Status)
	assert.Equal(t, models.EntityAgent, v.EntityType)
	assert.Equal(t, agentID, v.EntityID)
	assert.Equal(t, agentUID, v.SubmittedBy)
	assert.Len(t, f.outbox.OfKind(notify.KindVerificationSubmitted), 1)
}

func TestSubmitForAgentWithoutAgentRow(t *testing.T) {
	f := newVerificationFixture(t)

	_, err := f.svc.SubmitForAgent(context.Background(), SubmitInput{
		DocumentURL:  "x",
		DocumentType: models.DocumentLicense,
		Submitter:    models.Identity{ID: buyerID, Role: models.RoleAgent},
	})

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSubmitPropertyOwnership(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()
	in := SubmitInput{
		EntityType:   models.EntityProperty,
		EntityID:     propertyID,
		DocumentURL:  "verifications/" + sellerID + "/2026/04/deed.pdf",
		DocumentType: models.DocumentTitleDeed,
	}

	in.Submitter = agentIdentity()
	_, err := f.svc.Submit(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	in.Submitter = models.Identity{ID: sellerID, Role: models.RoleSeller}
	v, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, v.Status)

	in.EntityID = "11111111-2222-4333-8444-555555555555"
	_, err = f.svc.Submit(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSubmitByListingAgent(t *testing.T) {
	f := newVerificationFixture(t)
	listed := "22222222-3333-4444-8555-666666666666"
	agentUser := agentUID
	f.store.AddProperty(listed, sellerID, &agentUser)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		EntityType:   models.EntityProperty,
		EntityID:     listed,
		DocumentURL:  "verifications/" + agentUID + "/2026/04/deed.pdf",
		DocumentType: models.DocumentTitleDeed,
		Submitter:    agentIdentity(),
	})
	require.NoError(t, err)
}

func TestSubmitRefusesForeignDocuments(t *testing.T) {
	f := newVerificationFixture(t)
	seller := models.Identity{ID: sellerID, Role: models.RoleSeller}

	cases := map[string]string{
		"external url":      "https://attacker.example/deed.pdf",
		"protocol relative": "//attacker.example/deed.pdf",
		"outside root":      "uploads/" + sellerID + "/deed.pdf",
		"traversal":         "verifications/" + sellerID + "/../" + agentUID + "/deed.pdf",
		"someone else's":    "verifications/" + agentUID + "/2026/04/license.pdf",
	}
	for name, ref := range cases {
		_, err := f.svc.Submit(context.Background(), SubmitInput{
			EntityType:   models.EntityProperty,
			EntityID:     propertyID,
			DocumentURL:  ref,
			DocumentType: models.DocumentTitleDeed,
			Submitter:    seller,
		})
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr, name)
		assert.Equal(t, apperr.KindValidation, appErr.Kind, name)
		assert.Contains(t, appErr.Fields, "document_url", name)
	}
	pending, err := f.store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSubmitValidation(t *testing.T) {
	f := newVerificationFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		EntityType:   "house",
		EntityID:     "not-a-uuid",
		DocumentType: "selfie",
		Submitter:    agentIdentity(),
	})

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "entity_type")
	assert.Contains(t, appErr.Fields, "entity_id")
	assert.Contains(t, appErr.Fields, "document_url")
	assert.Contains(t, appErr.Fields, "document_type")
}

func TestApproveMirrorsOntoAgent(t *testing.T) {
	f := newVerificationFixture(t)
	v := f.submitAgent(t)

	decided, err := f.svc.Decide(context.Background(), DecideInput{
		VerificationID: v.ID,
		Outcome:        models.VerificationVerified,
		Reviewer:       adminIdentity(),
	})
	require.NoError(t, err)

	assert.Equal(t, models.VerificationVerified, decided.Status)
	assert.Equal(t, adminID, *decided.ReviewedBy)
	assert.Nil(t, decided.ReviewNotes)

	agent := f.store.Agent(agentID)
	assert.Equal(t, models.VerificationVerified, agent.VerificationStatus)
	require.NotNil(t, agent.VerifiedAt)

	sent := f.outbox.OfKind(notify.KindVerificationDecided)
	require.Len(t, sent, 1)
	assert.Equal(t, "agent@example.ng", sent[0].To)
}

func TestDecideTwiceConflicts(t *testing.T) {
	cases := []struct {
		name   string
		second models.VerificationStatus
	}{
		{"approve again", models.VerificationVerified},
		{"reject after approve", models.VerificationRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newVerificationFixture(t)
			v := f.submitAgent(t)
			ctx := context.Background()

			_, err := f.svc.Decide(ctx, DecideInput{VerificationID: v.ID, Outcome: models.VerificationVerified, Reviewer: adminIdentity()})
			require.NoError(t, err)

			_, err = f.svc.Decide(ctx, DecideInput{
				VerificationID: v.ID,
				Outcome:        tc.second,
				Reviewer:       adminIdentity(),
				Notes:          "Changed my mind about this one",
			})
			assert.True(t, apperr.Is(err, apperr.KindConflict))

			assert.Equal(t, models.VerificationVerified, f.store.Agent(agentID).VerificationStatus)
			stored, err := f.store.GetByID(ctx, v.ID)
			require.NoError(t, err)
			assert.Equal(t, models.VerificationVerified, stored.Status)
			assert.Len(t, f.outbox.OfKind(notify.KindVerificationDecided), 1)
		})
	}
}

func TestRejectRequiresNotes(t *testing.T) {
	for _, notes := range []string{"", "   ", "too short"} {
		f := newVerificationFixture(t)
		v := f.submitAgent(t)

		_, err := f.svc.Decide(context.Background(), DecideInput{
			VerificationID: v.ID,
			Outcome:        models.VerificationRejected,
			Reviewer:       adminIdentity(),
			Notes:          notes,
		})

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr, notes)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Contains(t, appErr.Fields, "review_notes")

		stored, err := f.store.GetByID(context.Background(), v.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationPending, stored.Status)
		assert.Equal(t, models.VerificationPending, f.store.Agent(agentID).VerificationStatus)
	}
}

func TestRejectThenAgentStatus(t *testing.T) {
	f := newVerificationFixture(t)
	v := f.submitAgent(t)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, DecideInput{
		VerificationID: v.ID,
		Outcome:        models.VerificationRejected,
		Reviewer:       adminIdentity(),
		Notes:          "Expired license, please resubmit",
	})
	require.NoError(t, err)

	status, err := f.svc.AgentStatus(ctx, agentUID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, status.Agent.VerificationStatus)
	require.Len(t, status.Verifications, 1)
	assert.Equal(t, models.VerificationRejected, status.Verifications[0].Status)
	assert.Equal(t, "Expired license, please resubmit", *status.Verifications[0].ReviewNotes)

	sent := f.outbox.OfKind(notify.KindVerificationDecided)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "Expired license, please resubmit")
}

func TestResubmitAfterRejection(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()
	first := f.submitAgent(t)

	_, err := f.svc.Decide(ctx, DecideInput{
		VerificationID: first.ID,
		Outcome:        models.VerificationRejected,
		Reviewer:       adminIdentity(),
		Notes:          "Document is not legible",
	})
	require.NoError(t, err)

	second := f.submitAgent(t)
	_, err = f.svc.Decide(ctx, DecideInput{VerificationID: second.ID, Outcome: models.VerificationVerified, Reviewer: adminIdentity()})
	require.NoError(t, err)

	status, err := f.svc.AgentStatus(ctx, agentUID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, status.Agent.VerificationStatus)
	assert.Len(t, status.Verifications, 2)
}

func TestDecideUnknownVerification(t *testing.T) {
	f := newVerificationFixture(t)

	_, err := f.svc.Decide(context.Background(), DecideInput{
		VerificationID: "33333333-4444-4555-8666-777777777777",
		Outcome:        models.VerificationVerified,
		Reviewer:       adminIdentity(),
	})

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDecideFailureLeavesNoPartialState(t *testing.T) {
	f := newVerificationFixture(t)
	v := f.submitAgent(t)
	f.store.MirrorErr = errors.New("agents table locked")

	_, err := f.svc.Decide(context.Background(), DecideInput{VerificationID: v.ID, Outcome: models.VerificationVerified, Reviewer: adminIdentity()})
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))

	stored, err := f.store.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, stored.Status)
	assert.Empty(t, f.outbox.OfKind(notify.KindVerificationDecided))
}

func TestDecideSurvivesNotificationFailure(t *testing.T) {
	f := newVerificationFixture(t)
	v := f.submitAgent(t)
	f.outbox.Err = errors.New("redis unavailable")

	decided, err := f.svc.Decide(context.Background(), DecideInput{VerificationID: v.ID, Outcome: models.VerificationVerified, Reviewer: adminIdentity()})

	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, decided.Status)
}

func TestParseStatusFilter(t *testing.T) {
	status, err := ParseStatusFilter("all")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatus(""), status)

	status, err = ParseStatusFilter("Pending")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, status)

	_, err = ParseStatusFilter("approved")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListFiltersByStatus(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()
	first := f.submitAgent(t)
	f.submitAgent(t)

	_, err := f.svc.Decide(ctx, DecideInput{VerificationID: first.ID, Outcome: models.VerificationVerified, Reviewer: adminIdentity()})
	require.NoError(t, err)

	pending, err := f.svc.List(ctx, models.VerificationPending, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := f.svc.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := f.svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
