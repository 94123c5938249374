package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service/servicetest"
)

func newReportService(store *servicetest.Reports) *ReportService {
	svc := NewReportService(store, zerolog.Nop())
	svc.now = fixedClock(testNow)
	return svc
}

func reportInput() CreateReportInput {
	return CreateReportInput{
		ReporterID:  buyerID,
		EntityType:  models.ReportEntityProperty,
		EntityID:    propertyID,
		Reason:      "fake_listing",
		Description: "Photos are copied from another site",
	}
}

func TestCreateReportOncePerEntity(t *testing.T) {
	svc := newReportService(servicetest.NewReports())
	ctx := context.Background()

	first, err := svc.Create(ctx, reportInput())
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, models.ReportNew, first.Report.Status)

	second, err := svc.Create(ctx, reportInput())
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Report.ID, second.Report.ID)

	all, err := svc.List(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateReportDifferentReporterOrEntity(t *testing.T) {
	svc := newReportService(servicetest.NewReports())
	ctx := context.Background()

	_, err := svc.Create(ctx, reportInput())
	require.NoError(t, err)

	other := reportInput()
	other.ReporterID = sellerID
	res, err := svc.Create(ctx, other)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	other = reportInput()
	other.EntityType = models.ReportEntityAgent
	res, err = svc.Create(ctx, other)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
}

func TestCreateReportLosingRaceReturnsExisting(t *testing.T) {
	store := servicetest.NewReports()
	winner := models.Report{
		ID:         "44444444-5555-4666-8777-888888888888",
		ReporterID: buyerID,
		EntityType: models.ReportEntityProperty,
		EntityID:   propertyID,
		Reason:     "spam",
		Status:     models.ReportNew,
	}
	var once sync.Once
	store.BeforeCreate = func(models.Report) {
		once.Do(func() { store.Insert(winner) })
	}
	svc := newReportService(store)

	res, err := svc.Create(context.Background(), reportInput())
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, winner.ID, res.Report.ID)
}

func TestCreateReportValidation(t *testing.T) {
	svc := newReportService(servicetest.NewReports())

	_, err := svc.Create(context.Background(), CreateReportInput{ReporterID: buyerID, EntityType: "listing", EntityID: "nope"})

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Len(t, appErr.Fields, 3)
}

func TestUpdateReportStatus(t *testing.T) {
	svc := newReportService(servicetest.NewReports())
	ctx := context.Background()

	created, err := svc.Create(ctx, reportInput())
	require.NoError(t, err)

	notes := "Listing removed"
	resolved, err := svc.UpdateStatus(ctx, UpdateReportInput{
		ID:         created.Report.ID,
		Status:     models.ReportResolved,
		AdminNotes: &notes,
		Admin:      adminIdentity(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, resolved.Status)
	assert.Equal(t, adminID, *resolved.ResolvedBy)
	assert.Equal(t, "Listing removed", *resolved.AdminNotes)

	reopened, err := svc.UpdateStatus(ctx, UpdateReportInput{ID: created.Report.ID, Status: models.ReportInvestigating, Admin: adminIdentity()})
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedBy)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Equal(t, "Listing removed", *reopened.AdminNotes)

	_, err = svc.UpdateStatus(ctx, UpdateReportInput{ID: created.Report.ID, Status: "closed", Admin: adminIdentity()})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.UpdateStatus(ctx, UpdateReportInput{ID: "55555555-6666-4777-8888-999999999999", Status: models.ReportDismissed, Admin: adminIdentity()})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	open, err := svc.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}
