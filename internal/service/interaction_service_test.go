package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

type interactionFixture struct {
	docs      *memoryDocuments
	store     *RecordStore
	metrics   *MetricsService
	scheduler *stubScheduler
	svc       *InteractionService
}

func newInteractionFixture(t *testing.T, required ...interaction.Role) *interactionFixture {
	t.Helper()
	docs := newMemoryDocuments()
	metrics := NewMetricsService()
	store := NewRecordStore(docs, zap.NewNop(), WithStoreMetrics(metrics))
	scheduler := &stubScheduler{}
	svc := NewInteractionService(store, newStubUsers(), required, nil, zap.NewNop(),
		WithInteractionMetrics(metrics), WithInteractionReports(scheduler))
	docs.seed(t, models.DepartmentComputer, models.DocExternalAssignments, models.ExternalAssignments{
		"EXTCOMP2526001": {
			Reviewer: models.ExternalReviewer{ID: "EXTCOMP2526001", Name: "Ravi", Department: models.DepartmentComputer},
			Faculty:  []models.AssignedReview{{ID: "FAC01", Name: "Asha"}},
		},
	})
	return &interactionFixture{docs: docs, store: store, metrics: metrics, scheduler: scheduler, svc: svc}
}

var (
	externalRater = claims("EXTCOMP2526001", models.RoleExternal, models.DepartmentComputer)
	deanRater     = claims("DEAN1", models.RoleDean, "")
	hodRater      = claims("HOD1", models.RoleHOD, models.DepartmentComputer)
)

func rating(v float64) dto.RatingRequest {
	return dto.RatingRequest{Marks: &v, Comments: "ok"}
}

func TestSubmitRatingCompletesReviewOnce(t *testing.T) {
	f := newInteractionFixture(t)
	seedRecord(t, f.docs, models.DepartmentComputer, "FAC01", workflow.StatusInteractionPending)
	ctx := context.Background()

	res, err := f.svc.SubmitRating(ctx, externalRater, models.DepartmentComputer, "FAC01", "external", rating(80))
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, workflow.StatusInteractionPending, res.Status)

	_, err = f.svc.SubmitRating(ctx, deanRater, models.DepartmentComputer, "FAC01", "dean", rating(70))
	require.NoError(t, err)

	res, err = f.svc.SubmitRating(ctx, hodRater, models.DepartmentComputer, "FAC01", "authority", rating(90))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, workflow.StatusDone, res.Status)
	assert.Equal(t, 80.0, res.Summary.Average)
	assert.Equal(t, 3, res.Summary.TotalReviews)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().CompletedInteractions)
	assert.Equal(t, []string{"FAC01"}, f.scheduler.scheduled)

	res, err = f.svc.SubmitRating(ctx, hodRater, models.DepartmentComputer, "FAC01", "hod", rating(60))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, workflow.StatusDone, res.Status)
	assert.Equal(t, 70.0, res.Summary.Average)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().CompletedInteractions)
	assert.Len(t, f.scheduler.scheduled, 1)
}

func TestSubmitRatingHonoursConfiguredRaters(t *testing.T) {
	f := newInteractionFixture(t, interaction.RoleExternal)
	seedRecord(t, f.docs, models.DepartmentComputer, "FAC01", workflow.StatusInteractionPending)

	res, err := f.svc.SubmitRating(context.Background(), externalRater, models.DepartmentComputer, "FAC01", "external", rating(55))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, workflow.StatusDone, res.Status)
}

func TestSubmitRatingGuardsStatusAndRole(t *testing.T) {
	f := newInteractionFixture(t)
	seedRecord(t, f.docs, models.DepartmentComputer, "FAC01", workflow.StatusVerified)
	ctx := context.Background()

	_, err := f.svc.SubmitRating(ctx, deanRater, models.DepartmentComputer, "FAC01", "dean", rating(50))
	require.True(t, errors.Is(err, appErrors.ErrWorkflowGuard))

	_, err = f.svc.SubmitRating(ctx, deanRater, models.DepartmentComputer, "FAC01", "external", rating(50))
	require.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.SubmitRating(ctx, deanRater, models.DepartmentComputer, "FAC01", "principal", rating(50))
	require.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.SubmitRating(ctx, deanRater, models.DepartmentComputer, "FAC01", "dean", rating(101))
	require.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.SubmitRating(ctx, deanRater, models.DepartmentComputer, "ghost", "dean", rating(50))
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSubmitRatingKeepsConcurrentSlots(t *testing.T) {
	f := newInteractionFixture(t)
	seedRecord(t, f.docs, models.DepartmentComputer, "FAC01", workflow.StatusInteractionPending)
	ctx := context.Background()

	f.docs.beforePut = func(models.DocumentKey) {
		_, err := f.svc.SubmitRating(ctx, deanRater, models.DepartmentComputer, "FAC01", "dean", rating(65))
		require.NoError(t, err)
	}
	_, err := f.svc.SubmitRating(ctx, externalRater, models.DepartmentComputer, "FAC01", "external", rating(85))
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, deanRater, models.DepartmentComputer, "FAC01")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalReviews)
	assert.Equal(t, 75.0, summary.Average)
	assert.Equal(t, []interaction.Role{interaction.RoleHOD}, summary.Missing)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().WriteConflicts)
}

func TestSubmitRatingMarksExternalAssignmentReviewed(t *testing.T) {
	f := newInteractionFixture(t)
	seedRecord(t, f.docs, models.DepartmentComputer, "FAC01", workflow.StatusInteractionPending)

	_, err := f.svc.SubmitRating(context.Background(), externalRater, models.DepartmentComputer, "FAC01", "external", rating(80))
	require.NoError(t, err)

	var assignments models.ExternalAssignments
	f.docs.decode(t, models.DepartmentComputer, models.DocExternalAssignments, &assignments)
	assert.Equal(t, []models.AssignedReview{
		{ID: "FAC01", Name: "Asha", IsReviewed: true, TotalMarks: 80, Comments: "ok"},
	}, assignments["EXTCOMP2526001"].Faculty)
}

func TestSubmitRatingRejectsExternalsOutsideAssignment(t *testing.T) {
	f := newInteractionFixture(t)
	seedRecord(t, f.docs, models.DepartmentComputer, "FAC01", workflow.StatusInteractionPending)
	seedRecord(t, f.docs, models.DepartmentComputer, "FAC02", workflow.StatusInteractionPending)
	ctx := context.Background()

	_, err := f.svc.SubmitRating(ctx, claims("EXTIT2526001", models.RoleExternal, models.DepartmentIT), models.DepartmentComputer, "FAC01", "external", rating(5))
	require.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.SubmitRating(ctx, claims("EXTCOMP2526002", models.RoleExternal, models.DepartmentComputer), models.DepartmentComputer, "FAC01", "external", rating(5))
	require.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.SubmitRating(ctx, externalRater, models.DepartmentComputer, "FAC02", "external", rating(5))
	require.True(t, errors.Is(err, appErrors.ErrNotFound))

	for _, id := range []string{"FAC01", "FAC02"} {
		summary, err := f.svc.Summary(ctx, deanRater, models.DepartmentComputer, id)
		require.NoError(t, err)
		assert.Zero(t, summary.TotalReviews, id)
	}
}
