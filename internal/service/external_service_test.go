package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

func externalRequest(name string) dto.CreateExternalRequest {
	return dto.CreateExternalRequest{
		Name:           name,
		Email:          "reviewer@example.org",
		Phone:          "9876543210",
		Organization:   "COEP",
		Designation:    "Professor",
		Specialization: "Networks",
	}
}

func TestExternalIDGeneration(t *testing.T) {
	june2024 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "EXTCOMP2425", ExternalIDPrefix(models.DepartmentComputer, june2024))
	assert.Equal(t, "EXTCOMPR2425", ExternalIDPrefix(models.DepartmentComputerRegional, june2024))
	assert.Equal(t, "EXTIT9900", ExternalIDPrefix(models.DepartmentIT, time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)))

	cases := []struct {
		latest string
		want   string
	}{
		{"", "EXTIT2425001"},
		{"EXTIT2425001", "EXTIT2425002"},
		{"EXTIT2425099", "EXTIT2425100"},
	}
	for _, tc := range cases {
		got, err := NextExternalID("EXTIT2425", tc.latest)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := NextExternalID("EXTIT2425", "EXTIT2425999")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestCreateExternalRegistersReviewer(t *testing.T) {
	docs := newMemoryDocuments()
	store := NewRecordStore(docs, zap.NewNop())
	users := newStubUsers(&models.User{ID: "EXTIT2425004", Role: models.RoleExternal})
	notifier := &stubNotifier{}
	svc := NewExternalService(store, users, notifier, nil, zap.NewNop(),
		WithExternalSecretGenerator(func() (string, error) { return "s3cret-pass", nil }),
		WithExternalClock(func() time.Time { return time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC) }))
	ctx := context.Background()
	hod := claims("HOD1", models.RoleHOD, models.DepartmentIT)

	first, err := svc.Create(ctx, hod, models.DepartmentIT, externalRequest("Ravi"))
	require.NoError(t, err)
	assert.Equal(t, "EXTIT2425005", first.ID)
	second, err := svc.Create(ctx, hod, models.DepartmentIT, externalRequest("Meera"))
	require.NoError(t, err)
	assert.Equal(t, "EXTIT2425006", second.ID)

	user, err := users.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleExternal, user.Role)
	assert.Equal(t, models.DepartmentIT, user.Department)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))

	list, err := svc.List(ctx, hod, models.DepartmentIT)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ravi", list[0].Name)
	assert.Equal(t, "COEP", list[1].Organization)

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, capturedCredentials{email: "reviewer@example.org", userID: "EXTIT2425005", secret: "s3cret-pass", name: "Ravi"}, notifier.sent[0])
	assert.Equal(t, []string{models.AuditActionExternalCreate, models.AuditActionExternalCreate}, users.auditActions())
}

func TestCreateExternalRejectsInvalidInput(t *testing.T) {
	store := NewRecordStore(newMemoryDocuments(), zap.NewNop())
	users := newStubUsers()
	svc := NewExternalService(store, users, nil, nil, zap.NewNop())
	ctx := context.Background()

	req := externalRequest("Ravi")
	req.Phone = "12345"
	_, err := svc.Create(ctx, adminActor, models.DepartmentIT, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, claims("HOD2", models.RoleHOD, models.DepartmentCivil), models.DepartmentIT, externalRequest("Ravi"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	list, err := svc.List(ctx, adminActor, models.DepartmentIT)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, users.auditActions())
}

func TestAssignExternalsKeepsReviewProgress(t *testing.T) {
	docs := newMemoryDocuments()
	store := NewRecordStore(docs, zap.NewNop())
	users := newStubUsers()
	svc := NewExternalService(store, users, nil, nil, zap.NewNop())
	docs.seed(t, models.DepartmentIT, models.DocRoster, models.Roster{"FAC01": "Asha", "FAC02": "Bala"})
	docs.seed(t, models.DepartmentIT, models.DocExternals, []models.ExternalReviewer{
		{ID: "EXTIT2425001", Name: "Ravi", Department: models.DepartmentIT},
		{ID: "EXTIT2425002", Name: "Meera", Department: models.DepartmentIT},
	})
	docs.seed(t, models.DepartmentIT, models.DocExternalAssignments, models.ExternalAssignments{
		"EXTIT2425001": {Faculty: []models.AssignedReview{{ID: "FAC01", Name: "Asha", IsReviewed: true, TotalMarks: 72}}},
	})
	ctx := context.Background()
	hod := claims("HOD1", models.RoleHOD, models.DepartmentIT)

	saved, err := svc.AssignExternals(ctx, hod, models.DepartmentIT, dto.ExternalAssignmentRequest{Assignments: map[string][]string{
		"EXTIT2425001": {"FAC01", "FAC02", "FAC01"},
		"EXTIT2425002": {"FAC02"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", saved["EXTIT2425001"].Reviewer.Name)
	assert.Equal(t, []models.AssignedReview{
		{ID: "FAC01", Name: "Asha", IsReviewed: true, TotalMarks: 72},
		{ID: "FAC02", Name: "Bala"},
	}, saved["EXTIT2425001"].Faculty)

	own, err := svc.Assignment(ctx, claims("EXTIT2425002", models.RoleExternal, models.DepartmentIT), models.DepartmentIT, "EXTIT2425002")
	require.NoError(t, err)
	assert.Equal(t, []models.AssignedReview{{ID: "FAC02", Name: "Bala"}}, own.Faculty)

	_, err = svc.Assignment(ctx, claims("EXTIT2425002", models.RoleExternal, models.DepartmentIT), models.DepartmentIT, "EXTIT2425001")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	all, err := svc.Assignments(ctx, hod, models.DepartmentIT)
	require.NoError(t, err)
	assert.Equal(t, saved, all)
	assert.Equal(t, []string{models.AuditActionExternalAssign}, users.auditActions())
}

func TestAssignExternalsRejectsUnknownMembers(t *testing.T) {
	docs := newMemoryDocuments()
	store := NewRecordStore(docs, zap.NewNop())
	svc := NewExternalService(store, newStubUsers(), nil, nil, zap.NewNop())
	ctx := context.Background()
	req := dto.ExternalAssignmentRequest{Assignments: map[string][]string{"EXTIT2425001": {"FAC01"}}}

	_, err := svc.AssignExternals(ctx, adminActor, models.DepartmentIT, req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	docs.seed(t, models.DepartmentIT, models.DocRoster, models.Roster{"FAC01": "Asha"})
	docs.seed(t, models.DepartmentIT, models.DocExternals, []models.ExternalReviewer{{ID: "EXTIT2425001", Name: "Ravi"}})

	_, err = svc.AssignExternals(ctx, adminActor, models.DepartmentIT, dto.ExternalAssignmentRequest{Assignments: map[string][]string{"EXTIT2425009": {"FAC01"}}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.AssignExternals(ctx, adminActor, models.DepartmentIT, dto.ExternalAssignmentRequest{Assignments: map[string][]string{"EXTIT2425001": {"FAC99"}}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.AssignExternals(ctx, claims("HOD2", models.RoleHOD, models.DepartmentCivil), models.DepartmentIT, req)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Assignment(ctx, adminActor, models.DepartmentIT, "EXTIT2425001")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
