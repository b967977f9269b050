package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

type committeeFixture struct {
	docs  *memoryDocuments
	store *RecordStore
	users *stubUsers
	svc   *CommitteeService
}

func newCommitteeFixture(t *testing.T) *committeeFixture {
	t.Helper()
	docs := newMemoryDocuments()
	store := NewRecordStore(docs, zap.NewNop())
	users := newStubUsers(
		&models.User{ID: "VER01", Name: "Vikram", Department: models.DepartmentComputer, Role: models.RoleVerifier},
		&models.User{ID: "VER02", Name: "Veena", Department: models.DepartmentIT, Role: models.RoleVerifier},
	)
	docs.seed(t, models.DepartmentIT, models.DocRoster, models.Roster{"FAC01": "Asha", "FAC02": "Bala", "FAC03": "Chitra"})
	seedRecord(t, docs, models.DepartmentIT, "FAC01", workflow.StatusVerificationPending)
	seedRecord(t, docs, models.DepartmentIT, "FAC02", workflow.StatusAuthorityVerificationPending)
	svc := NewCommitteeService(store, NewDirectory(users), users, nil, zap.NewNop())
	return &committeeFixture{docs: docs, store: store, users: users, svc: svc}
}

var adminActor = claims("ADMIN1", models.RoleAdmin, "")

func TestSetCommitteePreservesExistingApprovals(t *testing.T) {
	f := newCommitteeFixture(t)
	f.docs.seed(t, models.DepartmentIT, models.DocVerificationTeam, models.VerificationTeam{
		"VER01": {Name: "Vikram", Faculty: []models.AssignedFaculty{
			{ID: "FAC01", Name: "Asha", IsApproved: true},
			{ID: "FAC02", Name: "Bala"},
		}},
	})
	ctx := context.Background()

	team, err := f.svc.SetCommittee(ctx, adminActor, models.DepartmentIT, dto.CommitteeRequest{Members: map[string][]string{
		"VER01": {"FAC01", "FAC03", "FAC01"},
		"VER02": {"FAC02"},
	}})
	require.NoError(t, err)

	assert.Equal(t, models.VerifierAssignment{Name: "Vikram", Faculty: []models.AssignedFaculty{
		{ID: "FAC01", Name: "Asha", IsApproved: true},
		{ID: "FAC03", Name: "Chitra"},
	}}, team["VER01"])
	assert.Equal(t, []models.AssignedFaculty{{ID: "FAC02", Name: "Bala"}}, team["VER02"].Faculty)

	stored, err := f.svc.GetCommittee(ctx, adminActor, models.DepartmentIT)
	require.NoError(t, err)
	assert.Equal(t, team, stored)
	assert.Equal(t, []string{models.AuditActionCommitteeUpdate}, f.users.auditActions())
}

func TestSetCommitteeRejectsUnknownMembers(t *testing.T) {
	f := newCommitteeFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetCommittee(ctx, adminActor, models.DepartmentIT, dto.CommitteeRequest{Members: map[string][]string{"GHOST": {"FAC01"}}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.SetCommittee(ctx, adminActor, models.DepartmentIT, dto.CommitteeRequest{Members: map[string][]string{"VER01": {"FAC99"}}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.SetCommittee(ctx, adminActor, models.DepartmentIT, dto.CommitteeRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.SetCommittee(ctx, claims("HOD9", models.RoleHOD, models.DepartmentCivil), models.DepartmentIT, dto.CommitteeRequest{Members: map[string][]string{"VER01": {"FAC01"}}})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	team, err := f.store.Team(ctx, models.DepartmentIT)
	require.NoError(t, err)
	assert.Empty(t, team)
}

func TestVerifierFacultyReportsLiveStatuses(t *testing.T) {
	f := newCommitteeFixture(t)
	ctx := context.Background()
	_, err := f.svc.SetCommittee(ctx, adminActor, models.DepartmentIT, dto.CommitteeRequest{Members: map[string][]string{
		"VER01": {"FAC02", "FAC01", "FAC03"},
	}})
	require.NoError(t, err)

	workload, err := f.svc.VerifierFaculty(ctx, claims("VER01", models.RoleVerifier, models.DepartmentComputer), "VER01")
	require.NoError(t, err)
	assert.Equal(t, "Vikram", workload.Name)
	require.Len(t, workload.Assigned, 1)
	assert.Equal(t, []models.AssignedFacultyStatus{
		{ID: "FAC01", Name: "Asha", Status: workflow.StatusVerificationPending},
		{ID: "FAC02", Name: "Bala", Status: workflow.StatusAuthorityVerificationPending},
		{ID: "FAC03", Name: "Chitra", Status: statusUnknown},
	}, workload.Assigned[models.DepartmentIT])

	_, err = f.svc.VerifierFaculty(ctx, claims("VER02", models.RoleVerifier, models.DepartmentIT), "VER01")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.VerifierFaculty(ctx, adminActor, "VER02")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestClearCommittee(t *testing.T) {
	f := newCommitteeFixture(t)
	ctx := context.Background()

	err := f.svc.ClearCommittee(ctx, adminActor, models.DepartmentIT)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.SetCommittee(ctx, adminActor, models.DepartmentIT, dto.CommitteeRequest{Members: map[string][]string{"VER01": {"FAC01"}}})
	require.NoError(t, err)
	require.NoError(t, f.svc.ClearCommittee(ctx, adminActor, models.DepartmentIT))

	team, err := f.store.Team(ctx, models.DepartmentIT)
	require.NoError(t, err)
	assert.Empty(t, team)
}
