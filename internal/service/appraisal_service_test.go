package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

type appraisalFixture struct {
	docs     *memoryDocuments
	store    *RecordStore
	users    *stubUsers
	notifier *stubNotifier
	svc      *AppraisalService
}

func newAppraisalFixture(t *testing.T) *appraisalFixture {
	t.Helper()
	docs := newMemoryDocuments()
	store := NewRecordStore(docs, zap.NewNop())
	users := newStubUsers()
	notifier := &stubNotifier{}
	svc := NewAppraisalService(store, users, NewDirectory(users), notifier, nil, zap.NewNop(),
		WithSecretGenerator(func() (string, error) { return "fixed-secret", nil }))
	return &appraisalFixture{docs: docs, store: store, users: users, notifier: notifier, svc: svc}
}

func (f *appraisalFixture) onboard(t *testing.T, id, position string) {
	t.Helper()
	_, err := f.svc.CreateFaculty(context.Background(), claims("admin", models.RoleAdmin, ""), dto.CreateFacultyRequest{
		ID:          id,
		Name:        "Faculty " + id,
		Email:       id + "@example.org",
		Department:  "Computer",
		Position:    position,
		Designation: "Faculty",
	})
	require.NoError(t, err)
}

func (f *appraisalFixture) setStatus(t *testing.T, id string, status workflow.Status) {
	t.Helper()
	_, err := f.store.Mutate(context.Background(), models.DepartmentComputer, id, func(r *models.FacultyRecord) error {
		r.Status = status
		return nil
	})
	require.NoError(t, err)
}

func TestCreateFacultyProvisionsAccountAndRecord(t *testing.T) {
	f := newAppraisalFixture(t)
	f.onboard(t, "FAC01", "Assistant Professor")

	user, err := f.users.FindByID(context.Background(), "FAC01")
	require.NoError(t, err)
	assert.Equal(t, models.RoleFaculty, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("fixed-secret")))

	record, err := f.store.Load(context.Background(), models.DepartmentComputer, "FAC01")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, record.Status)
	assert.Len(t, record.Sections, len(scoring.Letters))
	assert.Equal(t, scoring.GrandTotalCalculated, record.GrandTotal.Status)

	roster, err := f.store.Roster(context.Background(), models.DepartmentComputer)
	require.NoError(t, err)
	assert.Equal(t, "Faculty FAC01", roster["FAC01"])

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "fixed-secret", f.notifier.sent[0].secret)
	assert.Contains(t, f.users.auditActions(), models.AuditActionFacultyCreate)
}

func TestCreateFacultyRejectsDuplicatesAndBadInput(t *testing.T) {
	f := newAppraisalFixture(t)
	f.onboard(t, "FAC01", "Professor")
	admin := claims("admin", models.RoleAdmin, "")

	_, err := f.svc.CreateFaculty(context.Background(), admin, dto.CreateFacultyRequest{
		ID: "FAC01", Name: "Again", Email: "a@example.org", Department: "Computer", Position: "Professor", Designation: "Faculty",
	})
	require.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = f.svc.CreateFaculty(context.Background(), admin, dto.CreateFacultyRequest{
		ID: "FAC02", Name: "X", Email: "x@example.org", Department: "Astronomy", Position: "Professor", Designation: "Faculty",
	})
	require.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.CreateFaculty(context.Background(), admin, dto.CreateFacultyRequest{
		ID: "FAC03", Name: "X", Email: "x@example.org", Department: "Computer", Position: "Lecturer", Designation: "Faculty",
	})
	require.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSubmitSectionComputesMarksAndGrandTotal(t *testing.T) {
	f := newAppraisalFixture(t)
	f.onboard(t, "FAC01", "Assistant Professor")
	owner := claims("FAC01", models.RoleFaculty, models.DepartmentComputer)

	view, err := f.svc.SubmitSection(context.Background(), owner, models.DepartmentComputer, "FAC01", "a", scoring.Document{
		"lectures_delivered": map[string]interface{}{"count": 10.0, "proof": "timetable.pdf"},
		"notes":              "odd semester",
	})
	require.NoError(t, err)
	assert.Equal(t, scoring.SectionA, view.Section)
	assert.Equal(t, 50.0, view.TotalMarks)
	assert.Equal(t, 50.0, view.GrandTotal.GrandTotal)
	assert.Equal(t, "odd semester", view.Document["notes"])

	_, err = f.svc.SubmitSection(context.Background(), owner, models.DepartmentComputer, "FAC01", "B", scoring.Document{
		"journal_national_indexed": map[string]interface{}{"count": 1.0},
	})
	require.NoError(t, err)

	record, err := f.store.Load(context.Background(), models.DepartmentComputer, "FAC01")
	require.NoError(t, err)
	assert.Equal(t, 150.0, record.GrandTotal.GrandTotal)
	assert.True(t, record.IsUpdated)
	assert.Contains(t, f.users.auditActions(), models.AuditActionSectionSubmit)
}

func TestSubmitSectionGuardsOwnershipAndStatus(t *testing.T) {
	f := newAppraisalFixture(t)
	f.onboard(t, "FAC01", "Assistant Professor")
	payload := scoring.Document{"awards": map[string]interface{}{"count": 1.0}}

	_, err := f.svc.SubmitSection(context.Background(), claims("FAC02", models.RoleFaculty, models.DepartmentComputer), models.DepartmentComputer, "FAC01", "E", payload)
	require.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.SubmitSection(context.Background(), claims("FAC01", models.RoleFaculty, models.DepartmentComputer), models.DepartmentComputer, "FAC01", "Z", payload)
	require.True(t, errors.Is(err, appErrors.ErrValidation))

	f.setStatus(t, "FAC01", workflow.StatusVerificationPending)
	_, err = f.svc.SubmitSection(context.Background(), claims("FAC01", models.RoleFaculty, models.DepartmentComputer), models.DepartmentComputer, "FAC01", "E", payload)
	require.True(t, errors.Is(err, appErrors.ErrWorkflowGuard))
	appErr := appErrors.FromError(err)
	assert.Equal(t, "verification_pending", appErr.Details["current_status"])
	assert.Equal(t, []string{"pending"}, appErr.Details["expected_status"])
}

func TestVerifySectionUpdatesVerifiedTotals(t *testing.T) {
	f := newAppraisalFixture(t)
	f.onboard(t, "FAC01", "Assistant Professor")
	owner := claims("FAC01", models.RoleFaculty, models.DepartmentComputer)
	_, err := f.svc.SubmitSection(context.Background(), owner, models.DepartmentComputer, "FAC01", "A", scoring.Document{
		"lectures_delivered": map[string]interface{}{"count": 10.0},
	})
	require.NoError(t, err)

	f.docs.seed(t, models.DepartmentComputer, models.DocVerificationTeam, models.VerificationTeam{
		"VER1": {Name: "Verifier One", Faculty: []models.AssignedFaculty{{ID: "FAC01", Name: "Faculty FAC01"}}},
	})
	verifier := claims("VER1", models.RoleVerifier, models.DepartmentIT)
	req := dto.VerifySectionRequest{VerifiedMarks: map[string]float64{"lectures_delivered": 40}}
	_, err = f.svc.VerifySection(context.Background(), verifier, models.DepartmentComputer, "FAC01", "A", req)
	require.True(t, errors.Is(err, appErrors.ErrWorkflowGuard))

	f.setStatus(t, "FAC01", workflow.StatusVerificationPending)
	view, err := f.svc.VerifySection(context.Background(), verifier, models.DepartmentComputer, "FAC01", "A", req)
	require.NoError(t, err)
	assert.Equal(t, 40.0, view.VerifiedMarks)
	assert.Equal(t, 50.0, view.TotalMarks)
	assert.Equal(t, 40.0, view.GrandVerifiedMarks)

	_, err = f.svc.VerifySection(context.Background(), verifier, models.DepartmentComputer, "FAC01", "A", dto.VerifySectionRequest{
		VerifiedMarks: map[string]float64{"made_up": 1},
	})
	require.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.VerifySection(context.Background(), claims("HOD9", models.RoleHOD, models.DepartmentIT), models.DepartmentComputer, "FAC01", "A", req)
	require.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestVerifySectionRequiresCommitteeAssignment(t *testing.T) {
	f := newAppraisalFixture(t)
	f.onboard(t, "FAC01", "Assistant Professor")
	f.onboard(t, "FAC02", "Assistant Professor")
	f.setStatus(t, "FAC01", workflow.StatusVerificationPending)
	f.docs.seed(t, models.DepartmentComputer, models.DocVerificationTeam, models.VerificationTeam{
		"VER1": {Name: "Verifier One", Faculty: []models.AssignedFaculty{{ID: "FAC02", Name: "Faculty FAC02"}}},
	})
	req := dto.VerifySectionRequest{VerifiedMarks: map[string]float64{"journal_national_indexed": 370}}

	_, err := f.svc.VerifySection(context.Background(), claims("VERX", models.RoleVerifier, models.DepartmentIT), models.DepartmentComputer, "FAC01", "B", req)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.VerifySection(context.Background(), claims("VER1", models.RoleVerifier, models.DepartmentComputer), models.DepartmentComputer, "FAC01", "B", req)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))

	record, err := f.store.Load(context.Background(), models.DepartmentComputer, "FAC01")
	require.NoError(t, err)
	assert.Zero(t, record.GrandVerifiedMarks)
}

func TestTotalsNormalizesSectionAByPosition(t *testing.T) {
	f := newAppraisalFixture(t)
	f.onboard(t, "FAC01", "Associate Professor")
	_, err := f.svc.SubmitSection(context.Background(), claims("FAC01", models.RoleFaculty, models.DepartmentComputer), models.DepartmentComputer, "FAC01", "A", scoring.Document{
		"lectures_delivered": map[string]interface{}{"count": 10.0},
	})
	require.NoError(t, err)

	view, err := f.svc.Totals(context.Background(), models.DepartmentComputer, "FAC01")
	require.NoError(t, err)
	require.NotNil(t, view.SectionANormalized)
	assert.Equal(t, 61.11, *view.SectionANormalized)
	assert.Equal(t, 50.0, view.Sections[scoring.SectionA].TotalMarks)

	f.users.users["FAC01"].Position = "Lecturer"
	view, err = f.svc.Totals(context.Background(), models.DepartmentComputer, "FAC01")
	require.NoError(t, err)
	assert.Nil(t, view.SectionANormalized)
	assert.Contains(t, view.NormalizationError, "unknown academic position")
}

func TestListFacultyReportsRosterStatuses(t *testing.T) {
	f := newAppraisalFixture(t)
	f.onboard(t, "FAC02", "Professor")
	f.onboard(t, "FAC01", "Professor")
	f.setStatus(t, "FAC02", workflow.StatusDone)

	list, err := f.svc.ListFaculty(context.Background(), models.DepartmentComputer)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "FAC01", list[0].ID)
	assert.Equal(t, workflow.StatusPending, list[0].Status)
	assert.Equal(t, workflow.StatusDone, list[1].Status)

	empty, err := f.svc.ListFaculty(context.Background(), models.DepartmentIT)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
