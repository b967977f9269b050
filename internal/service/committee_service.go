package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

const statusUnknown workflow.Status = "unknown"

// CommitteeService manages department verification committees.
type CommitteeService struct {
	store       *RecordStore
	directory   identityLookup
	audit       auditWriter
	departments []models.Department
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCommitteeService constructs the service.
func NewCommitteeService(store *RecordStore, directory identityLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *CommitteeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CommitteeService{
		store:       store,
		directory:   directory,
		audit:       audit,
		departments: models.Departments,
		validator:   validate,
		logger:      logger,
	}
}

// SetCommittee replaces the department committee. Approvals already granted
// to a verifier for a faculty member carry over to the new assignment.
func (s *CommitteeService) SetCommittee(ctx context.Context, actor *models.JWTClaims, dept models.Department, req dto.CommitteeRequest) (models.VerificationTeam, error) {
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid committee payload")
	}

	roster, err := s.store.Roster(ctx, dept)
	if err != nil {
		return nil, err
	}
	resolved := make(models.VerificationTeam, len(req.Members))
	for verifierID, facultyIDs := range req.Members {
		verifier, err := s.directory.Lookup(ctx, verifierID)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("verifier %s not found", verifierID))
			}
			return nil, err
		}
		assignment := models.VerifierAssignment{Name: verifier.Name, Faculty: make([]models.AssignedFaculty, 0, len(facultyIDs))}
		seen := make(map[string]struct{}, len(facultyIDs))
		for _, facultyID := range facultyIDs {
			if _, dup := seen[facultyID]; dup {
				continue
			}
			seen[facultyID] = struct{}{}
			if facultyID == verifierID {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("verifier %s cannot verify their own record", verifierID))
			}
			name, ok := roster[facultyID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("faculty %s is not in department %s", facultyID, dept))
			}
			assignment.Faculty = append(assignment.Faculty, models.AssignedFaculty{ID: facultyID, Name: name})
		}
		resolved[verifierID] = assignment
	}

	var saved models.VerificationTeam
	err = s.store.UpdateTeam(ctx, dept, func(current models.VerificationTeam) (models.VerificationTeam, error) {
		next := make(models.VerificationTeam, len(resolved))
		for verifierID, assignment := range resolved {
			approved := approvals(current[verifierID])
			faculty := make([]models.AssignedFaculty, len(assignment.Faculty))
			for i, entry := range assignment.Faculty {
				entry.IsApproved = approved[entry.ID]
				faculty[i] = entry
			}
			next[verifierID] = models.VerifierAssignment{Name: assignment.Name, Faculty: faculty}
		}
		saved = next
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, dept, map[string]interface{}{"members": req.Members})
	s.logger.Info("verification committee updated", zap.String("department", string(dept)), zap.Int("verifiers", len(saved)))
	return saved, nil
}

// GetCommittee returns the department committee, empty when none is set.
func (s *CommitteeService) GetCommittee(ctx context.Context, actor *models.JWTClaims, dept models.Department) (models.VerificationTeam, error) {
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	return s.store.Team(ctx, dept)
}

// ClearCommittee removes every verifier from the department committee.
func (s *CommitteeService) ClearCommittee(ctx context.Context, actor *models.JWTClaims, dept models.Department) error {
	if err := authorizeDepartment(actor, dept); err != nil {
		return err
	}
	var removed int
	err := s.store.UpdateTeam(ctx, dept, func(current models.VerificationTeam) (models.VerificationTeam, error) {
		removed = len(current)
		if removed == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "verification committee not found")
		}
		return models.VerificationTeam{}, nil
	})
	if err != nil {
		return err
	}
	s.emitAudit(ctx, actor, dept, map[string]interface{}{"cleared": removed})
	return nil
}

// VerifierFaculty lists the faculty assigned to a verifier in every
// department, each with the current status of their record.
func (s *CommitteeService) VerifierFaculty(ctx context.Context, actor *models.JWTClaims, verifierID string) (*models.VerifierWorkload, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role != models.RoleAdmin && actor.UserID != verifierID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "verifiers may only list their own assignments")
	}
	verifier, err := s.directory.Lookup(ctx, verifierID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("verifier %s not found", verifierID))
		}
		return nil, err
	}

	workload := &models.VerifierWorkload{
		VerifierID: verifierID,
		Name:       verifier.Name,
		Assigned:   make(map[models.Department][]models.AssignedFacultyStatus),
	}
	for _, dept := range s.departments {
		team, err := s.store.Team(ctx, dept)
		if err != nil {
			return nil, err
		}
		assignment, ok := team[verifierID]
		if !ok {
			continue
		}
		entries := make([]models.AssignedFacultyStatus, 0, len(assignment.Faculty))
		for _, faculty := range assignment.Faculty {
			entries = append(entries, models.AssignedFacultyStatus{
				ID:         faculty.ID,
				Name:       faculty.Name,
				IsApproved: faculty.IsApproved,
				Status:     s.liveStatus(ctx, dept, faculty.ID),
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
		workload.Assigned[dept] = entries
	}
	if len(workload.Assigned) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s is not on any verification committee", verifierID))
	}
	return workload, nil
}

func (s *CommitteeService) liveStatus(ctx context.Context, dept models.Department, facultyID string) workflow.Status {
	record, err := s.store.Load(ctx, dept, facultyID)
	if err != nil {
		if !errors.Is(err, appErrors.ErrNotFound) {
			s.logger.Warn("failed to load assigned record", zap.String("faculty_id", facultyID), zap.Error(err))
		}
		return statusUnknown
	}
	return record.Status
}

func (s *CommitteeService) emitAudit(ctx context.Context, actor *models.JWTClaims, dept models.Department, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(values)
	resourceID := string(dept)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID(actor),
		Action:     models.AuditActionCommitteeUpdate,
		Resource:   "verification_committee",
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "committee-service",
	}); err != nil {
		s.logger.Warn("failed to record committee audit", zap.Error(err))
	}
}

func approvals(assignment models.VerifierAssignment) map[string]bool {
	out := make(map[string]bool, len(assignment.Faculty))
	for _, faculty := range assignment.Faculty {
		out[faculty.ID] = faculty.IsApproved
	}
	return out
}
