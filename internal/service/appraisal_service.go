package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/repository"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

const (
	initialSecretLength = 12

	actionEditSection   workflow.Action = "edit_section"
	actionVerifySection workflow.Action = "verify_section"
)

var verifiableStatuses = []workflow.Status{
	workflow.StatusVerificationPending,
	workflow.StatusAuthorityVerificationPending,
}

type facultyUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type credentialsNotifier interface {
	SendCredentials(ctx context.Context, email, userID, secret, name string)
}

type identityLookup interface {
	Lookup(ctx context.Context, facultyID string) (*models.Identity, error)
}

// AppraisalService handles onboarding and the section lifecycle of faculty records.
type AppraisalService struct {
	store     *RecordStore
	users     facultyUserRepository
	directory identityLookup
	notifier  credentialsNotifier
	validator *validator.Validate
	logger    *zap.Logger
	secret    func() (string, error)
}

// AppraisalServiceOption customises the appraisal service.
type AppraisalServiceOption func(*AppraisalService)

// WithSecretGenerator overrides initial password generation.
func WithSecretGenerator(fn func() (string, error)) AppraisalServiceOption {
	return func(s *AppraisalService) {
		if fn != nil {
			s.secret = fn
		}
	}
}

// NewAppraisalService constructs the service.
func NewAppraisalService(store *RecordStore, users facultyUserRepository, directory identityLookup, notifier credentialsNotifier, validate *validator.Validate, logger *zap.Logger, opts ...AppraisalServiceOption) *AppraisalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &AppraisalService{
		store:     store,
		users:     users,
		directory: directory,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		secret:    func() (string, error) { return generateSecret(initialSecretLength) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFaculty creates the user account, an empty appraisal record and the
// roster entry, then mails the credentials.
func (s *AppraisalService) CreateFaculty(ctx context.Context, actor *models.JWTClaims, req dto.CreateFacultyRequest) (*dto.CreateFacultyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	dept, err := ParseDepartment(req.Department)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleFaculty
	}

	secret, err := s.secret()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credentials")
	}

	user := &models.User{
		ID:           req.ID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Department:   dept,
		Position:     req.Position,
		Designation:  req.Designation,
		Role:         role,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("user %s already exists", req.ID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	sections, err := scoring.Skeleton()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build section skeleton")
	}
	record := &models.FacultyRecord{
		ID:          req.ID,
		Name:        req.Name,
		Department:  dept,
		Sections:    sections,
		GrandTotal:  scoring.GrandTotal{Status: scoring.GrandTotalCalculated},
		Status:      workflow.StatusPending,
		Interaction: interaction.Marks{ReviewStatus: interaction.ReviewPending},
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRoster(ctx, dept, func(roster models.Roster) error {
		roster[req.ID] = req.Name
		return nil
	}); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, models.AuditActionFacultyCreate, "faculty", req.ID, map[string]interface{}{
		"department":  dept,
		"position":    req.Position,
		"designation": req.Designation,
		"role":        role,
	})
	if s.notifier != nil {
		s.notifier.SendCredentials(ctx, req.Email, req.ID, secret, req.Name)
	}

	return &dto.CreateFacultyResponse{
		ID:          user.ID,
		Name:        user.Name,
		Department:  dept,
		Position:    user.Position,
		Designation: user.Designation,
		Role:        role,
	}, nil
}

// ListFaculty returns the roster of a department with live statuses.
func (s *AppraisalService) ListFaculty(ctx context.Context, dept models.Department) ([]models.FacultySummary, error) {
	roster, err := s.store.Roster(ctx, dept)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(roster))
	for id := range roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.FacultySummary, 0, len(ids))
	for _, id := range ids {
		record, err := s.store.Load(ctx, dept, id)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				s.logger.Warn("roster entry without record", zap.String("department", string(dept)), zap.String("faculty_id", id))
				continue
			}
			return nil, err
		}
		out = append(out, models.FacultySummary{
			ID:                 record.ID,
			Name:               record.Name,
			Status:             record.Status,
			GrandTotal:         record.GrandTotal.GrandTotal,
			GrandTotalStatus:   record.GrandTotal.Status,
			GrandVerifiedMarks: record.GrandVerifiedMarks,
		})
	}
	return out, nil
}

// GetSection returns one section of a record merged with defaults.
func (s *AppraisalService) GetSection(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawLetter string) (*models.SectionView, error) {
	letter, err := scoring.ParseLetter(rawLetter)
	if err != nil {
		return nil, domainError(err)
	}
	if err := authorizeRecordAccess(actor, dept, facultyID); err != nil {
		return nil, err
	}
	record, err := s.store.Load(ctx, dept, facultyID)
	if err != nil {
		return nil, err
	}
	defaults, _ := scoring.Defaults(letter)
	doc := scoring.Merge(defaults, record.Sections[letter])
	section, err := scoring.Decode(letter, doc)
	if err != nil {
		return nil, domainError(err)
	}
	return sectionView(record, letter, doc, scoring.Totals(section)), nil
}

// SubmitSection stores a faculty submission for one section and recomputes the totals.
func (s *AppraisalService) SubmitSection(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawLetter string, payload scoring.Document) (*models.SectionView, error) {
	letter, err := scoring.ParseLetter(rawLetter)
	if err != nil {
		return nil, domainError(err)
	}
	if err := authorizeOwner(actor, facultyID); err != nil {
		return nil, err
	}

	var (
		stored scoring.Document
		totals scoring.SectionTotals
	)
	record, err := s.store.Mutate(ctx, dept, facultyID, func(record *models.FacultyRecord) error {
		if record.Status != workflow.StatusPending {
			return guardFailure(&workflow.GuardError{
				Action:   actionEditSection,
				Current:  record.Status,
				Expected: []workflow.Status{workflow.StatusPending},
			})
		}
		doc, sectionTotals, err := scoring.Submit(letter, record.Sections[letter], payload)
		if err != nil {
			return domainError(err)
		}
		if record.Sections == nil {
			record.Sections = make(map[scoring.Letter]scoring.Document)
		}
		record.Sections[letter] = doc
		recomputeTotals(record, s.logger)
		record.IsUpdated = true
		stored, totals = doc, sectionTotals
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, models.AuditActionSectionSubmit, "section", facultyID+"/"+string(letter), map[string]interface{}{
		"total_marks": totals.TotalMarks,
		"grand_total": record.GrandTotal,
	})
	return sectionView(record, letter, stored, totals), nil
}

// VerifySection records reviewer marks for categories of a section.
func (s *AppraisalService) VerifySection(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawLetter string, req dto.VerifySectionRequest) (*models.SectionView, error) {
	letter, err := scoring.ParseLetter(rawLetter)
	if err != nil {
		return nil, domainError(err)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleVerifier {
		team, err := s.store.Team(ctx, dept)
		if err != nil {
			return nil, err
		}
		if _, _, err := verifierAssignment(team, actor.UserID, facultyID); err != nil {
			return nil, err
		}
	}

	var (
		stored scoring.Document
		totals scoring.SectionTotals
	)
	record, err := s.store.Mutate(ctx, dept, facultyID, func(record *models.FacultyRecord) error {
		if !statusIn(record.Status, verifiableStatuses) {
			return guardFailure(&workflow.GuardError{
				Action:   actionVerifySection,
				Current:  record.Status,
				Expected: append([]workflow.Status(nil), verifiableStatuses...),
			})
		}
		doc, sectionTotals, err := scoring.Verify(letter, record.Sections[letter], req.VerifiedMarks)
		if err != nil {
			return domainError(err)
		}
		if record.Sections == nil {
			record.Sections = make(map[scoring.Letter]scoring.Document)
		}
		record.Sections[letter] = doc
		recomputeTotals(record, s.logger)
		record.IsUpdated = true
		stored, totals = doc, sectionTotals
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, models.AuditActionSectionVerify, "section", facultyID+"/"+string(letter), map[string]interface{}{
		"verified_marks":       totals.VerifiedMarks,
		"grand_verified_marks": record.GrandVerifiedMarks,
	})
	return sectionView(record, letter, stored, totals), nil
}

// Totals reports section and grand totals, with section A normalized for the faculty's rank.
func (s *AppraisalService) Totals(ctx context.Context, dept models.Department, facultyID string) (*models.TotalsView, error) {
	record, err := s.store.Load(ctx, dept, facultyID)
	if err != nil {
		return nil, err
	}
	view := &models.TotalsView{
		FacultyID:          record.ID,
		Sections:           make(map[scoring.Letter]scoring.SectionTotals, len(scoring.Letters)),
		GrandTotal:         record.GrandTotal,
		GrandVerifiedMarks: record.GrandVerifiedMarks,
		Status:             record.Status,
	}
	for _, letter := range scoring.Letters {
		section, err := scoring.Decode(letter, record.Sections[letter])
		if err != nil {
			s.logger.Warn("undecodable section", zap.String("faculty_id", facultyID), zap.String("section", string(letter)), zap.Error(err))
			continue
		}
		view.Sections[letter] = scoring.Totals(section)
	}

	identity, err := s.directory.Lookup(ctx, facultyID)
	if err != nil {
		view.NormalizationError = appErrors.FromError(err).Message
		return view, nil
	}
	normalized, err := scoring.NormalizeForPosition(view.Sections[scoring.SectionA].TotalMarks, identity.Position)
	if err != nil {
		view.NormalizationError = err.Error()
		return view, nil
	}
	view.SectionANormalized = &normalized
	return view, nil
}

// recomputeTotals refreshes the grand totals. A computation fault is kept on
// the record as the error sentinel and never blocks the write.
func recomputeTotals(record *models.FacultyRecord, logger *zap.Logger) {
	grand, err := scoring.CalculateGrandTotal(record.Sections)
	if err != nil {
		logger.Error("grand total computation failed", zap.String("faculty_id", record.ID), zap.Error(err))
	}
	record.GrandTotal = grand

	verified, err := scoring.CalculateVerifiedTotal(record.Sections)
	if err != nil {
		logger.Error("verified total computation failed", zap.String("faculty_id", record.ID), zap.Error(err))
		return
	}
	record.GrandVerifiedMarks = verified
}

func (s *AppraisalService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resource, resourceID string, values map[string]interface{}) {
	if s.users == nil {
		return
	}
	payload, _ := json.Marshal(values)
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID(actor),
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "appraisal-service",
	}); err != nil {
		s.logger.Warn("failed to record appraisal audit", zap.String("action", action), zap.Error(err))
	}
}

func sectionView(record *models.FacultyRecord, letter scoring.Letter, doc scoring.Document, totals scoring.SectionTotals) *models.SectionView {
	return &models.SectionView{
		FacultyID:          record.ID,
		Section:            letter,
		Title:              scoring.Title(letter),
		Document:           doc,
		TotalMarks:         totals.TotalMarks,
		VerifiedMarks:      totals.VerifiedMarks,
		GrandTotal:         record.GrandTotal,
		GrandVerifiedMarks: record.GrandVerifiedMarks,
	}
}

func statusIn(status workflow.Status, allowed []workflow.Status) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}

// authorizeOwner lets faculty edit only their own record.
func authorizeOwner(actor *models.JWTClaims, facultyID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role == models.RoleAdmin || actor.UserID == facultyID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the record owner may edit it")
}

// departmentScoped lists roles whose reach ends at their own department.
// Verifiers sit on other departments' committees and are scoped by
// assignment instead.
var departmentScoped = map[models.UserRole]bool{
	models.RoleHOD:      true,
	models.RoleExternal: true,
}

// authorizeDepartment keeps department-scoped reviewers inside their department.
func authorizeDepartment(actor *models.JWTClaims, dept models.Department) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if departmentScoped[actor.Role] && actor.Department != dept {
		return appErrors.Clone(appErrors.ErrForbidden, "reviewer belongs to another department")
	}
	return nil
}

// verifierAssignment finds facultyID in the verifier's committee list.
func verifierAssignment(team models.VerificationTeam, verifierID, facultyID string) (models.VerifierAssignment, int, error) {
	assignment, ok := team[verifierID]
	if !ok {
		return assignment, -1, appErrors.Clone(appErrors.ErrNotFound, "verifier is not on the verification committee")
	}
	for i, faculty := range assignment.Faculty {
		if faculty.ID == facultyID {
			return assignment, i, nil
		}
	}
	return assignment, -1, appErrors.Clone(appErrors.ErrNotFound, "faculty is not assigned to this verifier")
}

// authorizeRecordAccess allows owners and reviewers to read a record.
func authorizeRecordAccess(actor *models.JWTClaims, dept models.Department, facultyID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role == models.RoleFaculty && actor.UserID != facultyID {
		return appErrors.Clone(appErrors.ErrForbidden, "faculty may only read their own record")
	}
	return authorizeDepartment(actor, dept)
}
