package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/repository"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

const maxExternalIDAttempts = 3

type externalUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	LatestIDWithPrefix(ctx context.Context, prefix string) (string, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ExternalService registers external interaction reviewers.
type ExternalService struct {
	store     *RecordStore
	users     externalUserRepository
	notifier  credentialsNotifier
	validator *validator.Validate
	logger    *zap.Logger
	secret    func() (string, error)
	now       func() time.Time
}

// ExternalServiceOption customises the external reviewer service.
type ExternalServiceOption func(*ExternalService)

// WithExternalSecretGenerator overrides initial password generation.
func WithExternalSecretGenerator(fn func() (string, error)) ExternalServiceOption {
	return func(s *ExternalService) {
		if fn != nil {
			s.secret = fn
		}
	}
}

// WithExternalClock overrides the clock used for academic year ids.
func WithExternalClock(now func() time.Time) ExternalServiceOption {
	return func(s *ExternalService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewExternalService constructs the service.
func NewExternalService(store *RecordStore, users externalUserRepository, notifier credentialsNotifier, validate *validator.Validate, logger *zap.Logger, opts ...ExternalServiceOption) *ExternalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &ExternalService{
		store:     store,
		users:     users,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		secret:    func() (string, error) { return generateSecret(initialSecretLength) },
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers an external reviewer for a department: a login account,
// an entry in the department's externals list and a credentials mail.
func (s *ExternalService) Create(ctx context.Context, actor *models.JWTClaims, dept models.Department, req dto.CreateExternalRequest) (*models.ExternalReviewer, error) {
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid external reviewer payload")
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
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Department:   dept,
		Designation:  req.Designation,
		Role:         models.RoleExternal,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.createWithNextID(ctx, dept, user); err != nil {
		return nil, err
	}

	reviewer := models.ExternalReviewer{
		ID:             user.ID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Organization:   req.Organization,
		Designation:    req.Designation,
		Specialization: req.Specialization,
		Address:        req.Address,
		Department:     dept,
		CreatedAt:      s.now(),
	}
	if err := s.store.UpdateExternals(ctx, dept, func(list []models.ExternalReviewer) ([]models.ExternalReviewer, error) {
		return append(list, reviewer), nil
	}); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, actor, reviewer)
	if s.notifier != nil {
		s.notifier.SendCredentials(ctx, req.Email, reviewer.ID, secret, req.Name)
	}
	s.logger.Info("external reviewer created", zap.String("external_id", reviewer.ID), zap.String("department", string(dept)))
	return &reviewer, nil
}

// List returns the department's external reviewers.
func (s *ExternalService) List(ctx context.Context, actor *models.JWTClaims, dept models.Department) ([]models.ExternalReviewer, error) {
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	return s.store.Externals(ctx, dept)
}

// AssignExternals replaces the department's external interview assignments.
// Review progress already recorded for a reviewer and faculty pair carries
// over when the pair is kept.
func (s *ExternalService) AssignExternals(ctx context.Context, actor *models.JWTClaims, dept models.Department, req dto.ExternalAssignmentRequest) (models.ExternalAssignments, error) {
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid external assignment payload")
	}

	externals, err := s.store.Externals(ctx, dept)
	if err != nil {
		return nil, err
	}
	if len(externals) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no external reviewers registered for %s", dept))
	}
	reviewers := make(map[string]models.ExternalReviewer, len(externals))
	for _, reviewer := range externals {
		reviewers[reviewer.ID] = reviewer
	}
	roster, err := s.store.Roster(ctx, dept)
	if err != nil {
		return nil, err
	}

	resolved := make(models.ExternalAssignments, len(req.Assignments))
	for externalID, facultyIDs := range req.Assignments {
		reviewer, ok := reviewers[externalID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("external reviewer %s not found", externalID))
		}
		assignment := models.ExternalAssignment{Reviewer: reviewer, Faculty: make([]models.AssignedReview, 0, len(facultyIDs))}
		for _, facultyID := range facultyIDs {
			if assignment.Review(facultyID) >= 0 {
				continue
			}
			name, ok := roster[facultyID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("faculty %s is not in department %s", facultyID, dept))
			}
			assignment.Faculty = append(assignment.Faculty, models.AssignedReview{ID: facultyID, Name: name})
		}
		resolved[externalID] = assignment
	}

	var saved models.ExternalAssignments
	err = s.store.UpdateExternalAssignments(ctx, dept, func(current models.ExternalAssignments) (models.ExternalAssignments, error) {
		next := make(models.ExternalAssignments, len(resolved))
		for externalID, assignment := range resolved {
			previous := current[externalID]
			faculty := make([]models.AssignedReview, len(assignment.Faculty))
			for i, entry := range assignment.Faculty {
				if j := previous.Review(entry.ID); j >= 0 {
					kept := previous.Faculty[j]
					entry.IsReviewed, entry.TotalMarks, entry.Comments = kept.IsReviewed, kept.TotalMarks, kept.Comments
				}
				faculty[i] = entry
			}
			next[externalID] = models.ExternalAssignment{Reviewer: assignment.Reviewer, Faculty: faculty}
		}
		saved = next
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAssignAudit(ctx, actor, dept, req.Assignments)
	s.logger.Info("external assignments updated", zap.String("department", string(dept)), zap.Int("externals", len(saved)))
	return saved, nil
}

// Assignments returns every external interview assignment of the department.
func (s *ExternalService) Assignments(ctx context.Context, actor *models.JWTClaims, dept models.Department) (models.ExternalAssignments, error) {
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	return s.store.ExternalAssignments(ctx, dept)
}

// Assignment returns one reviewer's interview list. External reviewers may
// only read their own.
func (s *ExternalService) Assignment(ctx context.Context, actor *models.JWTClaims, dept models.Department, externalID string) (*models.ExternalAssignment, error) {
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleExternal && actor.UserID != externalID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "external reviewers may only read their own assignments")
	}
	assignments, err := s.store.ExternalAssignments(ctx, dept)
	if err != nil {
		return nil, err
	}
	assignment, ok := assignments[externalID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no faculty assigned to %s", externalID))
	}
	return &assignment, nil
}

// createWithNextID assigns the next sequential id and inserts the user,
// moving on to the following number when a concurrent insert took it.
func (s *ExternalService) createWithNextID(ctx context.Context, dept models.Department, user *models.User) error {
	prefix := ExternalIDPrefix(dept, s.now())
	for attempt := 0; attempt < maxExternalIDAttempts; attempt++ {
		latest, err := s.users.LatestIDWithPrefix(ctx, prefix)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate external id")
		}
		id, err := NextExternalID(prefix, latest)
		if err != nil {
			return err
		}
		user.ID = id
		err = s.users.Create(ctx, user)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create external user")
		}
		s.logger.Debug("external id taken, retrying", zap.String("external_id", id), zap.Int("attempt", attempt+1))
	}
	return appErrors.Clone(appErrors.ErrConflict, "could not allocate an external reviewer id, retry the request")
}

// ExternalIDPrefix is EXT followed by the department code and the academic
// year, e.g. EXTCOMP2425 for a Computer reviewer created in 2024.
func ExternalIDPrefix(dept models.Department, now time.Time) string {
	year := now.Year()
	return fmt.Sprintf("EXT%s%02d%02d", dept.Code(), year%100, (year+1)%100)
}

// NextExternalID returns the id after latest within prefix, starting at 001.
func NextExternalID(prefix, latest string) (string, error) {
	next := 1
	if latest != "" {
		n, err := strconv.Atoi(latest[len(prefix):])
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("malformed external id %q", latest))
		}
		next = n + 1
	}
	if next > 999 {
		return "", appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("external id range %s is exhausted", prefix))
	}
	return fmt.Sprintf("%s%03d", prefix, next), nil
}

func (s *ExternalService) emitAudit(ctx context.Context, actor *models.JWTClaims, reviewer models.ExternalReviewer) {
	payload, _ := json.Marshal(map[string]interface{}{
		"department":   reviewer.Department,
		"organization": reviewer.Organization,
		"designation":  reviewer.Designation,
	})
	id := reviewer.ID
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID(actor),
		Action:     models.AuditActionExternalCreate,
		Resource:   "external_reviewer",
		ResourceID: &id,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "external-service",
	}); err != nil {
		s.logger.Warn("failed to record external audit", zap.Error(err))
	}
}

func (s *ExternalService) emitAssignAudit(ctx context.Context, actor *models.JWTClaims, dept models.Department, assignments map[string][]string) {
	payload, _ := json.Marshal(map[string]interface{}{"external_assignments": assignments})
	resourceID := string(dept)
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID(actor),
		Action:     models.AuditActionExternalAssign,
		Resource:   "external_assignments",
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "external-service",
	}); err != nil {
		s.logger.Warn("failed to record external assignment audit", zap.Error(err))
	}
}
