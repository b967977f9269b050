package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

// actionRoles lists who may request each user-facing action. Record owners
// request submit_form; ADMIN may request anything. Only VERIFIER callers of
// verify_research must be on the committee, and their approval is recorded.
var actionRoles = map[workflow.Action][]models.UserRole{
	workflow.ActionHODMarkGiven:    {models.RoleHOD},
	workflow.ActionPortfolioGiven:  {models.RoleDean},
	workflow.ActionVerifyResearch:  {models.RoleVerifier, models.RoleHOD, models.RoleDean},
	workflow.ActionVerifyAuthority: {models.RoleHOD, models.RoleDean},
	workflow.ActionOpenInteraction: {models.RoleHOD, models.RoleDean},
	workflow.ActionSendToDirector:  {models.RoleHOD, models.RoleDean},
}

type reportScheduler interface {
	Schedule(ctx context.Context, dept models.Department, facultyID string)
}

// WorkflowService applies guarded status transitions to appraisal records.
type WorkflowService struct {
	store     *RecordStore
	audit     auditWriter
	reports   reportScheduler
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// WorkflowServiceOption customises the workflow service.
type WorkflowServiceOption func(*WorkflowService)

// WithWorkflowMetrics records transition counters.
func WithWorkflowMetrics(metrics *MetricsService) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.metrics = metrics
	}
}

// WithReportScheduler regenerates reports after terminal transitions.
func WithReportScheduler(reports reportScheduler) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.reports = reports
	}
}

// NewWorkflowService constructs the workflow service.
func NewWorkflowService(store *RecordStore, audit auditWriter, validate *validator.Validate, logger *zap.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &WorkflowService{store: store, audit: audit, validator: validate, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transition applies a user-requested action to one record.
func (s *WorkflowService) Transition(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawAction string, req dto.TransitionRequest) (*models.TransitionResult, error) {
	action, err := workflow.ParseAction(rawAction)
	if err != nil {
		return nil, domainError(err)
	}
	switch action {
	case workflow.ActionCompleteInteraction:
		return nil, appErrors.Clone(appErrors.ErrValidation, "complete_interaction is applied automatically when all ratings are in")
	case workflow.ActionSendToDirector:
		return nil, appErrors.Clone(appErrors.ErrValidation, "send_to_director is applied through the department bulk endpoint")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	if carriesPortfolioMarks(action) && req.PortfolioMarks == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s requires portfolio_marks", action))
	}
	if err := authorizeAction(actor, action, dept, facultyID); err != nil {
		return nil, err
	}

	result := &models.TransitionResult{FacultyID: facultyID, Action: action}
	apply := func(record *models.FacultyRecord) error {
		next, err := workflow.Apply(record.Status, action)
		if err != nil {
			s.metrics.RecordGuardRejection(string(action))
			return domainError(err)
		}
		result.From = record.Status
		switch action {
		case workflow.ActionHODMarkGiven:
			marks := *req.PortfolioMarks
			record.Portfolio.HODMarks = &marks
		case workflow.ActionPortfolioGiven:
			marks := *req.PortfolioMarks
			record.Portfolio.DeanMarks = &marks
		}
		record.Status = next
		record.IsUpdated = true
		result.To = next
		return nil
	}

	if action == workflow.ActionVerifyResearch && actor.Role == models.RoleVerifier {
		_, err = s.store.MutateWithTeam(ctx, dept, facultyID, func(record *models.FacultyRecord, team models.VerificationTeam) error {
			assignment, index, err := verifierAssignment(team, actor.UserID, facultyID)
			if err != nil {
				return err
			}
			if err := apply(record); err != nil {
				return err
			}
			assignment.Faculty[index].IsApproved = true
			team[actor.UserID] = assignment
			return nil
		})
	} else {
		_, err = s.store.Mutate(ctx, dept, facultyID, apply)
	}
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, dept, result)
	return result, nil
}

// SendToDirector forwards every listed record in status done. Records that are
// missing or in another status are skipped without failing the batch.
func (s *WorkflowService) SendToDirector(ctx context.Context, actor *models.JWTClaims, dept models.Department, req dto.SendToDirectorRequest) (*models.BulkTransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid send to director payload")
	}
	if err := authorizeAction(actor, workflow.ActionSendToDirector, dept, ""); err != nil {
		return nil, err
	}

	result := &models.BulkTransitionResult{SuccessfulIDs: []string{}, SkippedIDs: []string{}}
	seen := make(map[string]struct{}, len(req.FacultyIDs))
	for _, facultyID := range req.FacultyIDs {
		if _, dup := seen[facultyID]; dup {
			continue
		}
		seen[facultyID] = struct{}{}

		transition := &models.TransitionResult{FacultyID: facultyID, Action: workflow.ActionSendToDirector}
		_, err := s.store.Mutate(ctx, dept, facultyID, func(record *models.FacultyRecord) error {
			next, err := workflow.Apply(record.Status, workflow.ActionSendToDirector)
			if err != nil {
				return err
			}
			transition.From, transition.To = record.Status, next
			record.Status = next
			record.IsUpdated = true
			return nil
		})
		if err != nil {
			s.logger.Info("faculty skipped for director", zap.String("department", string(dept)), zap.String("faculty_id", facultyID), zap.Error(err))
			result.SkippedIDs = append(result.SkippedIDs, facultyID)
			continue
		}
		result.SuccessfulIDs = append(result.SuccessfulIDs, facultyID)
		s.afterTransition(ctx, actor, dept, transition)
	}
	return result, nil
}

func (s *WorkflowService) afterTransition(ctx context.Context, actor *models.JWTClaims, dept models.Department, result *models.TransitionResult) {
	s.metrics.RecordTransition(string(result.Action), string(result.To))
	s.logger.Info("appraisal transition",
		zap.String("department", string(dept)),
		zap.String("faculty_id", result.FacultyID),
		zap.String("action", string(result.Action)),
		zap.String("from", string(result.From)),
		zap.String("to", string(result.To)),
	)
	emitTransitionAudit(ctx, s.audit, s.logger, actor, result)
	if s.reports != nil && (result.To == workflow.StatusDone || result.To == workflow.StatusSentToDirector) {
		s.reports.Schedule(ctx, dept, result.FacultyID)
	}
}

func emitTransitionAudit(ctx context.Context, audit auditWriter, logger *zap.Logger, actor *models.JWTClaims, result *models.TransitionResult) {
	if audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(result.From)})
	newValues, _ := json.Marshal(map[string]string{"status": string(result.To), "action": string(result.Action)})
	resourceID := result.FacultyID
	if err := audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID(actor),
		Action:     models.AuditActionTransition,
		Resource:   "appraisal",
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "workflow-service",
	}); err != nil {
		logger.Warn("failed to record transition audit", zap.Error(err))
	}
}

func carriesPortfolioMarks(action workflow.Action) bool {
	return action == workflow.ActionHODMarkGiven || action == workflow.ActionPortfolioGiven
}

func authorizeAction(actor *models.JWTClaims, action workflow.Action, dept models.Department, facultyID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if action == workflow.ActionSubmitForm {
		return authorizeOwner(actor, facultyID)
	}
	for _, role := range actionRoles[action] {
		if actor.Role == role {
			return authorizeDepartment(actor, dept)
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not perform %s", actor.Role, action))
}
