package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

const actionSubmitRating workflow.Action = "submit_rating"

var ratableStatuses = []workflow.Status{workflow.StatusInteractionPending, workflow.StatusDone}

var slotRoles = map[interaction.Role]models.UserRole{
	interaction.RoleExternal: models.RoleExternal,
	interaction.RoleDean:     models.RoleDean,
	interaction.RoleHOD:      models.RoleHOD,
}

// InteractionService records interaction ratings and completes reviews.
type InteractionService struct {
	store     *RecordStore
	audit     auditWriter
	reports   reportScheduler
	metrics   *MetricsService
	required  []interaction.Role
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// InteractionServiceOption customises the interaction service.
type InteractionServiceOption func(*InteractionService)

// WithInteractionMetrics records completion counters.
func WithInteractionMetrics(metrics *MetricsService) InteractionServiceOption {
	return func(s *InteractionService) {
		s.metrics = metrics
	}
}

// WithInteractionReports regenerates the report once a review completes.
func WithInteractionReports(reports reportScheduler) InteractionServiceOption {
	return func(s *InteractionService) {
		s.reports = reports
	}
}

// NewInteractionService constructs the service. An empty required list means every rater.
func NewInteractionService(store *RecordStore, audit auditWriter, required []interaction.Role, validate *validator.Validate, logger *zap.Logger, opts ...InteractionServiceOption) *InteractionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if len(required) == 0 {
		required = interaction.DefaultRequired
	}
	s := &InteractionService{
		store:     store,
		audit:     audit,
		required:  required,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRating upserts the caller's rating slot. When the rating completes the
// review, the record moves to done in the same write. External reviewers rate
// only faculty assigned to them, and their assignment is marked reviewed in
// that write too.
func (s *InteractionService) SubmitRating(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawRole string, req dto.RatingRequest) (*models.InteractionResult, error) {
	role, err := interaction.ParseRole(rawRole)
	if err != nil {
		return nil, domainError(err)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rating payload")
	}
	if err := authorizeRater(actor, role, dept); err != nil {
		return nil, err
	}

	var (
		completed  bool
		transition *models.TransitionResult
		summary    interaction.Summary
	)
	rate := func(record *models.FacultyRecord) error {
		completed, transition = false, nil
		if !statusIn(record.Status, ratableStatuses) {
			return guardFailure(&workflow.GuardError{
				Action:   actionSubmitRating,
				Current:  record.Status,
				Expected: append([]workflow.Status(nil), ratableStatuses...),
			})
		}
		agg := interaction.NewAggregator(record.Interaction, s.required)
		fired, err := agg.Submit(role, interaction.Rating{
			RaterID:     actor.UserID,
			Marks:       *req.Marks,
			Comments:    req.Comments,
			SubmittedAt: s.now(),
		})
		if err != nil {
			return domainError(err)
		}
		record.Interaction = agg.State()
		record.IsUpdated = true
		summary = agg.Summary()
		completed = fired

		if fired && record.Status == workflow.StatusInteractionPending {
			next, err := workflow.Apply(record.Status, workflow.ActionCompleteInteraction)
			if err != nil {
				return domainError(err)
			}
			transition = &models.TransitionResult{
				FacultyID: facultyID,
				Action:    workflow.ActionCompleteInteraction,
				From:      record.Status,
				To:        next,
			}
			record.Status = next
		}
		return nil
	}

	var record *models.FacultyRecord
	if actor.Role == models.RoleExternal {
		record, err = s.store.MutateWithAssignments(ctx, dept, facultyID, func(record *models.FacultyRecord, assignments models.ExternalAssignments) error {
			assignment, ok := assignments[actor.UserID]
			index := assignment.Review(facultyID)
			if !ok || index < 0 {
				return appErrors.Clone(appErrors.ErrNotFound, "faculty is not assigned to this external reviewer")
			}
			if err := rate(record); err != nil {
				return err
			}
			review := &assignment.Faculty[index]
			review.IsReviewed, review.TotalMarks, review.Comments = true, *req.Marks, req.Comments
			assignments[actor.UserID] = assignment
			return nil
		})
	} else {
		record, err = s.store.Mutate(ctx, dept, facultyID, rate)
	}
	if err != nil {
		return nil, err
	}

	s.emitRatingAudit(ctx, actor, facultyID, role, *req.Marks)
	if completed {
		s.metrics.RecordInteractionCompleted()
	}
	if transition != nil {
		s.metrics.RecordTransition(string(transition.Action), string(transition.To))
		s.logger.Info("interaction review completed",
			zap.String("department", string(dept)),
			zap.String("faculty_id", facultyID),
			zap.Float64("average", summary.Average),
		)
		emitTransitionAudit(ctx, s.audit, s.logger, actor, transition)
		if s.reports != nil {
			s.reports.Schedule(ctx, dept, facultyID)
		}
	}

	return &models.InteractionResult{
		FacultyID: facultyID,
		Completed: summary.ReviewStatus == interaction.ReviewCompleted,
		Status:    record.Status,
		Summary:   summary,
	}, nil
}

// Summary returns the rating slots and average of a record.
func (s *InteractionService) Summary(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID string) (*interaction.Summary, error) {
	if err := authorizeRecordAccess(actor, dept, facultyID); err != nil {
		return nil, err
	}
	record, err := s.store.Load(ctx, dept, facultyID)
	if err != nil {
		return nil, err
	}
	summary := interaction.NewAggregator(record.Interaction, s.required).Summary()
	return &summary, nil
}

func (s *InteractionService) emitRatingAudit(ctx context.Context, actor *models.JWTClaims, facultyID string, role interaction.Role, marks float64) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"role": role, "marks": marks})
	resourceID := facultyID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID(actor),
		Action:     models.AuditActionInteractionRating,
		Resource:   "interaction",
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "interaction-service",
	}); err != nil {
		s.logger.Warn("failed to record rating audit", zap.Error(err))
	}
}

// authorizeRater matches the caller's role to the rating slot.
func authorizeRater(actor *models.JWTClaims, role interaction.Role, dept models.Department) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if slotRoles[role] != actor.Role {
		return appErrors.Clone(appErrors.ErrForbidden, "caller may not rate the "+string(role)+" slot")
	}
	return authorizeDepartment(actor, dept)
}
