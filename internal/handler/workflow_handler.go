package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/pkg/response"
)

type workflowService interface {
	Transition(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawAction string, req dto.TransitionRequest) (*models.TransitionResult, error)
	SendToDirector(ctx context.Context, actor *models.JWTClaims, dept models.Department, req dto.SendToDirectorRequest) (*models.BulkTransitionResult, error)
}

type interactionService interface {
	SubmitRating(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawRole string, req dto.RatingRequest) (*models.InteractionResult, error)
	Summary(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID string) (*interaction.Summary, error)
}

// WorkflowHandler exposes status transitions and interaction ratings.
type WorkflowHandler struct {
	workflow    workflowService
	interaction interactionService
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(workflow workflowService, interaction interactionService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow, interaction: interaction}
}

// Transition godoc
// @Summary Apply a workflow action
// @Description Moves the record to the next status when its current status allows the action
// @Tags Workflow
// @Accept json
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Param action path string true "Action name"
// @Param payload body dto.TransitionRequest false "Portfolio marks for portfolio steps"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/actions/{action} [post]
func (h *WorkflowHandler) Transition(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "invalid transition payload") {
		return
	}
	res, err := h.workflow.Transition(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"), c.Param("action"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// SendToDirector godoc
// @Summary Forward faculty to the director
// @Description Ids that are unknown or not in the done status are skipped
// @Tags Workflow
// @Accept json
// @Produce json
// @Param dept path string true "Department"
// @Param payload body dto.SendToDirectorRequest true "Faculty ids"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{dept}/send-to-director [post]
func (h *WorkflowHandler) SendToDirector(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	var req dto.SendToDirectorRequest
	if !bindJSON(c, &req, "invalid send-to-director payload") {
		return
	}
	res, err := h.workflow.SendToDirector(c.Request.Context(), claimsFromContext(c), dept, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// SubmitRating godoc
// @Summary Submit an interaction rating
// @Tags Interaction
// @Accept json
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Param role path string true "Rater role: external, dean or hod"
// @Param payload body dto.RatingRequest true "Rating"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/interaction/{role} [post]
func (h *WorkflowHandler) SubmitRating(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	var req dto.RatingRequest
	if !bindJSON(c, &req, "invalid rating payload") {
		return
	}
	res, err := h.interaction.SubmitRating(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"), c.Param("role"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// InteractionSummary godoc
// @Summary Interaction ratings summary
// @Tags Interaction
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/interaction [get]
func (h *WorkflowHandler) InteractionSummary(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	summary, err := h.interaction.Summary(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}
