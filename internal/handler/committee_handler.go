package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/pkg/response"
)

type committeeService interface {
	SetCommittee(ctx context.Context, actor *models.JWTClaims, dept models.Department, req dto.CommitteeRequest) (models.VerificationTeam, error)
	GetCommittee(ctx context.Context, actor *models.JWTClaims, dept models.Department) (models.VerificationTeam, error)
	ClearCommittee(ctx context.Context, actor *models.JWTClaims, dept models.Department) error
	VerifierFaculty(ctx context.Context, actor *models.JWTClaims, verifierID string) (*models.VerifierWorkload, error)
}

type externalService interface {
	Create(ctx context.Context, actor *models.JWTClaims, dept models.Department, req dto.CreateExternalRequest) (*models.ExternalReviewer, error)
	List(ctx context.Context, actor *models.JWTClaims, dept models.Department) ([]models.ExternalReviewer, error)
	AssignExternals(ctx context.Context, actor *models.JWTClaims, dept models.Department, req dto.ExternalAssignmentRequest) (models.ExternalAssignments, error)
	Assignments(ctx context.Context, actor *models.JWTClaims, dept models.Department) (models.ExternalAssignments, error)
	Assignment(ctx context.Context, actor *models.JWTClaims, dept models.Department, externalID string) (*models.ExternalAssignment, error)
}

// ReviewerHandler manages verification committees and external reviewers.
type ReviewerHandler struct {
	committees committeeService
	externals  externalService
}

// NewReviewerHandler constructs the handler.
func NewReviewerHandler(committees committeeService, externals externalService) *ReviewerHandler {
	return &ReviewerHandler{committees: committees, externals: externals}
}

// SetCommittee godoc
// @Summary Replace the verification committee
// @Description Existing approvals are kept for faculty that stay with the same verifier
// @Tags Committee
// @Accept json
// @Produce json
// @Param dept path string true "Department"
// @Param payload body dto.CommitteeRequest true "Verifier to faculty ids"
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/verification-committee [put]
func (h *ReviewerHandler) SetCommittee(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	var req dto.CommitteeRequest
	if !bindJSON(c, &req, "invalid committee payload") {
		return
	}
	team, err := h.committees.SetCommittee(c.Request.Context(), claimsFromContext(c), dept, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team)
}

// GetCommittee godoc
// @Summary Verification committee
// @Tags Committee
// @Produce json
// @Param dept path string true "Department"
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/verification-committee [get]
func (h *ReviewerHandler) GetCommittee(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	team, err := h.committees.GetCommittee(c.Request.Context(), claimsFromContext(c), dept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team)
}

// ClearCommittee godoc
// @Summary Remove the verification committee
// @Tags Committee
// @Param dept path string true "Department"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /departments/{dept}/verification-committee [delete]
func (h *ReviewerHandler) ClearCommittee(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	if err := h.committees.ClearCommittee(c.Request.Context(), claimsFromContext(c), dept); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// VerifierFaculty godoc
// @Summary Faculty assigned to a verifier
// @Tags Committee
// @Produce json
// @Param id path string true "Verifier ID"
// @Success 200 {object} response.Envelope
// @Router /verifiers/{id}/faculty [get]
func (h *ReviewerHandler) VerifierFaculty(c *gin.Context) {
	workload, err := h.committees.VerifierFaculty(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workload)
}

// CreateExternal godoc
// @Summary Register an external reviewer
// @Tags Externals
// @Accept json
// @Produce json
// @Param dept path string true "Department"
// @Param payload body dto.CreateExternalRequest true "Reviewer"
// @Success 201 {object} response.Envelope
// @Router /departments/{dept}/externals [post]
func (h *ReviewerHandler) CreateExternal(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	var req dto.CreateExternalRequest
	if !bindJSON(c, &req, "invalid external reviewer payload") {
		return
	}
	reviewer, err := h.externals.Create(c.Request.Context(), claimsFromContext(c), dept, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reviewer)
}

// ListExternals godoc
// @Summary External reviewers of a department
// @Tags Externals
// @Produce json
// @Param dept path string true "Department"
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/externals [get]
func (h *ReviewerHandler) ListExternals(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	list, err := h.externals.List(c.Request.Context(), claimsFromContext(c), dept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, map[string]interface{}{"total": len(list)})
}

// AssignExternals godoc
// @Summary Replace external interview assignments
// @Description Review progress is kept for faculty that stay with the same external
// @Tags Externals
// @Accept json
// @Produce json
// @Param dept path string true "Department"
// @Param payload body dto.ExternalAssignmentRequest true "External to faculty ids"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{dept}/external-assignments [put]
func (h *ReviewerHandler) AssignExternals(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	var req dto.ExternalAssignmentRequest
	if !bindJSON(c, &req, "invalid external assignment payload") {
		return
	}
	assignments, err := h.externals.AssignExternals(c.Request.Context(), claimsFromContext(c), dept, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments)
}

// ExternalAssignments godoc
// @Summary External interview assignments of a department
// @Tags Externals
// @Produce json
// @Param dept path string true "Department"
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/external-assignments [get]
func (h *ReviewerHandler) ExternalAssignments(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	assignments, err := h.externals.Assignments(c.Request.Context(), claimsFromContext(c), dept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments)
}

// ExternalAssignment godoc
// @Summary Faculty assigned to one external reviewer
// @Tags Externals
// @Produce json
// @Param dept path string true "Department"
// @Param externalId path string true "External reviewer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{dept}/external-assignments/{externalId} [get]
func (h *ReviewerHandler) ExternalAssignment(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	assignment, err := h.externals.Assignment(c.Request.Context(), claimsFromContext(c), dept, c.Param("externalId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment)
}
